package ui

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gookit/color"
	"github.com/pterm/pterm"
)

// progressBar tracks a long-running computation phase (scheduling, diamond
// discovery, propagation levels). Bars are registered globally so the
// webservice progress feed can poll them.
type progressBar struct {
	ID                  uuid.UUID
	Title               string
	Current, Total      int64
	Percent             float32
	Started, Lastupdate time.Time
	mutex               sync.Mutex

	lastReport int64
	Done       bool
}

var (
	pbLock       sync.Mutex
	progressbars = map[*progressBar]struct{}{}
)

func GetProgressBars() []*progressBar {
	pbLock.Lock()
	pbs := make([]*progressBar, len(progressbars))
	var i int
	for pb := range progressbars {
		if pb.Done && pb.lastReport == pb.Current {
			delete(progressbars, pb)
			continue
		}
		pb.lastReport = pb.Current

		pbs[i] = pb
		i++
	}
	pbLock.Unlock()
	return pbs[:i]
}

func ProgressBar(title string, max int) *progressBar {
	if max == 0 {
		max = 1 // avoid division by zero in pterm
	}

	id, _ := uuid.NewV7()
	pb := progressBar{
		ID:      id,
		Title:   title,
		Total:   int64(max),
		Started: time.Now(),
	}

	pbLock.Lock()
	progressbars[&pb] = struct{}{}
	pbLock.Unlock()

	return &pb
}

func (pb *progressBar) ChangeMax(newmax int) {
	if newmax == 0 {
		Fatal().Msg("Cannot set max to 0")
	}
	atomic.StoreInt64(&pb.Total, int64(newmax))
}

func (pb *progressBar) GetMax() int {
	return int(atomic.LoadInt64(&pb.Total))
}

func (pb *progressBar) Add(i int) {
	atomic.AddInt64(&pb.Current, int64(i))
	pb.update()
}

func (pb *progressBar) Set(i int) {
	atomic.StoreInt64(&pb.Current, int64(i))
	pb.update()
}

func (pb *progressBar) Finish() {
	pbLock.Lock()
	delete(progressbars, pb)
	pbLock.Unlock()

	pb.Done = true
}

func (pb *progressBar) update() {
	pb.mutex.Lock()
	if time.Since(pb.Lastupdate) < time.Second {
		pb.mutex.Unlock()
		return
	}
	pb.Lastupdate = time.Now()
	pb.mutex.Unlock()

	outputMutex.Lock()
	defer outputMutex.Unlock()

	clearneeded = true

	current := atomic.LoadInt64(&pb.Current)
	total := atomic.LoadInt64(&pb.Total)

	var percent float32
	if total > 0 {
		percent = float32(current) * 100 / float32(total)
	}
	if percent > 100 {
		percent = 100
	}
	pb.Percent = percent

	counter := pterm.Gray("[") + pterm.LightWhite(current) + pterm.Gray("/") + pterm.LightWhite(total) + pterm.Gray("]")
	fade := color.RGB(pterm.NewRGB(255, 0, 0).Fade(0, float32(total), float32(current), pterm.NewRGB(0, 255, 0)).GetValues()).
		Sprint(fmt.Sprintf("%.2f%%", percent))

	before := pb.Title + " " + counter + " "
	after := " " + fade + " | " + time.Since(pb.Started).Round(time.Second).String()

	width := pterm.GetTerminalWidth()
	barlen := width - len(pterm.RemoveColorFromString(before)) - len(pterm.RemoveColorFromString(after)) - 1
	filled := int(math.Round(float64(percent * float32(barlen) / 100)))

	var bar string
	if filled > 0 && barlen >= filled {
		bar = strings.Repeat("█", filled) + strings.Repeat(" ", barlen-filled)
	}

	pterm.Fprinto(nil, before+bar+after)
}
