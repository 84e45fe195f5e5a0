package ui

// Console and file logging for the analysis pipeline. Every line the
// engine prints goes through here so log output and progress bars share
// one writer lock: a repainted bar sets clearneeded and the next log
// line wipes it before printing.

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

func init() {
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{
		Out:        colorable.NewColorableStdout(),
		TimeFormat: "15:04:05.000",
	})
	pterm.PrintDebugMessages = true
}

type LogLevel int

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	outputMutex  sync.Mutex
	consoleLevel = LevelInfo
	clearneeded  bool

	// Zerotime stamps lines with time elapsed since process start
	// instead of wall clock, which keeps runs comparable.
	Zerotime  bool
	starttime = time.Now()

	// File output buffers until SetLogFile has been called once, so
	// lines logged before flag parsing still reach the chosen file.
	logfile     *os.File
	filelevel   = LevelInfo
	filechosen  bool
	earlybuffer *bytes.Buffer
)

func SetLoglevel(l LogLevel) {
	consoleLevel = l
}

func GetLoglevel() LogLevel {
	return consoleLevel
}

// SetLogFile directs output at the given level to path and flushes the
// early buffer into it. An empty path just stops the buffering.
func SetLogFile(path string, l LogLevel) error {
	outputMutex.Lock()
	defer outputMutex.Unlock()

	filechosen = true

	if logfile != nil {
		logfile.Close()
		logfile = nil
	}
	if path == "" {
		earlybuffer = nil
		return nil
	}

	os.MkdirAll(filepath.Dir(path), 0755)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open logfile %s: %w", path, err)
	}
	logfile = f
	filelevel = l

	if earlybuffer != nil && earlybuffer.Len() > 0 {
		io.Copy(logfile, earlybuffer)
	}
	earlybuffer = nil
	return nil
}

// Logger is one leveled output line in flight. Values are cheap and
// never retained.
type Logger struct {
	level  LogLevel
	output *zerolog.Event
	pterm  pterm.PrefixPrinter
}

func timestamp() string {
	if Zerotime {
		e := time.Since(starttime)
		return fmt.Sprintf("%02d:%02d:%02d.%03d", int(e.Hours()), int(e.Minutes())%60, int(e.Seconds())%60, e.Milliseconds()%1000)
	}
	return time.Now().Format("15:04:05.000")
}

func (t Logger) Msgf(format string, args ...any) {
	toConsole := consoleLevel <= t.level
	toFile := filechosen && logfile != nil && filelevel <= t.level
	buffering := !filechosen && toConsole
	if !toConsole && !toFile && !buffering {
		return
	}

	outputMutex.Lock()

	ts := timestamp()
	line := ts + " " + t.level.String() + " " + format + "\n"
	if toFile {
		fmt.Fprintf(logfile, line, args...)
	} else if buffering {
		if earlybuffer == nil {
			earlybuffer = bytes.NewBuffer(nil)
		}
		fmt.Fprintf(earlybuffer, line, args...)
	}

	if toConsole {
		if clearneeded {
			pterm.Fprinto(t.pterm.Writer, strings.Repeat(" ", pterm.GetTerminalWidth()))
			pterm.Fprinto(t.pterm.Writer)
			clearneeded = false
		}
		tprefix := pterm.DefaultBasicText.Sprint(ts + " ")
		pterm.Fprint(t.pterm.Writer, tprefix+t.pterm.Sprintfln(format, args...))
	}

	if t.level == LevelFatal {
		if logfile != nil {
			logfile.Close()
		}
		os.Exit(1)
	}
	outputMutex.Unlock()
}

func (t Logger) Msg(msg string) Logger {
	t.Msgf("%s", msg)
	return t
}

func Debug() Logger {
	return Logger{LevelDebug, zlog.Debug(), pterm.Debug}
}

func Info() Logger {
	return Logger{LevelInfo, zlog.Info(), pterm.Info}
}

func Warn() Logger {
	return Logger{LevelWarn, zlog.Warn(), pterm.Warning}
}

func Error() Logger {
	return Logger{LevelError, zlog.Error(), pterm.Error}
}

func Fatal() Logger {
	return Logger{LevelFatal, zlog.Fatal(), pterm.Fatal}
}
