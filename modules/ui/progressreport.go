package ui

import "time"

// ProgressReport is the serializable snapshot of one progress bar, for the
// webservice progress feed.
type ProgressReport struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Current   int64     `json:"current"`
	Total     int64     `json:"total"`
	Percent   float32   `json:"percent"`
	StartTime time.Time `json:"start_time"`
	Done      bool      `json:"done"`
}

func GetProgressReport() []ProgressReport {
	bars := GetProgressBars()
	out := make([]ProgressReport, len(bars))
	for i, pb := range bars {
		out[i] = ProgressReport{
			ID:        pb.ID.String(),
			Title:     pb.Title,
			Current:   pb.Current,
			Total:     pb.Total,
			Percent:   pb.Percent,
			StartTime: pb.Started,
			Done:      pb.Done,
		}
	}
	return out
}
