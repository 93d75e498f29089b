package domain

import "time"

// ReportStatus is the outcome of one game inside a batch.
type ReportStatus string

const (
	ReportSuccess ReportStatus = "success"
	ReportError   ReportStatus = "error"
)

// ReportGame is one line of a batch report.
type ReportGame struct {
	GameName string       `json:"game_name"`
	GameID   int64        `json:"game_id,omitempty"`
	Status   ReportStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
	Code     string       `json:"code,omitempty"`
}

// Report summarizes a batch wizard run.
type Report struct {
	ReportID     string       `json:"report_id"`
	NSuccess     int          `json:"n_success"`
	NError       int          `json:"n_error"`
	NTotal       int          `json:"n_total"`
	CreationDate time.Time    `json:"creation_date"`
	Games        []ReportGame `json:"games"`
}

// Add records a game outcome and updates the counters.
func (r *Report) Add(g ReportGame) {
	r.Games = append(r.Games, g)
	if g.Status == ReportSuccess {
		r.NSuccess++
	} else {
		r.NError++
	}
}
