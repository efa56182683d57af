package models

import "time"

// Report is a saved report definition with a delivery schedule.
type Report struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Recipient string    `json:"recipient,omitempty"`
	NextRunAt time.Time `json:"next_run_at"`
}

// ReportRun is the payload of a reports.run task.
type ReportRun struct {
	ReportID int64  `json:"report_id"`
	Name     string `json:"name"`
}
