package domain

import "time"

// SweepReport summarizes one reminder sweep run.
type SweepReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Cutoff     time.Time      `json:"cutoff"`
	Total      int            `json:"total"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Failures   []SweepFailure `json:"failures,omitempty"`
}

// SweepFailure records a reminder that could not be sent.
type SweepFailure struct {
	SubscriptionID string `json:"subscription_id"`
	Email          string `json:"email"`
	CourseID       string `json:"course_id"`
	Error          string `json:"error"`
}
