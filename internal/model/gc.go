package model

import "time"

// GCResult holds the counts produced by one maintenance pass.
type GCResult struct {
	Recomputed  int `json:"recomputed"`
	Promoted    int `json:"promoted"`
	Deleted     int `json:"deleted"`
	PrunedTurns int `json:"pruned_turns"`
}

// GCRun is the audit record of a maintenance pass.
type GCRun struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	GCResult
	FailedStep string `json:"failed_step,omitempty"`
	Error      string `json:"error,omitempty"`
}
