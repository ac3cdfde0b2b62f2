package domain

import "time"

// Status is the lifecycle state of a search run.
type Status string

const (
	// StatusRunning indicates the orchestrator owns the record and is working.
	StatusRunning Status = "running"
	// StatusCompleted indicates a natural finish (cap reached or provider exhausted).
	StatusCompleted Status = "completed"
	// StatusFailed indicates a fatal provider error ended the run.
	StatusFailed Status = "failed"
	// StatusStopped indicates cooperative cancellation by an external actor.
	StatusStopped Status = "stopped"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// RunStats aggregates the outcome of a finished run.
type RunStats struct {
	TotalFound      int     `json:"totalFound"`
	Processed       int     `json:"processed"`
	AvgQuality      float64 `json:"avgQuality"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// ProgressRecord is the durable per-run state polled by clients. The
// orchestrator is its only writer while Status is running; every write is
// a full overwrite (last-writer-wins).
type ProgressRecord struct {
	RunID           string    `json:"runId"`
	ProgressPercent int       `json:"progressPercent"`
	Message         string    `json:"message"`
	Status          Status    `json:"status"`
	Stats           *RunStats `json:"stats,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
