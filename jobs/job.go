// Package jobs provides the in-memory job queue used by the demo app: a
// metadata/result store, a goroutine-per-job runner with cooperative
// cancellation, and a throttled progress monitor.
package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final. Terminal jobs never change
// state again; in particular a cancelled job is never resurrected to
// running by a late completion.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// String returns the status as a plain string, for templates.
func (s Status) String() string { return string(s) }

// Job is the metadata record tracked for every submitted job.
type Job struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Status     Status            `json:"status"`
	Params     map[string]string `json:"params,omitempty"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	StartedAt  time.Time         `json:"started_at,omitzero"`
	FinishedAt time.Time         `json:"finished_at,omitzero"`
}

// Duration returns how long the job ran, or has been running so far.
func (j Job) Duration() time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	end := j.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(j.StartedAt)
}
