package jobs

import (
	"github.com/pulseboard/pulseboard/logger"
)

// Hooks receives job lifecycle notifications. Implementations must not
// block; they run on the job's goroutine.
type Hooks interface {
	// JobQueued fires after the job record is stored, before execution.
	JobQueued(job Job)

	// JobStarted fires when the job function begins running.
	JobStarted(job Job)

	// JobFinished fires once the job reaches a terminal state.
	JobFinished(job Job)
}

// LoggingHooks logs lifecycle events through the configured logger.
type LoggingHooks struct {
	logger logger.Logger
}

// NewLoggingHooks creates hooks logging to l.
func NewLoggingHooks(l logger.Logger) *LoggingHooks {
	if l == nil {
		l = logger.NopLogger{}
	}
	return &LoggingHooks{logger: l}
}

func (h *LoggingHooks) JobQueued(job Job) {
	h.logger.Info("job queued", "id", job.ID, "name", job.Name, "type", job.Type)
}

func (h *LoggingHooks) JobStarted(job Job) {
	h.logger.Info("job started", "id", job.ID, "name", job.Name)
}

func (h *LoggingHooks) JobFinished(job Job) {
	if job.Status == StatusFailed {
		h.logger.Warn("job failed", "id", job.ID, "name", job.Name, "error", job.Error, "duration", job.Duration())
		return
	}
	h.logger.Info("job finished", "id", job.ID, "name", job.Name, "status", string(job.Status), "duration", job.Duration())
}
