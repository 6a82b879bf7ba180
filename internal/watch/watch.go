// Stall detection. A worker that dies cannot report its own death; the only
// signal left behind is a job whose updated_at stops advancing. These checks
// are pure functions of the last-seen job state so any observer (the sweep
// below, the UI, a CLI) computes the same answer.
package watch

import (
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
)

// IsStalled reports whether a running job has gone silent: its heartbeat has
// not advanced within the threshold. The threshold must comfortably exceed
// the worker heartbeat interval or normal polling latency shows up as false
// stalls.
func IsStalled(job *models.Job, now time.Time, stallThreshold time.Duration) bool {
	return job.Status == models.JobStatusRunning && now.Sub(job.UpdatedAt) > stallThreshold
}

// IsAbandoned reports whether a paused job has been left alone long enough
// that the UI should surface it as abandoned rather than merely paused.
func IsAbandoned(job *models.Job, now time.Time, abandonedThreshold time.Duration) bool {
	return job.Status == models.JobStatusPaused && now.Sub(job.UpdatedAt) > abandonedThreshold
}
