// Read-side projection of job records into the fleet-wide numbers the UI
// indicator shows. No mutation happens here.
package progress

import (
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
)

// Overview is the fleet-wide progress summary across active jobs, e.g.
// "12/40 done across 3 running jobs".
type Overview struct {
	ActiveJobs  int     `json:"active_jobs"`
	RunningJobs int     `json:"running_jobs"`
	QueuedJobs  int     `json:"queued_jobs"`
	TotalItems  int     `json:"total_items"`
	DoneItems   int     `json:"done_items"`
	FailedItems int     `json:"failed_items"`
	Percent     float64 `json:"percent"`
}

// Summarize folds the given jobs into a fleet overview. Only RUNNING and
// QUEUED jobs contribute; finished and paused work is not "in flight".
func Summarize(jobs []*models.Job) Overview {
	var o Overview
	for _, job := range jobs {
		switch job.Status {
		case models.JobStatusRunning:
			o.RunningJobs++
		case models.JobStatusQueued:
			o.QueuedJobs++
		default:
			continue
		}
		o.ActiveJobs++
		o.TotalItems += job.ProgressTotal
		o.DoneItems += job.ProgressDone
		o.FailedItems += job.ProgressFailed
	}
	if o.TotalItems > 0 {
		o.Percent = float64(o.DoneItems+o.FailedItems) / float64(o.TotalItems) * 100
	}
	return o
}

// Recent filters jobs down to those with activity in the given window,
// newest activity first (the input order is preserved, which the store
// already returns sorted by updated_at).
func Recent(jobs []*models.Job, now time.Time, window time.Duration) []*models.Job {
	var recent []*models.Job
	for _, job := range jobs {
		if now.Sub(job.UpdatedAt) <= window {
			recent = append(recent, job)
		}
	}
	return recent
}
