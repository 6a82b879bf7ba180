package watch

import (
	"fmt"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/store"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/worker"
)

// Resume is the human-triggered recovery action for a stalled or paused job.
// It returns every orphaned running item to the queue, clears the stale
// continuation (the durable item statuses are the source of truth), and
// relaunches the worker from the job's stored origin context.
func Resume(st *store.Store, launcher *worker.Launcher, jobID string) error {
	job, err := st.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s is already %s", jobID, job.Status)
	}
	if launcher.Busy(jobID) {
		return fmt.Errorf("job %s already has a live worker invocation", jobID)
	}

	// The stalled worker is gone; every claim it held is an orphan.
	if _, err := st.ReclaimJobItems(jobID, time.Now()); err != nil {
		return fmt.Errorf("failed to reclaim items for job %s: %w", jobID, err)
	}
	if err := st.SetContinuation(jobID, nil); err != nil {
		return fmt.Errorf("failed to clear continuation for job %s: %w", jobID, err)
	}
	if job.Status == models.JobStatusPaused {
		if err := st.UpdateJobStatus(jobID, models.JobStatusRunning, "Resumed by user"); err != nil {
			return err
		}
	}
	return launcher.Start(jobID, nil)
}

// MarkFailed is the administrative override for a job the operator gives up
// on: force FAILED, stamp completion, record the reason. No reclamation
// happens; the item states stay as the dead worker left them, for audit.
func MarkFailed(st *store.Store, jobID, reason string) error {
	if reason == "" {
		reason = "Marked failed by operator"
	}
	return st.MarkJobFailed(jobID, reason)
}
