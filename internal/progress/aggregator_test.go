package progress_test

import (
	"testing"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/progress"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	jobs := []*models.Job{
		{ID: "a", Status: models.JobStatusRunning, ProgressTotal: 20, ProgressDone: 8, ProgressFailed: 2},
		{ID: "b", Status: models.JobStatusRunning, ProgressTotal: 10, ProgressDone: 10},
		{ID: "c", Status: models.JobStatusQueued, ProgressTotal: 10},
		{ID: "d", Status: models.JobStatusCompleted, ProgressTotal: 100, ProgressDone: 100},
		{ID: "e", Status: models.JobStatusPaused, ProgressTotal: 50, ProgressDone: 25},
		{ID: "f", Status: models.JobStatusFailed, ProgressTotal: 5, ProgressFailed: 5},
	}

	o := progress.Summarize(jobs)
	assert.Equal(t, 3, o.ActiveJobs, "finished and paused jobs are not in flight")
	assert.Equal(t, 2, o.RunningJobs)
	assert.Equal(t, 1, o.QueuedJobs)
	assert.Equal(t, 40, o.TotalItems)
	assert.Equal(t, 18, o.DoneItems)
	assert.Equal(t, 2, o.FailedItems)
	assert.InDelta(t, 50.0, o.Percent, 0.001)
}

func TestSummarizeEmpty(t *testing.T) {
	o := progress.Summarize(nil)
	assert.Zero(t, o.ActiveJobs)
	assert.Zero(t, o.Percent)
}

func TestRecent(t *testing.T) {
	now := time.Now()
	jobs := []*models.Job{
		{ID: "new", UpdatedAt: now.Add(-time.Hour)},
		{ID: "edge", UpdatedAt: now.Add(-24 * time.Hour)},
		{ID: "old", UpdatedAt: now.Add(-25 * time.Hour)},
	}

	recent := progress.Recent(jobs, now, 24*time.Hour)
	assert.Len(t, recent, 2)
	assert.Equal(t, "new", recent[0].ID)
	assert.Equal(t, "edge", recent[1].ID)
}
