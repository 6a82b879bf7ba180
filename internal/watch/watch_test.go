package watch_test

import (
	"testing"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/watch"
	"github.com/stretchr/testify/assert"
)

func jobWith(status models.JobStatus, updatedAt time.Time) *models.Job {
	return &models.Job{ID: "job-1", Status: status, UpdatedAt: updatedAt}
}

func TestIsStalled(t *testing.T) {
	now := time.Now()
	threshold := 120 * time.Second

	testCases := []struct {
		name string
		job  *models.Job
		want bool
	}{
		{"running and silent past threshold", jobWith(models.JobStatusRunning, now.Add(-3*time.Minute)), true},
		{"running with recent heartbeat", jobWith(models.JobStatusRunning, now.Add(-10*time.Second)), false},
		{"running exactly at threshold", jobWith(models.JobStatusRunning, now.Add(-threshold)), false},
		{"paused is never stalled", jobWith(models.JobStatusPaused, now.Add(-time.Hour)), false},
		{"completed is never stalled", jobWith(models.JobStatusCompleted, now.Add(-time.Hour)), false},
		{"queued is never stalled", jobWith(models.JobStatusQueued, now.Add(-time.Hour)), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, watch.IsStalled(tc.job, now, threshold))
		})
	}
}

func TestIsAbandoned(t *testing.T) {
	now := time.Now()
	threshold := 30 * time.Minute

	testCases := []struct {
		name string
		job  *models.Job
		want bool
	}{
		{"paused and forgotten", jobWith(models.JobStatusPaused, now.Add(-time.Hour)), true},
		{"freshly paused", jobWith(models.JobStatusPaused, now.Add(-time.Minute)), false},
		{"running is never abandoned", jobWith(models.JobStatusRunning, now.Add(-time.Hour)), false},
		{"failed is never abandoned", jobWith(models.JobStatusFailed, now.Add(-time.Hour)), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, watch.IsAbandoned(tc.job, now, threshold))
		})
	}
}

// A worker that dies silently leaves the heartbeat frozen, so detection
// latency is bounded by the threshold plus one sweep, never more.
func TestStallDetectionLatencyIsBounded(t *testing.T) {
	threshold := 120 * time.Second
	lastHeartbeat := time.Now()
	job := jobWith(models.JobStatusRunning, lastHeartbeat)

	assert.False(t, watch.IsStalled(job, lastHeartbeat.Add(threshold), threshold))
	assert.True(t, watch.IsStalled(job, lastHeartbeat.Add(threshold+time.Second), threshold))
}
