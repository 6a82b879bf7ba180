package watch

import (
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/config"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/store"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/websocket"
)

// Service periodically scans active jobs and broadcasts stall state changes
// over the websocket hub, so the UI can flip a progress bar into the
// "stalled, needs a human" state without polling every job itself. The sweep
// also reclaims stale item claims fleet-wide, which covers the window where
// no worker invocation is alive to clean up after a dead one.
type Service struct {
	st  *store.Store
	hub *websocket.Hub

	sweepInterval  time.Duration
	stallAfter     time.Duration
	abandonedAfter time.Duration
	staleAfter     time.Duration

	mu      sync.Mutex
	stalled map[string]bool

	scheduler *gocron.Scheduler
}

// NewService creates the watch service from the application config.
func NewService(st *store.Store, hub *websocket.Hub, cfg *config.Config) *Service {
	return &Service{
		st:             st,
		hub:            hub,
		sweepInterval:  time.Duration(cfg.Watch.SweepSeconds) * time.Second,
		stallAfter:     time.Duration(cfg.Watch.StallAfterSeconds) * time.Second,
		abandonedAfter: time.Duration(cfg.Watch.AbandonedAfterSeconds) * time.Second,
		staleAfter:     time.Duration(cfg.Worker.StaleAfterSeconds) * time.Second,
		stalled:        make(map[string]bool),
	}
}

// Start schedules the periodic sweep in the background.
func (s *Service) Start() {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	if _, err := scheduler.Every(s.sweepInterval).Do(s.Sweep); err != nil {
		log.Printf("Error scheduling watch sweep: %v", err)
		return
	}

	log.Printf("Starting watch sweep every %s (stall threshold %s)", s.sweepInterval, s.stallAfter)
	scheduler.StartAsync()
	s.scheduler = scheduler
}

// Stop halts the scheduled sweep.
func (s *Service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Sweep runs one scan. It is exported so the CLI and tests can run it
// synchronously.
func (s *Service) Sweep() {
	now := time.Now()

	// Fleet-wide safety net for claims whose worker died between resumes.
	if reclaimed, err := s.st.ReclaimStaleItems(now.Add(-s.staleAfter)); err != nil {
		log.Printf("Watch sweep: stale claim reclamation failed: %v", err)
	} else if reclaimed > 0 {
		log.Printf("Watch sweep: reclaimed %d stale item claim(s)", reclaimed)
	}

	jobs, err := s.st.ListJobsByStatus(models.JobStatusRunning, models.JobStatusPaused)
	if err != nil {
		log.Printf("Watch sweep: failed to list active jobs: %v", err)
		return
	}

	for _, job := range jobs {
		stalledNow := IsStalled(job, now, s.stallAfter) || IsAbandoned(job, now, s.abandonedAfter)
		s.mu.Lock()
		changed := s.stalled[job.ID] != stalledNow
		s.stalled[job.ID] = stalledNow
		s.mu.Unlock()

		if !changed {
			continue
		}
		message := "Job is making progress again"
		if stalledNow {
			message = "Job has gone silent; resume it or mark it failed"
			log.Printf("Watch sweep: job %s (%s) looks stalled, last update %s", job.ID, job.Status, job.UpdatedAt.Format(time.RFC3339))
		}
		progress := 0.0
		if job.ProgressTotal > 0 {
			progress = float64(job.ProgressDone+job.ProgressFailed) / float64(job.ProgressTotal) * 100
		}
		s.hub.BroadcastJSON(models.ProgressUpdate{
			JobID:    job.ID,
			Message:  message,
			Progress: progress,
			Status:   string(job.Status),
			Stalled:  stalledNow,
		})
	}
}
