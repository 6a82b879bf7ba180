// A one-shot maintenance tool: applies migrations, reclaims orphaned item
// claims across the fleet, and prints a progress report. Useful when the
// server is down and an operator wants to know what state the queue is in.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/config"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/db"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/progress"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/store"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/watch"
)

func main() {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Run database migrations
	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	st := store.New(database)

	// Reclaim item claims whose worker is long gone.
	cutoff := time.Now().Add(-time.Duration(cfg.Worker.StaleAfterSeconds) * time.Second)
	reclaimed, err := st.ReclaimStaleItems(cutoff)
	if err != nil {
		log.Fatalf("Reclamation failed: %v", err)
	}
	fmt.Printf("Reclaimed %d orphaned item claim(s).\n", reclaimed)

	// Fleet overview across active jobs.
	active, err := st.ListJobsByStatus(models.JobStatusRunning, models.JobStatusQueued)
	if err != nil {
		log.Fatalf("Failed to list active jobs: %v", err)
	}
	overview := progress.Summarize(active)
	fmt.Printf("Active jobs: %d (%d running, %d queued), items %d/%d done, %d failed (%.1f%%).\n",
		overview.ActiveJobs, overview.RunningJobs, overview.QueuedJobs,
		overview.DoneItems, overview.TotalItems, overview.FailedItems, overview.Percent)

	// Call out anything that looks stalled.
	now := time.Now()
	stallAfter := time.Duration(cfg.Watch.StallAfterSeconds) * time.Second
	for _, job := range active {
		if watch.IsStalled(job, now, stallAfter) {
			fmt.Printf("STALLED: job %s (%s) last updated %s; resume it or mark it failed.\n",
				job.ID, job.Type, job.UpdatedAt.Format(time.RFC3339))
		}
	}
}
