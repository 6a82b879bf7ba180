package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/store"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/websocket"
)

// Launcher starts worker invocations fire-and-forget: Start returns as soon
// as the invocation is dispatched, never awaiting its completion. It also
// keeps at most one live invocation per job in this process, and chains
// continuation invocations when a budget-exhausted run hands work forward.
type Launcher struct {
	st   *store.Store
	hub  *websocket.Hub
	opts Options

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewLauncher creates a launcher over the given store and hub.
func NewLauncher(st *store.Store, hub *websocket.Hub, opts Options) *Launcher {
	return &Launcher{
		st:       st,
		hub:      hub,
		opts:     opts.withDefaults(),
		inFlight: make(map[string]bool),
	}
}

// Start dispatches a worker invocation for the job and returns immediately.
// It fails when the job already has a live invocation in this process.
func (l *Launcher) Start(jobID string, cont *models.ContinuationToken) error {
	l.mu.Lock()
	if l.inFlight[jobID] {
		l.mu.Unlock()
		return fmt.Errorf("job %s already has a live worker invocation", jobID)
	}
	l.inFlight[jobID] = true
	l.mu.Unlock()

	go l.run(jobID, cont)
	return nil
}

// Busy reports whether a job has a live invocation in this process.
func (l *Launcher) Busy(jobID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight[jobID]
}

func (l *Launcher) run(jobID string, cont *models.ContinuationToken) {
	inv := NewInvocation(l.st, l.hub, l.opts, jobID, cont)
	next, err := inv.Run(context.Background())

	l.mu.Lock()
	delete(l.inFlight, jobID)
	l.mu.Unlock()

	if err != nil {
		// A store-level failure here is catastrophic for this invocation;
		// the job keeps its last-known status and recovery comes from the
		// next stall-driven resume.
		log.Printf("Worker invocation for job %s aborted: %v", jobID, err)
		return
	}
	if next == nil {
		return
	}

	// Chain the successor. A failed dispatch is logged distinctly from item
	// failures so an operator can tell "compute died" from "dispatch died";
	// the job's updated_at stops advancing either way and the stall signal
	// takes it from there.
	if err := l.Start(jobID, next); err != nil {
		log.Printf("Continuation dispatch failed for job %s: %v", jobID, err)
		if serr := l.st.SetJobNote(jobID, fmt.Sprintf("continuation dispatch failed: %v", err)); serr != nil {
			log.Printf("Failed to record dispatch failure on job %s: %v", jobID, serr)
		}
	}
}
