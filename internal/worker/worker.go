// The time-boxed worker. Each invocation claims small batches of queued
// items, renders them with bounded concurrency, and keeps the job record's
// counters fresh. When its wall-clock budget runs out it persists a
// continuation token and hands the rest of the batch to a successor
// invocation, so a batch of hundreds of items survives an execution host
// that kills workers after tens of seconds.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/store"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/websocket"
)

// interBatchPause is how long the loop waits when every remaining item is
// claimed by someone else.
const interBatchPause = 2 * time.Second

// Invocation is a single time-boxed run of the worker loop for one job.
type Invocation struct {
	id     string
	jobID  string
	st     *store.Store
	hub    *websocket.Hub
	opts   Options
	policy RetryPolicy

	engine models.Engine
	params map[string]string

	mu        sync.Mutex
	processed []int64
}

// NewInvocation prepares a worker invocation for the given job. The optional
// continuation token carries the item IDs a predecessor already settled.
func NewInvocation(st *store.Store, hub *websocket.Hub, opts Options, jobID string, cont *models.ContinuationToken) *Invocation {
	opts = opts.withDefaults()
	inv := &Invocation{
		id:    uuid.NewString(),
		jobID: jobID,
		st:    st,
		hub:   hub,
		opts:  opts,
		policy: RetryPolicy{
			MaxAttempts:   opts.MaxAttempts,
			RetryBase:     opts.RetryBase,
			RateLimitBase: opts.RateLimitBase,
		},
	}
	if cont != nil {
		inv.processed = append(inv.processed, cont.ProcessedIDs...)
	}
	return inv
}

// Run executes the invocation until the job settles, an external pause or
// cancel is observed, or the budget is exhausted. It returns a continuation
// token when a successor invocation is needed, nil otherwise.
func (inv *Invocation) Run(ctx context.Context) (*models.ContinuationToken, error) {
	job, err := inv.st.GetJob(inv.jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", inv.jobID, err)
	}
	if job.Status.Terminal() {
		log.Printf("[worker %s] Job %s is already %s, nothing to do", inv.id, inv.jobID, job.Status)
		return nil, nil
	}

	if err := inv.resolveEngine(job); err != nil {
		// No engine means no item can ever render; fail the job outright.
		if ferr := inv.st.FinalizeJob(inv.jobID, models.JobStatusFailed, err.Error()); ferr != nil {
			log.Printf("[worker %s] Failed to finalize job %s: %v", inv.id, inv.jobID, ferr)
		}
		return nil, err
	}

	if err := inv.st.MarkJobRunning(inv.jobID); err != nil {
		return nil, fmt.Errorf("failed to mark job %s running: %w", inv.jobID, err)
	}

	// Recover items abandoned by a killed predecessor before fetching
	// anything new.
	inv.reclaimStale()

	start := time.Now()
	lastHeartbeat := time.Time{}
	lastReclaim := start

	for {
		// Budget check first: stop claiming with enough margin left to
		// persist the continuation and respond.
		if time.Since(start) >= inv.opts.Budget-inv.opts.Margin {
			return inv.continueLater()
		}

		if time.Since(lastHeartbeat) >= inv.opts.HeartbeatInterval || lastHeartbeat.IsZero() {
			inv.heartbeat()
			lastHeartbeat = time.Now()
		}

		// A long single invocation keeps cleaning up after itself, not only
		// after a restart.
		if time.Since(lastReclaim) >= inv.opts.StaleAfter {
			inv.reclaimStale()
			lastReclaim = time.Now()
		}

		// Cooperative pause/cancel check at the batch boundary.
		job, err := inv.st.GetJob(inv.jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh job %s: %w", inv.jobID, err)
		}
		if job.Status == models.JobStatusPaused || job.Status == models.JobStatusCanceled {
			log.Printf("[worker %s] Job %s is %s, stopping without re-invoking", inv.id, inv.jobID, job.Status)
			inv.heartbeat()
			return nil, nil
		}

		items, err := inv.st.ClaimQueuedItems(inv.jobID, inv.id, inv.opts.ClaimBatch, inv.processedIDs())
		if err != nil {
			return nil, fmt.Errorf("failed to claim items for job %s: %w", inv.jobID, err)
		}

		if len(items) == 0 {
			counts, err := inv.st.CountItemsByStatus(inv.jobID)
			if err != nil {
				return nil, fmt.Errorf("failed to count items for job %s: %w", inv.jobID, err)
			}
			if counts.Queued == 0 && counts.Running == 0 {
				return inv.finalize(counts)
			}
			// Items are still running under another invocation's claim. Wait
			// for them to settle or go stale instead of spinning; the budget
			// check above bounds how long we linger here.
			select {
			case <-time.After(interBatchPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		inv.executeBatch(ctx, items)
	}
}

// resolveEngine decodes the job's origin context and looks up its engine.
func (inv *Invocation) resolveEngine(job *models.Job) error {
	octx, err := models.DecodeOriginContext(job.Type, job.OriginContext)
	if err != nil {
		return err
	}
	engine, ok := generator.Get(octx.EngineID())
	if !ok {
		return fmt.Errorf("engine '%s' is not registered", octx.EngineID())
	}
	inv.engine = engine
	inv.params = octx.RenderParams()
	return nil
}

// executeBatch renders the claimed items with bounded concurrency and waits
// for all of them to settle before the caller fetches the next batch.
func (inv *Invocation) executeBatch(ctx context.Context, items []*models.WorkItem) {
	sem := make(chan struct{}, inv.opts.Concurrency)
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(item *models.WorkItem) {
			defer wg.Done()
			defer func() { <-sem }()
			inv.runItem(ctx, item)
		}(item)
	}
	wg.Wait()
}

// runItem executes one work item with retries per the retry policy.
func (inv *Invocation) runItem(ctx context.Context, item *models.WorkItem) {
	req := models.RenderRequest{Payload: item.Payload, Params: inv.params}

	for attempt := 1; ; attempt++ {
		// A pause or cancel observed mid-attempt abandons the item without
		// marking it failed; the release leaves it queued for a later resume.
		if inv.jobInterrupted() {
			if err := inv.st.ReleaseItem(item.ID, inv.id); err != nil {
				log.Printf("[worker %s] Failed to release item %d: %v", inv.id, item.ID, err)
			}
			return
		}

		resultRef, err := inv.engine.Render(ctx, req)
		if err == nil {
			inv.settleComplete(item, resultRef)
			return
		}

		kind := generator.Classify(err)
		if !inv.policy.ShouldRetry(kind, attempt) {
			inv.settleFailed(item, attempt, err)
			return
		}

		delay := inv.policy.Delay(kind, attempt)
		log.Printf("[worker %s] Item %d failed (%s, attempt %d/%d), retrying in %s: %v",
			inv.id, item.ID, kind, attempt, inv.policy.MaxAttempts, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			if err := inv.st.ReleaseItem(item.ID, inv.id); err != nil {
				log.Printf("[worker %s] Failed to release item %d: %v", inv.id, item.ID, err)
			}
			return
		}
	}
}

func (inv *Invocation) settleComplete(item *models.WorkItem, resultRef string) {
	err := inv.st.MarkItemComplete(item.ID, inv.id, resultRef)
	if errors.Is(err, store.ErrLeaseLost) {
		// Someone reclaimed the item while we were rendering. The result is
		// discarded; whoever owns the item now will render it again.
		log.Printf("[worker %s] Lost lease on item %d, discarding result", inv.id, item.ID)
		return
	}
	if err != nil {
		log.Printf("[worker %s] Failed to mark item %d complete: %v", inv.id, item.ID, err)
		return
	}
	if err := inv.st.IncrementJobDone(inv.jobID); err != nil {
		log.Printf("[worker %s] Failed to increment done counter for job %s: %v", inv.id, inv.jobID, err)
	}
	inv.recordProcessed(item.ID)
	inv.sendItemUpdate(item.ID, string(models.ItemStatusComplete), "Render finished")
}

func (inv *Invocation) settleFailed(item *models.WorkItem, attempts int, cause error) {
	msg := fmt.Sprintf("Render failed after %d attempt(s): %v", attempts, cause)
	err := inv.st.MarkItemFailed(item.ID, inv.id, msg)
	if errors.Is(err, store.ErrLeaseLost) {
		log.Printf("[worker %s] Lost lease on item %d while failing it", inv.id, item.ID)
		return
	}
	if err != nil {
		log.Printf("[worker %s] Failed to mark item %d failed: %v", inv.id, item.ID, err)
		return
	}
	if err := inv.st.IncrementJobFailed(inv.jobID); err != nil {
		log.Printf("[worker %s] Failed to increment failed counter for job %s: %v", inv.id, inv.jobID, err)
	}
	inv.recordProcessed(item.ID)
	inv.sendItemUpdate(item.ID, string(models.ItemStatusFailed), msg)
}

// jobInterrupted reports whether the job was paused or canceled externally.
func (inv *Invocation) jobInterrupted() bool {
	job, err := inv.st.GetJob(inv.jobID)
	if err != nil {
		return false
	}
	return job.Status == models.JobStatusPaused || job.Status == models.JobStatusCanceled
}

// heartbeat recomputes item counts, writes them into the job's progress
// fields and broadcasts the update. This is the only liveness signal
// external observers see.
func (inv *Invocation) heartbeat() {
	counts, err := inv.st.CountItemsByStatus(inv.jobID)
	if err != nil {
		log.Printf("[worker %s] Heartbeat count failed for job %s: %v", inv.id, inv.jobID, err)
		return
	}
	if err := inv.st.WriteHeartbeat(inv.jobID, counts); err != nil {
		log.Printf("[worker %s] Heartbeat write failed for job %s: %v", inv.id, inv.jobID, err)
		return
	}
	inv.sendJobUpdate(counts, string(models.JobStatusRunning), false)
}

func (inv *Invocation) reclaimStale() {
	cutoff := time.Now().Add(-inv.opts.StaleAfter)
	reclaimed, err := inv.st.ReclaimJobItems(inv.jobID, cutoff)
	if err != nil {
		log.Printf("[worker %s] Stale claim reclamation failed for job %s: %v", inv.id, inv.jobID, err)
		return
	}
	if reclaimed > 0 {
		log.Printf("[worker %s] Reclaimed %d stale item(s) for job %s", inv.id, reclaimed, inv.jobID)
	}
}

// finalize settles the job once every item has reached a final status.
func (inv *Invocation) finalize(counts models.ItemCounts) (*models.ContinuationToken, error) {
	status := models.JobStatusCompleted
	message := "All items rendered"
	switch {
	case counts.Complete == 0 && counts.Failed > 0:
		status = models.JobStatusFailed
		message = fmt.Sprintf("All %d item(s) failed", counts.Failed)
	case counts.Failed > 0:
		message = fmt.Sprintf("Finished with %d failed item(s)", counts.Failed)
	}

	if err := inv.st.WriteHeartbeat(inv.jobID, counts); err != nil {
		return nil, err
	}
	if err := inv.st.FinalizeJob(inv.jobID, status, message); err != nil {
		return nil, fmt.Errorf("failed to finalize job %s: %w", inv.jobID, err)
	}
	inv.sendJobUpdate(counts, string(status), true)
	log.Printf("[worker %s] Job %s finished: %s", inv.id, inv.jobID, message)
	return nil, nil
}

// continueLater persists the continuation token so a successor invocation
// can pick up where this one stops.
func (inv *Invocation) continueLater() (*models.ContinuationToken, error) {
	inv.heartbeat()
	token := &models.ContinuationToken{ProcessedIDs: inv.processedIDs()}
	raw, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to encode continuation for job %s: %w", inv.jobID, err)
	}
	encoded := string(raw)
	if err := inv.st.SetContinuation(inv.jobID, &encoded); err != nil {
		return nil, fmt.Errorf("failed to persist continuation for job %s: %w", inv.jobID, err)
	}
	log.Printf("[worker %s] Budget exhausted for job %s, handing off %d settled item(s)", inv.id, inv.jobID, len(token.ProcessedIDs))
	return token, nil
}

func (inv *Invocation) recordProcessed(id int64) {
	inv.mu.Lock()
	inv.processed = append(inv.processed, id)
	inv.mu.Unlock()
}

func (inv *Invocation) processedIDs() []int64 {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]int64, len(inv.processed))
	copy(out, inv.processed)
	return out
}

func (inv *Invocation) sendJobUpdate(counts models.ItemCounts, status string, done bool) {
	if inv.hub == nil {
		return
	}
	progress := 0.0
	if counts.Total() > 0 {
		progress = float64(counts.Settled()) / float64(counts.Total()) * 100
	}
	inv.hub.BroadcastJSON(models.ProgressUpdate{
		JobID:    inv.jobID,
		Message:  fmt.Sprintf("%d of %d items settled", counts.Settled(), counts.Total()),
		Progress: progress,
		Status:   status,
		Done:     done,
	})
}

func (inv *Invocation) sendItemUpdate(itemID int64, status, message string) {
	if inv.hub == nil {
		return
	}
	inv.hub.BroadcastJSON(models.ProgressUpdate{
		JobID:   inv.jobID,
		ItemID:  itemID,
		Status:  status,
		Message: message,
	})
}
