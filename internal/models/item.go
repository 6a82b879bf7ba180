package models

import "time"

// ItemStatus is the lifecycle state of a single work item.
// Legal moves: queued -> running -> complete | failed, and running -> queued
// when a stale claim is reclaimed or a paused job releases its in-flight work.
type ItemStatus string

const (
	ItemStatusQueued   ItemStatus = "queued"
	ItemStatusRunning  ItemStatus = "running"
	ItemStatusComplete ItemStatus = "complete"
	ItemStatusFailed   ItemStatus = "failed"
)

// WorkItem is one indivisible unit of work within a job, e.g. one image to
// generate. While status is "running", ClaimedBy holds the uuid of the worker
// invocation that owns it and ClaimedAt acts as the lease timestamp that the
// stale-claim reclaimer checks against.
type WorkItem struct {
	ID           int64      `json:"id"`
	JobID        string     `json:"job_id"`
	Status       ItemStatus `json:"status"`
	Payload      string     `json:"payload"` // JSON reference to the input, opaque to the engine loop
	ResultRef    string     `json:"result_ref,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ClaimedBy    string     `json:"claimed_by,omitempty"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ItemCounts is a snapshot of a job's items grouped by status, written into
// the job's progress fields on every heartbeat.
type ItemCounts struct {
	Queued   int `json:"queued"`
	Running  int `json:"running"`
	Complete int `json:"complete"`
	Failed   int `json:"failed"`
}

// Total returns the number of items across all statuses.
func (c ItemCounts) Total() int {
	return c.Queued + c.Running + c.Complete + c.Failed
}

// Settled returns the number of items that reached a final status.
func (c ItemCounts) Settled() int {
	return c.Complete + c.Failed
}
