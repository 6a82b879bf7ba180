package models

import "time"

// JobType identifies the kind of generation batch a job drives.
type JobType string

const (
	JobTypeFaceApply   JobType = "face_apply"
	JobTypeClayConvert JobType = "clay_convert"
	JobTypePoseRegen   JobType = "pose_regen"
)

// JobStatus is the lifecycle state of a batch job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether a job in this status will never be mutated by a
// worker again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCanceled
}

// Job is the durable record of a generation batch. Progress counters are
// aggregates over the job's work items; updated_at is refreshed on every
// counter or status change and is the only liveness signal observers see.
type Job struct {
	ID              string     `json:"id"`
	Type            JobType    `json:"type"`
	Status          JobStatus  `json:"status"`
	ProgressTotal   int        `json:"progress_total"`
	ProgressDone    int        `json:"progress_done"`
	ProgressFailed  int        `json:"progress_failed"`
	Message         string     `json:"message,omitempty"`
	OriginContext   string     `json:"origin_context,omitempty"` // JSON, typed per job type
	Continuation    *string    `json:"continuation,omitempty"`   // JSON, set between time-boxed invocations
	SupportsPause   bool       `json:"supports_pause"`
	SupportsRetry   bool       `json:"supports_retry"`
	SupportsRestart bool       `json:"supports_restart"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Continuation carries the state handed from one time-boxed worker invocation
// to its self-triggered successor. The durable item statuses are the source
// of truth; ProcessedIDs exists so a successor can skip already-settled items
// without re-reading each one.
type ContinuationToken struct {
	ProcessedIDs []int64 `json:"processed_ids"`
}
