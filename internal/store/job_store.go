package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
)

const jobColumns = `id, job_type, status, progress_total, progress_done, progress_failed,
	message, origin_context, continuation, supports_pause, supports_retry, supports_restart,
	started_at, completed_at, updated_at, created_at`

func scanJob(row interface{ Scan(...any) error }) (*models.Job, error) {
	var job models.Job
	var continuation sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&job.ID, &job.Type, &job.Status, &job.ProgressTotal, &job.ProgressDone, &job.ProgressFailed,
		&job.Message, &job.OriginContext, &continuation, &job.SupportsPause, &job.SupportsRetry, &job.SupportsRestart,
		&startedAt, &completedAt, &job.UpdatedAt, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if continuation.Valid {
		job.Continuation = &continuation.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}

// CreateJob inserts a new job record. CreatedAt and UpdatedAt are stamped
// here; the job starts in 'queued' unless the caller set something else.
func (s *Store) CreateJob(job *models.Job) error {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}
	_, err := s.db.Exec(`
        INSERT INTO jobs
        (id, job_type, status, progress_total, progress_done, progress_failed,
         message, origin_context, supports_pause, supports_retry, supports_restart,
         updated_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Type, job.Status, job.ProgressTotal, job.ProgressDone, job.ProgressFailed,
		job.Message, job.OriginContext, job.SupportsPause, job.SupportsRetry, job.SupportsRestart,
		job.UpdatedAt, job.CreatedAt,
	)
	return err
}

// GetJob retrieves a single job by ID.
func (s *Store) GetJob(id string) (*models.Job, error) {
	row := s.db.QueryRow("SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	return scanJob(row)
}

// ListJobs returns the most recently created jobs, newest first.
func (s *Store) ListJobs(limit int) ([]*models.Job, error) {
	rows, err := s.db.Query("SELECT "+jobColumns+" FROM jobs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListJobsByStatus returns all jobs currently in one of the given statuses.
func (s *Store) ListJobsByStatus(statuses ...models.JobStatus) ([]*models.Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(statuses)-1) + "?"
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = st
	}
	rows, err := s.db.Query("SELECT "+jobColumns+" FROM jobs WHERE status IN ("+placeholders+") ORDER BY created_at ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListJobsUpdatedSince returns jobs whose updated_at is at or after the given
// time, newest activity first.
func (s *Store) ListJobsUpdatedSince(t time.Time) ([]*models.Job, error) {
	rows, err := s.db.Query("SELECT "+jobColumns+" FROM jobs WHERE updated_at >= ? ORDER BY updated_at DESC", t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows *sql.Rows) ([]*models.Job, error) {
	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// legalSources lists which statuses a job may move to the target status from.
var legalSources = map[models.JobStatus][]models.JobStatus{
	models.JobStatusRunning:   {models.JobStatusQueued, models.JobStatusRunning, models.JobStatusPaused},
	models.JobStatusPaused:    {models.JobStatusRunning, models.JobStatusQueued},
	models.JobStatusCompleted: {models.JobStatusRunning},
	models.JobStatusFailed:    {models.JobStatusQueued, models.JobStatusRunning, models.JobStatusPaused},
	models.JobStatusCanceled:  {models.JobStatusQueued, models.JobStatusRunning, models.JobStatusPaused},
}

// UpdateJobStatus moves a job to the target status, refusing transitions that
// are not on a legal path. updated_at is refreshed so observers see the
// change.
func (s *Store) UpdateJobStatus(id string, status models.JobStatus, message string) error {
	sources, ok := legalSources[status]
	if !ok {
		return fmt.Errorf("no legal transition into status '%s'", status)
	}
	placeholders := strings.Repeat("?,", len(sources)-1) + "?"
	args := []any{status, message, time.Now(), id}
	for _, src := range sources {
		args = append(args, src)
	}
	result, err := s.db.Exec(
		"UPDATE jobs SET status = ?, message = ?, updated_at = ? WHERE id = ? AND status IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %s not found or cannot move to status '%s'", id, status)
	}
	return nil
}

// MarkJobRunning transitions a job to 'running' at the start of a worker
// invocation. It is idempotent: a job already running stays running and only
// gets its updated_at refreshed. Terminal jobs are not resurrected.
func (s *Store) MarkJobRunning(id string) error {
	now := time.Now()
	result, err := s.db.Exec(`
        UPDATE jobs SET status = ?, started_at = COALESCE(started_at, ?), updated_at = ?
        WHERE id = ? AND status IN (?, ?, ?)`,
		models.JobStatusRunning, now, now, id,
		models.JobStatusQueued, models.JobStatusRunning, models.JobStatusPaused,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %s not found or not startable", id)
	}
	return nil
}

// WriteHeartbeat stores the current item counts on the job's progress fields
// and refreshes updated_at. This is the liveness signal external observers
// rely on.
func (s *Store) WriteHeartbeat(id string, counts models.ItemCounts) error {
	_, err := s.db.Exec(`
        UPDATE jobs SET progress_total = ?, progress_done = ?, progress_failed = ?, updated_at = ?
        WHERE id = ?`,
		counts.Total(), counts.Complete, counts.Failed, time.Now(), id,
	)
	return err
}

// IncrementJobDone bumps progress_done by one in a single statement, so
// concurrent workers cannot lose updates.
func (s *Store) IncrementJobDone(id string) error {
	_, err := s.db.Exec(
		"UPDATE jobs SET progress_done = progress_done + 1, updated_at = ? WHERE id = ?",
		time.Now(), id,
	)
	return err
}

// IncrementJobFailed bumps progress_failed by one in a single statement.
func (s *Store) IncrementJobFailed(id string) error {
	_, err := s.db.Exec(
		"UPDATE jobs SET progress_failed = progress_failed + 1, updated_at = ? WHERE id = ?",
		time.Now(), id,
	)
	return err
}

// SetJobNote records an operational note on the job without refreshing
// updated_at, so the note never masks a stall from observers.
func (s *Store) SetJobNote(id string, message string) error {
	_, err := s.db.Exec("UPDATE jobs SET message = ? WHERE id = ?", message, id)
	return err
}

// SetContinuation persists the continuation token a time-boxed invocation
// hands to its successor. Pass nil to clear it.
func (s *Store) SetContinuation(id string, continuation *string) error {
	_, err := s.db.Exec(
		"UPDATE jobs SET continuation = ?, updated_at = ? WHERE id = ?",
		continuation, time.Now(), id,
	)
	return err
}

// FinalizeJob moves a job to its terminal status and stamps completed_at.
func (s *Store) FinalizeJob(id string, status models.JobStatus, message string) error {
	if err := s.UpdateJobStatus(id, status, message); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"UPDATE jobs SET completed_at = ?, continuation = NULL WHERE id = ?",
		time.Now(), id,
	)
	return err
}

// ReopenJob puts a finished job back into 'queued' so requeued items can be
// processed by a fresh worker chain. The continuation is cleared because the
// durable item statuses are the source of truth after a reopen.
func (s *Store) ReopenJob(id string) error {
	result, err := s.db.Exec(`
        UPDATE jobs SET status = ?, completed_at = NULL, continuation = NULL, message = 'Reopened for retry', updated_at = ?
        WHERE id = ? AND status IN (?, ?)`,
		models.JobStatusQueued, time.Now(), id,
		models.JobStatusCompleted, models.JobStatusFailed,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %s not found or not finished", id)
	}
	return nil
}

// MarkJobFailed is the administrative override behind the "mark failed"
// action on a stalled job: it forces status 'failed' from any non-terminal
// state and records the operator's reason.
func (s *Store) MarkJobFailed(id string, reason string) error {
	now := time.Now()
	result, err := s.db.Exec(`
        UPDATE jobs SET status = ?, message = ?, completed_at = ?, updated_at = ?, continuation = NULL
        WHERE id = ? AND status IN (?, ?, ?)`,
		models.JobStatusFailed, reason, now, now, id,
		models.JobStatusQueued, models.JobStatusRunning, models.JobStatusPaused,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %s not found or already finished", id)
	}
	return nil
}
