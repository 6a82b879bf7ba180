package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
)

const itemColumns = `id, job_id, status, payload, result_ref, error_message,
	claimed_by, claimed_at, created_at`

func scanItem(row interface{ Scan(...any) error }) (*models.WorkItem, error) {
	var item models.WorkItem
	var claimedAt sql.NullTime
	err := row.Scan(
		&item.ID, &item.JobID, &item.Status, &item.Payload, &item.ResultRef, &item.ErrorMessage,
		&item.ClaimedBy, &claimedAt, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if claimedAt.Valid {
		item.ClaimedAt = &claimedAt.Time
	}
	return &item, nil
}

// CreateWorkItems adds the work items of a batch in a single transaction.
func (s *Store) CreateWorkItems(jobID string, payloads []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
        INSERT INTO work_items (job_id, status, payload, created_at)
        VALUES (?, ?, ?, ?)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, payload := range payloads {
		if _, err := stmt.Exec(jobID, models.ItemStatusQueued, payload, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetWorkItem retrieves a single work item by ID.
func (s *Store) GetWorkItem(id int64) (*models.WorkItem, error) {
	row := s.db.QueryRow("SELECT "+itemColumns+" FROM work_items WHERE id = ?", id)
	return scanItem(row)
}

// ListWorkItemsByJob returns all items belonging to a job in creation order.
func (s *Store) ListWorkItemsByJob(jobID string) ([]*models.WorkItem, error) {
	rows, err := s.db.Query("SELECT "+itemColumns+" FROM work_items WHERE job_id = ? ORDER BY id ASC", jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountItemsByStatus groups a job's items by status. The worker writes these
// counts into the job record on every heartbeat.
func (s *Store) CountItemsByStatus(jobID string) (models.ItemCounts, error) {
	var counts models.ItemCounts
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM work_items WHERE job_id = ? GROUP BY status", jobID)
	if err != nil {
		return counts, err
	}
	defer rows.Close()

	for rows.Next() {
		var status models.ItemStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, err
		}
		switch status {
		case models.ItemStatusQueued:
			counts.Queued = n
		case models.ItemStatusRunning:
			counts.Running = n
		case models.ItemStatusComplete:
			counts.Complete = n
		case models.ItemStatusFailed:
			counts.Failed = n
		}
	}
	return counts, rows.Err()
}

// ClaimQueuedItems atomically moves up to limit queued items of a job to
// 'running', stamping the claiming invocation's ID and the claim time as the
// lease. Items listed in excludeIDs are never claimed; a successor invocation
// passes the continuation's processed IDs here so it cannot pick up work its
// predecessor already settled.
func (s *Store) ClaimQueuedItems(jobID, claimedBy string, limit int, excludeIDs []int64) ([]*models.WorkItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := "SELECT id FROM work_items WHERE job_id = ? AND status = ?"
	args := []any{jobID, models.ItemStatusQueued}
	if len(excludeIDs) > 0 {
		query += " AND id NOT IN (" + strings.Repeat("?,", len(excludeIDs)-1) + "?)"
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	var claimed []int64
	for _, id := range ids {
		// The status guard means an item claimed by a racing invocation
		// between our select and this update is simply skipped.
		result, err := tx.Exec(
			"UPDATE work_items SET status = ?, claimed_by = ?, claimed_at = ? WHERE id = ? AND status = ?",
			models.ItemStatusRunning, claimedBy, now, id, models.ItemStatusQueued,
		)
		if err != nil {
			return nil, err
		}
		if affected, _ := result.RowsAffected(); affected > 0 {
			claimed = append(claimed, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	var items []*models.WorkItem
	for _, id := range claimed {
		item, err := s.GetWorkItem(id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// MarkItemComplete settles an item successfully. The lease is checked: only
// the invocation that claimed the item may complete it, so a reclaimed item
// cannot be double-counted by its previous owner.
func (s *Store) MarkItemComplete(id int64, claimedBy, resultRef string) error {
	result, err := s.db.Exec(`
        UPDATE work_items SET status = ?, result_ref = ?, error_message = '', claimed_by = '', claimed_at = NULL
        WHERE id = ? AND status = ? AND claimed_by = ?`,
		models.ItemStatusComplete, resultRef, id, models.ItemStatusRunning, claimedBy,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLeaseLost
	}
	return nil
}

// MarkItemFailed settles an item as failed, recording the error text. Lease
// checked like MarkItemComplete.
func (s *Store) MarkItemFailed(id int64, claimedBy, errorMessage string) error {
	result, err := s.db.Exec(`
        UPDATE work_items SET status = ?, error_message = ?, claimed_by = '', claimed_at = NULL
        WHERE id = ? AND status = ? AND claimed_by = ?`,
		models.ItemStatusFailed, errorMessage, id, models.ItemStatusRunning, claimedBy,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLeaseLost
	}
	return nil
}

// ReleaseItem puts a running item back to 'queued' without touching the
// counters. Used when a paused or canceled job abandons an attempt so a
// future resume can retry the item.
func (s *Store) ReleaseItem(id int64, claimedBy string) error {
	_, err := s.db.Exec(`
        UPDATE work_items SET status = ?, claimed_by = '', claimed_at = NULL
        WHERE id = ? AND status = ? AND claimed_by = ?`,
		models.ItemStatusQueued, id, models.ItemStatusRunning, claimedBy,
	)
	return err
}

// ReclaimStaleItems resets running items whose claim is older than the given
// cutoff back to 'queued', across all jobs. This recovers items abandoned by
// an invocation that was killed or lost its network mid-item. Returns the
// number of items reclaimed.
func (s *Store) ReclaimStaleItems(olderThan time.Time) (int64, error) {
	result, err := s.db.Exec(`
        UPDATE work_items SET status = ?, claimed_by = '', claimed_at = NULL
        WHERE status = ? AND claimed_at < ?`,
		models.ItemStatusQueued, models.ItemStatusRunning, olderThan,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReclaimJobItems is the per-job variant used on worker entry and by the
// human-triggered resume action.
func (s *Store) ReclaimJobItems(jobID string, olderThan time.Time) (int64, error) {
	result, err := s.db.Exec(`
        UPDATE work_items SET status = ?, claimed_by = '', claimed_at = NULL
        WHERE job_id = ? AND status = ? AND claimed_at < ?`,
		models.ItemStatusQueued, jobID, models.ItemStatusRunning, olderThan,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RetryFailedItems puts a job's failed items back to 'queued' so a resumed
// worker can attempt them again. The job's failed counter is rebuilt from
// item counts on the next heartbeat.
func (s *Store) RetryFailedItems(jobID string) (int64, error) {
	result, err := s.db.Exec(`
        UPDATE work_items SET status = ?, error_message = '' WHERE job_id = ? AND status = ?`,
		models.ItemStatusQueued, jobID, models.ItemStatusFailed,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RetryFailedItem retries a single failed item.
func (s *Store) RetryFailedItem(id int64) error {
	result, err := s.db.Exec(`
        UPDATE work_items SET status = ?, error_message = '' WHERE id = ? AND status = ?`,
		models.ItemStatusQueued, id, models.ItemStatusFailed,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("work item with ID %d not found or not in failed status", id)
	}
	return nil
}
