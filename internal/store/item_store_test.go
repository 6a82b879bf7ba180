package store_test

import (
	"testing"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedItems(t *testing.T, s *store.Store, job *models.Job, n int) []*models.WorkItem {
	t.Helper()
	payloads := make([]string, n)
	for i := range payloads {
		payloads[i] = `{"image":"look_` + string(rune('a'+i)) + `.png"}`
	}
	require.NoError(t, s.CreateWorkItems(job.ID, payloads))
	items, err := s.ListWorkItemsByJob(job.ID)
	require.NoError(t, err)
	require.Len(t, items, n)
	return items
}

func TestCreateAndListWorkItems(t *testing.T) {
	s, _ := newTestStore(t)
	job := newTestJob(t, s, 3)
	items := seedItems(t, s, job, 3)

	for _, item := range items {
		assert.Equal(t, job.ID, item.JobID)
		assert.Equal(t, models.ItemStatusQueued, item.Status)
		assert.Empty(t, item.ClaimedBy)
		assert.Nil(t, item.ClaimedAt)
	}

	counts, err := s.CountItemsByStatus(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemCounts{Queued: 3}, counts)
	assert.Equal(t, 3, counts.Total())
	assert.Zero(t, counts.Settled())
}

func TestClaimQueuedItems(t *testing.T) {
	s, _ := newTestStore(t)
	job := newTestJob(t, s, 5)
	seedItems(t, s, job, 5)

	claimed, err := s.ClaimQueuedItems(job.ID, "inv-1", 3, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 3)
	for _, item := range claimed {
		assert.Equal(t, models.ItemStatusRunning, item.Status)
		assert.Equal(t, "inv-1", item.ClaimedBy)
		require.NotNil(t, item.ClaimedAt)
	}

	// A second claimer only sees what is left.
	rest, err := s.ClaimQueuedItems(job.ID, "inv-2", 10, nil)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	empty, err := s.ClaimQueuedItems(job.ID, "inv-3", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClaimQueuedItemsHonorsExcludeList(t *testing.T) {
	s, _ := newTestStore(t)
	job := newTestJob(t, s, 3)
	items := seedItems(t, s, job, 3)

	claimed, err := s.ClaimQueuedItems(job.ID, "inv-1", 10, []int64{items[0].ID, items[2].ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, items[1].ID, claimed[0].ID)
}

func TestSettleRequiresLease(t *testing.T) {
	s, _ := newTestStore(t)
	job := newTestJob(t, s, 2)
	seedItems(t, s, job, 2)

	claimed, err := s.ClaimQueuedItems(job.ID, "inv-1", 2, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	// The owner settles normally.
	require.NoError(t, s.MarkItemComplete(claimed[0].ID, "inv-1", "render/1.png"))
	got, err := s.GetWorkItem(claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusComplete, got.Status)
	assert.Equal(t, "render/1.png", got.ResultRef)
	assert.Empty(t, got.ClaimedBy)

	// A stranger holding a stale copy of the item cannot.
	assert.ErrorIs(t, s.MarkItemComplete(claimed[1].ID, "inv-0", "render/2.png"), store.ErrLeaseLost)
	assert.ErrorIs(t, s.MarkItemFailed(claimed[1].ID, "inv-0", "boom"), store.ErrLeaseLost)

	require.NoError(t, s.MarkItemFailed(claimed[1].ID, "inv-1", "engine exploded"))
	got, err = s.GetWorkItem(claimed[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusFailed, got.Status)
	assert.Equal(t, "engine exploded", got.ErrorMessage)

	// Settling twice also reports a lost lease.
	assert.ErrorIs(t, s.MarkItemComplete(claimed[0].ID, "inv-1", "render/1.png"), store.ErrLeaseLost)
}

func TestReleaseItem(t *testing.T) {
	s, _ := newTestStore(t)
	job := newTestJob(t, s, 1)
	seedItems(t, s, job, 1)

	claimed, err := s.ClaimQueuedItems(job.ID, "inv-1", 1, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, s.ReleaseItem(claimed[0].ID, "inv-1"))
	got, err := s.GetWorkItem(claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusQueued, got.Status)
	assert.Empty(t, got.ClaimedBy)
	assert.Nil(t, got.ClaimedAt)
}

func TestReclaimStaleItems(t *testing.T) {
	s, database := newTestStore(t)
	job := newTestJob(t, s, 3)
	items := seedItems(t, s, job, 3)

	claimed, err := s.ClaimQueuedItems(job.ID, "dead-invocation", 2, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	// Backdate one claim past the stale threshold, keep the other fresh.
	stale := time.Now().Add(-10 * time.Minute)
	_, err = database.Exec("UPDATE work_items SET claimed_at = ? WHERE id = ?", stale, claimed[0].ID)
	require.NoError(t, err)

	n, err := s.ReclaimStaleItems(time.Now().Add(-90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	reclaimed, err := s.GetWorkItem(claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusQueued, reclaimed.Status)
	assert.Empty(t, reclaimed.ClaimedBy)

	fresh, err := s.GetWorkItem(claimed[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusRunning, fresh.Status, "a live claim must not be reclaimed")

	untouched, err := s.GetWorkItem(items[2].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusQueued, untouched.Status)
}

func TestReclaimJobItemsIsScopedToJob(t *testing.T) {
	s, database := newTestStore(t)
	jobA := newTestJob(t, s, 1)
	jobB := newTestJob(t, s, 1)
	seedItems(t, s, jobA, 1)
	seedItems(t, s, jobB, 1)

	claimedA, err := s.ClaimQueuedItems(jobA.ID, "dead", 1, nil)
	require.NoError(t, err)
	claimedB, err := s.ClaimQueuedItems(jobB.ID, "dead", 1, nil)
	require.NoError(t, err)

	stale := time.Now().Add(-10 * time.Minute)
	_, err = database.Exec("UPDATE work_items SET claimed_at = ?", stale)
	require.NoError(t, err)

	n, err := s.ReclaimJobItems(jobA.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	itemA, err := s.GetWorkItem(claimedA[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusQueued, itemA.Status)

	itemB, err := s.GetWorkItem(claimedB[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusRunning, itemB.Status)
}

func TestRetryFailedItems(t *testing.T) {
	s, _ := newTestStore(t)
	job := newTestJob(t, s, 3)
	seedItems(t, s, job, 3)

	claimed, err := s.ClaimQueuedItems(job.ID, "inv-1", 3, nil)
	require.NoError(t, err)
	require.NoError(t, s.MarkItemComplete(claimed[0].ID, "inv-1", "ok"))
	require.NoError(t, s.MarkItemFailed(claimed[1].ID, "inv-1", "rate limited"))
	require.NoError(t, s.MarkItemFailed(claimed[2].ID, "inv-1", "rate limited"))

	n, err := s.RetryFailedItems(job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := s.CountItemsByStatus(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemCounts{Queued: 2, Complete: 1}, counts)

	requeued, err := s.GetWorkItem(claimed[1].ID)
	require.NoError(t, err)
	assert.Empty(t, requeued.ErrorMessage)
}

func TestRetryFailedItem(t *testing.T) {
	s, _ := newTestStore(t)
	job := newTestJob(t, s, 2)
	seedItems(t, s, job, 2)

	claimed, err := s.ClaimQueuedItems(job.ID, "inv-1", 2, nil)
	require.NoError(t, err)
	require.NoError(t, s.MarkItemComplete(claimed[0].ID, "inv-1", "ok"))
	require.NoError(t, s.MarkItemFailed(claimed[1].ID, "inv-1", "boom"))

	// Retrying a completed item is refused.
	assert.Error(t, s.RetryFailedItem(claimed[0].ID))

	require.NoError(t, s.RetryFailedItem(claimed[1].ID))
	got, err := s.GetWorkItem(claimed[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusQueued, got.Status)
}
