// A handler file for all job-related API endpoints.

package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/watch"
)

// JobCreatePayload is the expected structure for creating a generation batch.
type JobCreatePayload struct {
	Type          models.JobType    `json:"type"`
	OriginContext json.RawMessage   `json:"origin_context"`
	Items         []json.RawMessage `json:"items"`
	Start         bool              `json:"start"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var payload JobCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(payload.Items) == 0 {
		RespondWithError(w, http.StatusBadRequest, "No items provided for the batch")
		return
	}

	// Decoding through the typed registry validates both the job type and
	// the shape of its resume parameters up front.
	octx, err := models.DecodeOriginContext(payload.Type, string(payload.OriginContext))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	encoded, err := models.EncodeOriginContext(octx)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to encode origin context")
		return
	}

	job := &models.Job{
		ID:            uuid.NewString(),
		Type:          payload.Type,
		Status:        models.JobStatusQueued,
		ProgressTotal: len(payload.Items),
		OriginContext: encoded,
		SupportsPause: true,
		SupportsRetry: true,
	}
	if err := s.store.CreateJob(job); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	payloads := make([]string, len(payload.Items))
	for i, item := range payload.Items {
		payloads[i] = string(item)
	}
	if err := s.store.CreateWorkItems(job.ID, payloads); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create work items")
		return
	}

	if payload.Start {
		if err := s.launcher.Start(job.ID, nil); err != nil {
			RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
	}

	RespondWithJSON(w, http.StatusCreated, job)
}

// jobView decorates a job record with the observer-side stall computation so
// the UI never shows a silently dead progress bar as merely "running".
type jobView struct {
	*models.Job
	IsStalled   bool `json:"is_stalled"`
	IsAbandoned bool `json:"is_abandoned"`
}

func (s *Server) jobView(job *models.Job) jobView {
	now := time.Now()
	stallAfter := time.Duration(s.app.Config.Watch.StallAfterSeconds) * time.Second
	abandonedAfter := time.Duration(s.app.Config.Watch.AbandonedAfterSeconds) * time.Second
	return jobView{
		Job:         job,
		IsStalled:   watch.IsStalled(job, now, stallAfter),
		IsAbandoned: watch.IsAbandoned(job, now, abandonedAfter),
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	jobs, err := s.store.ListJobs(limit)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve jobs")
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, s.jobView(job))
	}
	RespondWithJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.store.GetJob(jobID)
	if err == sql.ErrNoRows {
		RespondWithError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve job")
		return
	}
	RespondWithJSON(w, http.StatusOK, s.jobView(job))
}

func (s *Server) handleListJobItems(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	items, err := s.store.ListWorkItemsByJob(jobID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve work items")
		return
	}
	RespondWithJSON(w, http.StatusOK, items)
}

func (s *Server) handleJobAction(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	var payload struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var err error
	switch payload.Action {
	case "pause":
		err = s.store.UpdateJobStatus(jobID, models.JobStatusPaused, "Paused by user")
	case "cancel":
		err = s.store.UpdateJobStatus(jobID, models.JobStatusCanceled, "Canceled by user")
	case "resume":
		err = watch.Resume(s.store, s.launcher, jobID)
	case "mark_failed":
		err = watch.MarkFailed(s.store, jobID, payload.Reason)
	case "retry_failed":
		err = s.retryFailedItems(jobID)
	default:
		RespondWithError(w, http.StatusBadRequest, "Invalid action")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// retryFailedItems requeues a job's failed items and, for a job that already
// finished, reopens it and relaunches the worker.
func (s *Server) retryFailedItems(jobID string) error {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if !job.SupportsRetry {
		return fmt.Errorf("job %s does not support retry", jobID)
	}
	requeued, err := s.store.RetryFailedItems(jobID)
	if err != nil {
		return err
	}
	if requeued == 0 {
		return fmt.Errorf("job %s has no failed items", jobID)
	}
	if job.Status.Terminal() {
		if err := s.store.ReopenJob(jobID); err != nil {
			return err
		}
		return s.launcher.Start(jobID, nil)
	}
	return nil
}

func (s *Server) handleRetryItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}
	if err := s.store.RetryFailedItem(itemID); err != nil {
		RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
