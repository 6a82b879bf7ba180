package api

import (
	"net/http"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/progress"
)

func (s *Server) handleProgressOverview(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobsByStatus(models.JobStatusRunning, models.JobStatusQueued)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve active jobs")
		return
	}
	RespondWithJSON(w, http.StatusOK, progress.Summarize(jobs))
}

func (s *Server) handleProgressRecent(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	window := 24 * time.Hour
	jobs, err := s.store.ListJobsUpdatedSince(now.Add(-window))
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve recent jobs")
		return
	}
	views := make([]jobView, 0)
	for _, job := range progress.Recent(jobs, now, window) {
		views = append(views, s.jobView(job))
	}
	RespondWithJSON(w, http.StatusOK, views)
}

func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, generator.GetAll())
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version})
}
