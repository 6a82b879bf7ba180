package api

import (
	"encoding/json"
	"net/http"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
)

// WorkerRunPayload is the launch/continuation entry point's body. The
// continuation field is set when a budget-exhausted invocation re-invokes
// itself through the host.
type WorkerRunPayload struct {
	JobID        string                    `json:"job_id"`
	Continuation *models.ContinuationToken `json:"continuation,omitempty"`
}

// handleRunWorker dispatches a time-boxed worker invocation and returns
// immediately. The response never waits for the invocation: the whole point
// of the chain is that each HTTP exchange stays far below the host's kill
// timeout.
func (s *Server) handleRunWorker(w http.ResponseWriter, r *http.Request) {
	var payload WorkerRunPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.JobID == "" {
		RespondWithError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	if err := s.launcher.Start(payload.JobID, payload.Continuation); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error()) // 409 Conflict if an invocation is already live
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": "Worker invocation for job '" + payload.JobID + "' accepted.",
	})
}
