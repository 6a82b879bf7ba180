// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/core"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/store"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/worker"
)

// Server holds the dependencies for our API.
type Server struct {
	app      *core.App
	db       *sql.DB
	store    *store.Store
	launcher *worker.Launcher
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	storeInstance := store.New(app.DB)
	return &Server{
		app:      app,
		db:       app.DB,
		store:    storeInstance,
		launcher: worker.NewLauncher(storeInstance, app.WsHub, worker.OptionsFromConfig(app.Config)),
	}
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// Launcher returns the worker launcher.
func (s *Server) Launcher() *worker.Launcher {
	return s.launcher
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/version", s.handleGetVersion)

	r.Route("/api", func(r chi.Router) {
		// Job Routes
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Get("/jobs/{jobID}/items", s.handleListJobItems)
		r.Post("/jobs/{jobID}/action", s.handleJobAction)
		r.Post("/jobs/{jobID}/items/{itemID}/retry", s.handleRetryItem)

		// Worker launch / continuation entry point
		r.Post("/worker/run", s.handleRunWorker)

		// Fleet progress projection
		r.Get("/progress/overview", s.handleProgressOverview)
		r.Get("/progress/recent", s.handleProgressRecent)

		// Engine Routes
		r.Get("/engines", s.handleListEngines)
	})

	// WebSocket route
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub.ServeWs(w, r)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
