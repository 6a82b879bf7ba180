package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/api"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/core"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator/forgeapi"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator/mockforge"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/store"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/watch"
)

var version = "dev"

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize the core application components
	app, err := core.New(version)
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	// Register all available render engines here.
	generator.Register(forgeapi.New(app.Config.Engine.BaseURL))
	generator.Register(mockforge.New())

	// Setup the API server (which owns the worker launcher)
	server := api.NewServer(app)

	// Jobs interrupted by a previous shutdown show up as stalled; a single
	// reclamation pass on boot puts their orphaned items straight back in
	// the queue so a resume does not have to wait for the sweep.
	st := store.New(app.DB)
	staleCutoff := time.Now().Add(-time.Duration(app.Config.Worker.StaleAfterSeconds) * time.Second)
	if reclaimed, err := st.ReclaimStaleItems(staleCutoff); err != nil {
		log.Printf("Warning: startup reclamation failed: %v", err)
	} else if reclaimed > 0 {
		log.Printf("Startup reclamation returned %d orphaned item(s) to the queue", reclaimed)
	}

	// Start the stall watch sweep
	watchService := watch.NewService(st, app.WsHub, app.Config)
	watchService.Start()
	defer watchService.Stop()

	addr := fmt.Sprintf(":%d", app.Config.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}
	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		log.Printf("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	// Wait for an interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited.")
}
