// A shared test server setup utility, which simplifies all API tests.

package testutil

import (
	"database/sql"
	"testing"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/api"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/config"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/core"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator/mockforge"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/websocket"
)

// SetupTestApp initializes a core.App backed by an in-memory database and a
// running websocket hub, with the mockforge engine registered.
func SetupTestApp(t *testing.T) (*core.App, *mockforge.MockForgeEngine) {
	t.Helper()
	database := SetupTestDB(t)

	cfg := testConfig()
	hub := websocket.NewHub()
	go hub.Run()
	app := &core.App{
		Config:  cfg,
		DB:      database,
		WsHub:   hub,
		Version: "test",
	}

	t.Cleanup(func() {
		generator.UnregisterAll()
	})

	// Register the scriptable engine for the test environment
	engine := mockforge.New()
	generator.Register(engine)
	return app, engine
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *sql.DB, *mockforge.MockForgeEngine) {
	t.Helper()
	app, engine := SetupTestApp(t)
	server := api.NewServer(app)
	return server, app.DB, engine
}

// testConfig mirrors the production defaults but with thresholds small
// enough that stall and budget behavior is observable inside a test run.
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Worker.BudgetSeconds = 50
	cfg.Worker.MarginSeconds = 5
	cfg.Worker.HeartbeatSeconds = 1
	cfg.Worker.StaleAfterSeconds = 90
	cfg.Worker.Concurrency = 2
	cfg.Worker.ClaimBatch = 3
	cfg.Worker.MaxAttempts = 3
	cfg.Worker.RetryBaseMs = 10
	cfg.Worker.RateLimitBaseMs = 20
	cfg.Watch.SweepSeconds = 1
	cfg.Watch.StallAfterSeconds = 120
	cfg.Watch.AbandonedAfterSeconds = 1800
	return cfg
}
