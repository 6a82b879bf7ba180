package worker

import (
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/config"
)

// Options bundles the tunables of a time-boxed worker invocation. The budget
// must sit safely below the host's hard kill timeout; the stale threshold
// must exceed the slowest legitimate single render; the heartbeat interval
// must be comfortably smaller than the observer-side stall threshold.
type Options struct {
	Budget            time.Duration // wall-clock budget per invocation
	Margin            time.Duration // stop claiming this long before the budget
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration // running items with older claims are reclaimed
	Concurrency       int           // concurrent renders per invocation
	ClaimBatch        int           // queued items claimed per fetch
	MaxAttempts       int
	RetryBase         time.Duration
	RateLimitBase     time.Duration
}

// OptionsFromConfig builds worker options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Budget:            time.Duration(cfg.Worker.BudgetSeconds) * time.Second,
		Margin:            time.Duration(cfg.Worker.MarginSeconds) * time.Second,
		HeartbeatInterval: time.Duration(cfg.Worker.HeartbeatSeconds) * time.Second,
		StaleAfter:        time.Duration(cfg.Worker.StaleAfterSeconds) * time.Second,
		Concurrency:       cfg.Worker.Concurrency,
		ClaimBatch:        cfg.Worker.ClaimBatch,
		MaxAttempts:       cfg.Worker.MaxAttempts,
		RetryBase:         time.Duration(cfg.Worker.RetryBaseMs) * time.Millisecond,
		RateLimitBase:     time.Duration(cfg.Worker.RateLimitBaseMs) * time.Millisecond,
	}
}

// withDefaults fills zero values so a partially constructed Options (common
// in tests) still produces a working loop.
func (o Options) withDefaults() Options {
	if o.Budget <= 0 {
		o.Budget = 50 * time.Second
	}
	if o.Margin <= 0 {
		o.Margin = 5 * time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 10 * time.Second
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 90 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.ClaimBatch <= 0 {
		o.ClaimBatch = o.Concurrency
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 2 * time.Second
	}
	if o.RateLimitBase <= 0 {
		o.RateLimitBase = 5 * time.Second
	}
	return o
}
