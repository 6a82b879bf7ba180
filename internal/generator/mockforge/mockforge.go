// A mock engine for development and testing purposes. It simulates renders
// without making network calls and can be scripted to fail in specific ways.
package mockforge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
)

// Outcome scripts how the engine treats renders for a given payload.
type Outcome struct {
	// FailuresBeforeSuccess renders fail with Kind this many times, then
	// succeed. Negative means fail forever.
	FailuresBeforeSuccess int
	Kind                  generator.ErrorKind
	Delay                 time.Duration
}

type MockForgeEngine struct {
	mu       sync.Mutex
	outcomes map[string]*Outcome
	attempts map[string]int
	rendered []string
}

func New() *MockForgeEngine {
	return &MockForgeEngine{
		outcomes: make(map[string]*Outcome),
		attempts: make(map[string]int),
	}
}

func (e *MockForgeEngine) GetInfo() models.EngineInfo {
	return models.EngineInfo{
		ID:   "mockforge",
		Name: "Mockforge",
	}
}

// Script sets the outcome for renders whose payload equals the given string.
// Payloads without a script always succeed.
func (e *MockForgeEngine) Script(payload string, outcome Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcomes[payload] = &outcome
}

// Attempts reports how many times the given payload has been rendered.
func (e *MockForgeEngine) Attempts(payload string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts[payload]
}

// Rendered returns the payloads that rendered successfully, in order.
func (e *MockForgeEngine) Rendered() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.rendered))
	copy(out, e.rendered)
	return out
}

func (e *MockForgeEngine) Render(ctx context.Context, req models.RenderRequest) (string, error) {
	e.mu.Lock()
	e.attempts[req.Payload]++
	attempt := e.attempts[req.Payload]
	outcome := e.outcomes[req.Payload]
	e.mu.Unlock()

	if outcome != nil && outcome.Delay > 0 {
		select {
		case <-time.After(outcome.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if outcome != nil && (outcome.FailuresBeforeSuccess < 0 || attempt <= outcome.FailuresBeforeSuccess) {
		kind := outcome.Kind
		if kind == "" {
			kind = generator.KindTransient
		}
		return "", generator.NewRenderError(kind, fmt.Errorf("scripted failure %d for %q", attempt, req.Payload))
	}

	e.mu.Lock()
	e.rendered = append(e.rendered, req.Payload)
	e.mu.Unlock()
	return fmt.Sprintf("mock-result-%s-%d", req.Payload, attempt), nil
}
