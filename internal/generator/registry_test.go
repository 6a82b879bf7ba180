package generator_test

import (
	"context"
	"testing"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	id string
}

func (e *fakeEngine) GetInfo() models.EngineInfo {
	return models.EngineInfo{ID: e.id, Name: "Fake " + e.id}
}

func (e *fakeEngine) Render(ctx context.Context, req models.RenderRequest) (string, error) {
	return "fake-result", nil
}

func TestRegistry(t *testing.T) {
	t.Cleanup(generator.UnregisterAll)
	generator.UnregisterAll()

	generator.Register(&fakeEngine{id: "alpha"})
	generator.Register(&fakeEngine{id: "beta"})

	engine, ok := generator.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", engine.GetInfo().ID)

	_, ok = generator.Get("missing")
	assert.False(t, ok)

	infos := generator.GetAll()
	assert.Len(t, infos, 2)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	t.Cleanup(generator.UnregisterAll)
	generator.UnregisterAll()

	generator.Register(&fakeEngine{id: "alpha"})
	assert.Panics(t, func() {
		generator.Register(&fakeEngine{id: "alpha"})
	})
}
