package mockforge_test

import (
	"context"
	"testing"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator/mockforge"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnscriptedPayloadsSucceed(t *testing.T) {
	engine := mockforge.New()
	resultRef, err := engine.Render(context.Background(), models.RenderRequest{Payload: "p1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resultRef)
	assert.Equal(t, 1, engine.Attempts("p1"))
	assert.Equal(t, []string{"p1"}, engine.Rendered())
}

func TestScriptedFailuresThenSuccess(t *testing.T) {
	engine := mockforge.New()
	engine.Script("flaky", mockforge.Outcome{
		FailuresBeforeSuccess: 2,
		Kind:                  generator.KindRateLimited,
	})

	ctx := context.Background()
	req := models.RenderRequest{Payload: "flaky"}

	_, err := engine.Render(ctx, req)
	require.Error(t, err)
	assert.Equal(t, generator.KindRateLimited, generator.Classify(err))

	_, err = engine.Render(ctx, req)
	require.Error(t, err)

	resultRef, err := engine.Render(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, resultRef)
	assert.Equal(t, 3, engine.Attempts("flaky"))
}

func TestScriptedPermanentFailure(t *testing.T) {
	engine := mockforge.New()
	engine.Script("doomed", mockforge.Outcome{FailuresBeforeSuccess: -1})

	for i := 0; i < 5; i++ {
		_, err := engine.Render(context.Background(), models.RenderRequest{Payload: "doomed"})
		require.Error(t, err)
	}
	assert.Equal(t, 5, engine.Attempts("doomed"))
	assert.Empty(t, engine.Rendered())
}
