package generator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want generator.ErrorKind
	}{
		{"tagged rate limit", generator.NewRenderError(generator.KindRateLimited, errors.New("429")), generator.KindRateLimited},
		{"tagged permanent", generator.NewRenderError(generator.KindPermanent, errors.New("bad input")), generator.KindPermanent},
		{"wrapped render error", fmt.Errorf("render item: %w", generator.NewRenderError(generator.KindPermanent, errors.New("bad input"))), generator.KindPermanent},
		{"deadline exceeded", context.DeadlineExceeded, generator.KindTransient},
		{"unknown error", errors.New("something odd"), generator.KindTransient},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, generator.Classify(tc.err))
		})
	}
}

func TestKindFromStatusCode(t *testing.T) {
	assert.Equal(t, generator.KindRateLimited, generator.KindFromStatusCode(429))
	assert.Equal(t, generator.KindTransient, generator.KindFromStatusCode(502))
	assert.Equal(t, generator.KindTransient, generator.KindFromStatusCode(503))
	assert.Equal(t, generator.KindTransient, generator.KindFromStatusCode(504))
	assert.Equal(t, generator.KindTransient, generator.KindFromStatusCode(500))
	assert.Equal(t, generator.KindPermanent, generator.KindFromStatusCode(400))
	assert.Equal(t, generator.KindPermanent, generator.KindFromStatusCode(404))
	assert.Equal(t, generator.KindPermanent, generator.KindFromStatusCode(422))
}

func TestRenderErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := generator.NewRenderError(generator.KindTransient, cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "transient")
}
