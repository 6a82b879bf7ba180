package worker_test

import (
	"testing"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/worker"
	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyShouldRetry(t *testing.T) {
	policy := worker.RetryPolicy{MaxAttempts: 3}

	testCases := []struct {
		name    string
		kind    generator.ErrorKind
		attempt int
		want    bool
	}{
		{"transient first attempt", generator.KindTransient, 1, true},
		{"transient second attempt", generator.KindTransient, 2, true},
		{"transient at max attempts", generator.KindTransient, 3, false},
		{"rate limited first attempt", generator.KindRateLimited, 1, true},
		{"rate limited at max attempts", generator.KindRateLimited, 3, false},
		{"permanent never retries", generator.KindPermanent, 1, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.ShouldRetry(tc.kind, tc.attempt))
		})
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := worker.RetryPolicy{
		MaxAttempts:   3,
		RetryBase:     2 * time.Second,
		RateLimitBase: 5 * time.Second,
	}

	// Transient failures back off linearly on the base delay.
	assert.Equal(t, 2*time.Second, policy.Delay(generator.KindTransient, 1))
	assert.Equal(t, 4*time.Second, policy.Delay(generator.KindTransient, 2))

	// Rate limits wait longer from the start, and grow from there.
	assert.Equal(t, 10*time.Second, policy.Delay(generator.KindRateLimited, 1))
	assert.Equal(t, 15*time.Second, policy.Delay(generator.KindRateLimited, 2))
	assert.Greater(t, policy.Delay(generator.KindRateLimited, 1), policy.Delay(generator.KindTransient, 1))
}
