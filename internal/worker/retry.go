package worker

import (
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
)

// RetryPolicy decides, for a failed render attempt, whether to try again and
// how long to wait first. It is a pure decision function; the invocation loop
// does the sleeping.
type RetryPolicy struct {
	MaxAttempts   int
	RetryBase     time.Duration
	RateLimitBase time.Duration
}

// ShouldRetry reports whether another attempt is allowed after a failure of
// the given kind on the given attempt number (1-indexed).
func (p RetryPolicy) ShouldRetry(kind generator.ErrorKind, attempt int) bool {
	if kind == generator.KindPermanent {
		return false
	}
	return attempt < p.MaxAttempts
}

// Delay returns the backoff before the next attempt. Generic transient
// failures back off linearly; rate limits get a larger, growing delay so a
// pushed-back remote API is given real room to recover.
func (p RetryPolicy) Delay(kind generator.ErrorKind, attempt int) time.Duration {
	if kind == generator.KindRateLimited {
		return p.RateLimitBase * time.Duration(attempt+1)
	}
	return p.RetryBase * time.Duration(attempt)
}
