package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a failed render so the retry policy can decide what
// to do with it.
type ErrorKind string

const (
	// KindRateLimited means the remote engine pushed back; retry with a long,
	// growing delay.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTransient covers network blips, 5xx responses and gateway
	// timeouts; retry with a short delay.
	KindTransient ErrorKind = "transient"
	// KindPermanent means retrying cannot help (malformed input, missing
	// prerequisite data); fail the item immediately.
	KindPermanent ErrorKind = "permanent"
)

// RenderError wraps a failed render with its classification.
type RenderError struct {
	Kind ErrorKind
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed (%s): %v", e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// NewRenderError wraps err with the given kind.
func NewRenderError(kind ErrorKind, err error) *RenderError {
	return &RenderError{Kind: kind, Err: err}
}

// Classify returns the error kind for a render failure. Unclassified errors
// are treated as transient: the engines mark permanent failures explicitly,
// so an unknown error is most likely the network misbehaving.
func Classify(err error) ErrorKind {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindTransient
}

// KindFromStatusCode maps an HTTP status from a remote engine to an error
// kind.
func KindFromStatusCode(code int) ErrorKind {
	switch {
	case code == 429:
		return KindRateLimited
	case code == 502 || code == 503 || code == 504:
		return KindTransient
	case code >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}
