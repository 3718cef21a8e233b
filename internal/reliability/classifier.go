package reliability

import (
	"context"
	"errors"
)

// IsUpstreamFailureStatus reports whether an upstream HTTP status means the
// provider itself is unhealthy, as opposed to a bad request from us.
func IsUpstreamFailureStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// StatusError is implemented by upstream errors that carry an HTTP status.
type StatusError interface {
	error
	HTTPStatus() int
}

// CountsAsFailure decides whether err should trip a circuit breaker.
// Caller cancellation and client-side 4xx errors do not.
func CountsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se StatusError
	if errors.As(err, &se) {
		return IsUpstreamFailureStatus(se.HTTPStatus())
	}
	return true
}
