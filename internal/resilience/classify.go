package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// HTTPStatusError is the minimal shape an HTTP-backed vendor adapter wraps
// its non-2xx responses in, so the resilience layer can classify them
// without importing the adapter package.
type HTTPStatusError struct {
	StatusCode int
	Err        error
}

func (e *HTTPStatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode)
}

func (e *HTTPStatusError) Unwrap() error { return e.Err }

// retryableStatus reports whether an HTTP status code should be retried.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// DefaultRetryable is the retry predicate spec.md §4.2 requires: transient
// transport failures and the vendor status codes {429,500,502,503,504} are
// retryable; any other 4xx is not.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Unclassified errors (DNS failures, connection resets, decode errors
	// surfaced before a status code was read) are treated as transient
	// transport failures.
	return true
}
