package generate

import (
	"fmt"
	"time"
)

// TimeoutError reports a generate request that exceeded its deadline.
// Generation on CPU routinely takes minutes, so the message carries the
// elapsed time and the configured limit.
type TimeoutError struct {
	// Elapsed is how long the request ran before the deadline expired.
	Elapsed time.Duration
	// Limit is the configured request timeout.
	Limit time.Duration
	// Err is the underlying transport error.
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generate: timed out after %.1fs (limit %.0fs) — CPU inference is slow, consider lowering max_tokens", e.Elapsed.Seconds(), e.Limit.Seconds())
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// UnavailableError reports a connection-level failure reaching the
// generation service.
type UnavailableError struct {
	// URL is the generation endpoint that was contacted.
	URL string
	// Err is the underlying transport error.
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("generate: cannot connect to %s: %v — check that the generation service is running", e.URL, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx status from the generation service.
type HTTPError struct {
	// StatusCode is the HTTP status returned.
	StatusCode int
	// Body is the response body, truncated for logging.
	Body string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("generate: HTTP %d from generation service: %s", e.StatusCode, e.Body)
}
