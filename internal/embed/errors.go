package embed

import (
	"fmt"
	"time"
)

// TransportError reports a network-level failure reaching the embedding
// service: connection refused, DNS failure, or timeout. It carries the target
// URL and the elapsed time so the operator can tell a hang from a refusal.
type TransportError struct {
	// URL is the embedding endpoint that was contacted.
	URL string
	// Elapsed is how long the attempt ran before failing.
	Elapsed time.Duration
	// Timeout is true when the failure was a deadline expiry.
	Timeout bool
	// Err is the underlying transport error.
	Err error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("embed: timeout after %.1fs calling %s — check that the embedding service is running", e.Elapsed.Seconds(), e.URL)
	}
	return fmt.Sprintf("embed: cannot reach %s after %.1fs: %v", e.URL, e.Elapsed.Seconds(), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError reports a response that arrived but did not contain a usable
// embedding: undecodable body, missing "embedding" field, or a value that is
// not a numeric array.
type FormatError struct {
	// Reason describes what was wrong with the response shape.
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("embed: unexpected response format: %s", e.Reason)
}

// DimensionError reports an embedding whose length differs from the required
// vector size. A malformed embedding must never be persisted, so this is a
// hard failure rather than a truncate-or-pad.
type DimensionError struct {
	// Got is the observed vector length.
	Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embed: expected %d-dimensional embedding, got %d", Dimensions, e.Got)
}

// HTTPError reports a non-2xx status from the embedding service.
type HTTPError struct {
	// StatusCode is the HTTP status returned.
	StatusCode int
	// Body is the response body, truncated for logging.
	Body string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("embed: HTTP %d from embedding service: %s", e.StatusCode, e.Body)
}
