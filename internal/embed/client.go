// Package embed provides the HTTP client for the external embedding service.
// The service contract is a single POST endpoint that converts raw text into
// a fixed-length vector; the client validates the dimensionality of every
// response before handing it to callers, so a malformed embedding can never
// reach the store.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Dimensions is the required embedding vector size. Responses of any other
// length are rejected with a [*DimensionError].
const Dimensions = 384

// DefaultTimeout bounds each embed request. Embedding on CPU can be slow,
// so the default is generous.
const DefaultTimeout = 120 * time.Second

// maxErrorBody caps how much of an error response body is kept for messages.
const maxErrorBody = 300

// Config holds the settings for constructing a Client.
type Config struct {
	// URL is the embedding endpoint (e.g. "http://localhost:8083/api/embed").
	URL string
	// Timeout is the per-request timeout. Defaults to DefaultTimeout if zero.
	Timeout time.Duration
}

// Client calls the external embedding service. It is safe for concurrent use.
type Client struct {
	// url is the embedding endpoint.
	url string
	// healthURL is the sibling health endpoint derived from url.
	healthURL string
	// client is the shared HTTP client with the configured timeout.
	client *http.Client
}

// New constructs a Client from the given config.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:       cfg.URL,
		healthURL: healthURL(cfg.URL),
		client:    &http.Client{Timeout: timeout},
	}
}

// embedRequest is the JSON body sent to the embedding endpoint.
type embedRequest struct {
	Text string `json:"text"`
}

// embedEnvelope covers both response shapes the service is known to emit:
// a bare {"embedding": [...]} and the wrapped
// {"status": "success", "embedding": [...]}. Embedding stays raw so a
// missing field can be told apart from a present-but-malformed one.
type embedEnvelope struct {
	Status    string          `json:"status"`
	Embedding json.RawMessage `json:"embedding"`
}

// Embed converts text into its embedding vector. The returned slice always
// has exactly Dimensions elements; every failure mode returns a typed error
// and never a partial vector. No retry is performed — the caller decides
// whether to skip-and-continue or abort.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embed: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(c.url, time.Since(start), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var env embedEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("undecodable body: %v", err)}
	}
	if env.Embedding == nil {
		return nil, &FormatError{Reason: `no "embedding" field in response`}
	}

	var vec []float32
	if err := json.Unmarshal(env.Embedding, &vec); err != nil {
		return nil, &FormatError{Reason: `"embedding" is not a numeric array`}
	}
	if len(vec) != Dimensions {
		return nil, &DimensionError{Got: len(vec)}
	}

	return vec, nil
}

// Health probes the service's health endpoint. Returns nil when the service
// answers 200 within a short deadline.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("embed: create health request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("embed: health check failed for %s: %w", c.healthURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embed: health endpoint %s returned HTTP %d", c.healthURL, resp.StatusCode)
	}
	return nil
}

// classifyTransport turns an http.Client error into a *TransportError,
// flagging deadline expiry separately from refusals.
func classifyTransport(endpoint string, elapsed time.Duration, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		timeout = true
	}
	return &TransportError{URL: endpoint, Elapsed: elapsed, Timeout: timeout, Err: err}
}

// healthURL derives the service's health endpoint from the API endpoint by
// replacing the path (e.g. ".../api/embed" → ".../health").
func healthURL(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	u.Path = "/health"
	u.RawQuery = ""
	return u.String()
}
