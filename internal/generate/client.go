// Package generate provides the HTTP client for the external text-generation
// service. It assembles the retrieved contexts into a single prompt-context
// block and forwards it with the user's question; the generation model itself
// is an external black box reached only through this request/response
// contract.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quanfold/ragcat-go/internal/vstore"
)

// DefaultTimeout bounds each generate request. Generation is the slowest
// stage of the pipeline by far — minutes on CPU are normal.
const DefaultTimeout = 600 * time.Second

// maxErrorBody caps how much of an error response body is kept for messages.
const maxErrorBody = 300

// EmptyAnswerPlaceholder is returned when the service answers 200 with an
// empty text field. Downstream display code always receives some string;
// an empty answer is a soft failure at every call site, never an error.
const EmptyAnswerPlaceholder = "No answer was returned by the generation service. The retrieved context was sent successfully — check the generation service logs."

// Config holds the settings for constructing a Client.
type Config struct {
	// URL is the generation endpoint (e.g. "http://localhost:8083/api/rag").
	URL string
	// Timeout is the per-request timeout. Defaults to DefaultTimeout if zero.
	Timeout time.Duration
	// Logger is used for advisory warnings. Defaults to slog.Default if nil.
	Logger *slog.Logger
}

// Client calls the external generation service. It is safe for concurrent use.
type Client struct {
	// url is the generation endpoint.
	url string
	// healthURL is the sibling health endpoint derived from url.
	healthURL string
	// timeout is the configured request limit, kept for error reporting.
	timeout time.Duration
	// client is the shared HTTP client with the configured timeout.
	client *http.Client
	// log receives advisory warnings (non-success status, empty answers).
	log *slog.Logger
}

// New constructs a Client from the given config.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		url:       cfg.URL,
		healthURL: healthURL(cfg.URL),
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

// BuildContext concatenates the retrieved contexts, in the given order, into
// the single context block sent to the generation service. Each document
// contributes a bracketed "[source_type - component]" header followed by its
// content; blocks are separated by a blank line. The order is preserved
// exactly as received — it is the similarity ranking, and the ranking is a
// deliberate relevance signal to the model.
func BuildContext(contexts []vstore.RetrievedContext) string {
	blocks := make([]string, 0, len(contexts))
	for _, ctx := range contexts {
		blocks = append(blocks, fmt.Sprintf("[%s - %s]\n%s", ctx.SourceType, ctx.Component, ctx.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// generateRequest is the JSON body sent to the generation endpoint.
type generateRequest struct {
	Query       string  `json:"query"`
	Context     string  `json:"context"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// generateResponse is the JSON body returned from the generation endpoint.
// The status field is advisory: a non-"success" value is logged as a warning
// but does not by itself constitute failure when text is non-empty.
type generateResponse struct {
	Text   string `json:"text"`
	Status string `json:"status"`
}

// Generate sends the question and ranked contexts to the generation service
// and returns the answer text. Timeout, connection, and non-2xx failures are
// hard errors; a 200 with empty text degrades to EmptyAnswerPlaceholder.
func (c *Client) Generate(ctx context.Context, query string, contexts []vstore.RetrievedContext, maxTokens int, temperature float64) (string, error) {
	body := generateRequest{
		Query:       query,
		Context:     BuildContext(contexts),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("generate: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("generate: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.classifyTransport(time.Since(start), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("generate: decode response: %w", err)
	}

	answer := strings.TrimSpace(result.Text)
	if answer == "" {
		c.log.Warn("generate: empty answer in 200 response",
			slog.String("status", result.Status),
			slog.Duration("elapsed", time.Since(start)),
		)
		return EmptyAnswerPlaceholder, nil
	}

	if result.Status != "" && result.Status != "success" {
		c.log.Warn("generate: service reported non-success status",
			slog.String("status", result.Status),
		)
	}

	return answer, nil
}

// Health probes the service's health endpoint. Returns nil when the service
// answers 200 within a short deadline.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("generate: create health request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("generate: health check failed for %s: %w", c.healthURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generate: health endpoint %s returned HTTP %d", c.healthURL, resp.StatusCode)
	}
	return nil
}

// classifyTransport turns an http.Client error into the corresponding typed
// error: deadline expiry becomes *TimeoutError, everything else
// *UnavailableError.
func (c *Client) classifyTransport(elapsed time.Duration, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		timeout = true
	}
	if timeout {
		return &TimeoutError{Elapsed: elapsed, Limit: c.timeout, Err: err}
	}
	return &UnavailableError{URL: c.url, Err: err}
}

// healthURL derives the service's health endpoint from the API endpoint by
// replacing the path (e.g. ".../api/rag" → ".../health").
func healthURL(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	u.Path = "/health"
	u.RawQuery = ""
	return u.String()
}
