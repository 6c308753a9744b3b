package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quanfold/ragcat-go/internal/progress"
	"github.com/quanfold/ragcat-go/internal/rag"
	"github.com/quanfold/ragcat-go/internal/vstore"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// cover a full embed+search+generate round trip, so the default is long.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// Registry receives the server's Prometheus metrics. If nil, the default
	// registry is used; tests inject a fresh one to stay hermetic.
	Registry *prometheus.Registry
}

// asker is the interface handleAsk calls to run the full pipeline.
// *rag.Pipeline satisfies it; tests inject a fake.
type asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

// retriever is the interface handleSearch calls for retrieval-only requests.
// *rag.Pipeline satisfies it; tests inject a fake.
type retriever interface {
	Retrieve(ctx context.Context, question string) ([]vstore.RetrievedContext, progress.Timings, error)
}

// Server is the HTTP server that exposes the ask pipeline.
type Server struct {
	// asker runs the full embed+search+generate pipeline for /api/ask.
	asker asker
	// retriever runs the retrieval-only pipeline for /api/search.
	retriever retriever
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus metrics owned by this server instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askRequest is the JSON body for POST /api/ask and POST /api/search.
type askRequest struct {
	// Question is the natural language question to answer.
	Question string `json:"question"`
}

// contextResult is one retrieved context in an API response.
type contextResult struct {
	// SourceType is the document category (metadata, lineage, logs, metrics).
	SourceType string `json:"source_type"`
	// Component is the producing component, if any.
	Component string `json:"component,omitempty"`
	// SourceName is the originating system, if any.
	SourceName string `json:"source_name,omitempty"`
	// Content is the document text.
	Content string `json:"content"`
	// Similarity is the cosine similarity to the question, in [0, 1].
	Similarity float64 `json:"similarity"`
}

// askResponse is the JSON response for POST /api/ask.
type askResponse struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Contexts are the retrieved contexts the answer was grounded on.
	Contexts []contextResult `json:"contexts"`
	// Timings holds the per-stage latency in seconds.
	Timings timingsResult `json:"timings"`
}

// searchResponse is the JSON response for POST /api/search.
type searchResponse struct {
	// Contexts are the retrieved contexts, most similar first.
	Contexts []contextResult `json:"contexts"`
	// Timings holds the per-stage latency in seconds.
	Timings timingsResult `json:"timings"`
}

// timingsResult reports per-stage wall-clock latency in seconds.
type timingsResult struct {
	Embedding  float64 `json:"embedding_seconds"`
	Search     float64 `json:"search_seconds"`
	Generation float64 `json:"generation_seconds,omitempty"`
	Total      float64 `json:"total_seconds"`
}

// newTimingsResult converts pipeline timings into the API representation.
func newTimingsResult(t progress.Timings) timingsResult {
	return timingsResult{
		Embedding:  t.Embedding.Seconds(),
		Search:     t.Search.Seconds(),
		Generation: t.Generation.Seconds(),
		Total:      t.Total().Seconds(),
	}
}

// newContextResults converts retrieved contexts into the API representation.
func newContextResults(contexts []vstore.RetrievedContext) []contextResult {
	results := make([]contextResult, 0, len(contexts))
	for _, c := range contexts {
		results = append(results, contextResult{
			SourceType: c.SourceType,
			Component:  c.Component,
			SourceName: c.SourceName,
			Content:    c.Content,
			Similarity: c.Similarity,
		})
	}
	return results
}
