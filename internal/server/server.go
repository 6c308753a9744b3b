// Package server implements the HTTP server that exposes the ask pipeline
// via a small REST API. The server is started by the `ragcat serve` CLI
// command and answers the same questions as `ragcat ask`, plus retrieval-only
// queries for debugging.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quanfold/ragcat-go/internal/logging"
)

// New constructs a Server from the provided pipeline and config.
func New(pipeline interface {
	asker
	retriever
}, cfg *Config) (*Server, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("server: pipeline must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full embed+search+generate round trip.
		cfg.WriteTimeout = 15 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	metricsHandler := promhttp.Handler()
	if cfg.Registry != nil {
		registerer = cfg.Registry
		metricsHandler = promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})
	}

	s := &Server{
		asker:     pipeline,
		retriever: pipeline,
		cfg:       cfg,
		log:       cfg.Logger,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(registerer),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/ask", rl.middleware(s.instrument("ask", http.HandlerFunc(s.handleAsk))))
	mux.Handle("POST /api/search", rl.middleware(s.instrument("search", http.HandlerFunc(s.handleSearch))))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", metricsHandler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(cfg.Logger, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		fmt.Printf("ragcat server listening on http://%s\n", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleAsk handles POST /api/ask requests: the full embed+search+generate
// pipeline for one question.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	start := time.Now()
	answer, err := s.asker.Ask(r.Context(), question)
	outcome := outcomeFor(err)
	s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error("ask failed", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, err)
		return
	}

	s.observeStages(answer.Timings)

	writeJSON(w, log, http.StatusOK, askResponse{
		Answer:   answer.Text,
		Contexts: newContextResults(answer.Contexts),
		Timings:  newTimingsResult(answer.Timings),
	})
}

// handleSearch handles POST /api/search requests: retrieval only, no
// generation. Useful for inspecting what the pipeline would ground on.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	contexts, timings, err := s.retriever.Retrieve(r.Context(), question)
	if err != nil {
		log.Error("search failed", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, err)
		return
	}

	s.observeStages(timings)

	writeJSON(w, log, http.StatusOK, searchResponse{
		Contexts: newContextResults(contexts),
		Timings:  newTimingsResult(timings),
	})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// decodeQuestion reads and validates the shared request body for ask/search.
// On failure it writes a 400 and returns ok=false.
func decodeQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return "", false
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return "", false
	}
	return req.Question, true
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode error", slog.Any("error", err))
	}
}

// writeError returns a JSON error body so API clients never have to parse
// plain-text failures.
func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// outcomeFor maps a pipeline error to a metrics outcome label.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
