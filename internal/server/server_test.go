package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quanfold/ragcat-go/internal/progress"
	"github.com/quanfold/ragcat-go/internal/rag"
	"github.com/quanfold/ragcat-go/internal/vstore"
)

// fakePipeline is a test double satisfying both asker and retriever.
type fakePipeline struct {
	answer   *rag.Answer
	contexts []vstore.RetrievedContext
	err      error
	gotAsk   string
}

func (f *fakePipeline) Ask(_ context.Context, question string) (*rag.Answer, error) {
	f.gotAsk = question
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func (f *fakePipeline) Retrieve(_ context.Context, _ string) ([]vstore.RetrievedContext, progress.Timings, error) {
	if f.err != nil {
		return nil, progress.Timings{}, f.err
	}
	return f.contexts, progress.Timings{Embedding: 10 * time.Millisecond, Search: 5 * time.Millisecond}, nil
}

// newTestServer builds a *Server around the given fake pipeline with a fresh
// Prometheus registry so tests never pollute the default one.
func newTestServer(t *testing.T, p *fakePipeline) *Server {
	t.Helper()
	s, err := New(p, &Config{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func sampleAnswer() *rag.Answer {
	return &rag.Answer{
		Text: "Transactions are partitioned by month.",
		Contexts: []vstore.RetrievedContext{
			{SourceType: "metadata", Component: "schema", Content: "partitioned by month", Similarity: 0.91},
		},
		Timings: progress.Timings{
			Embedding:  20 * time.Millisecond,
			Search:     5 * time.Millisecond,
			Generation: 300 * time.Millisecond,
		},
	}
}

func TestHandleAsk_OK(t *testing.T) {
	t.Parallel()

	fake := &fakePipeline{answer: sampleAnswer()}
	s := newTestServer(t, fake)

	req := httptest.NewRequest(http.MethodPost, "/api/ask",
		strings.NewReader(`{"question":"How is the table partitioned?"}`))
	w := httptest.NewRecorder()

	s.handleAsk(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	if fake.gotAsk != "How is the table partitioned?" {
		t.Errorf("pipeline received question %q", fake.gotAsk)
	}

	var resp askResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "Transactions are partitioned by month." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Contexts) != 1 {
		t.Fatalf("expected 1 context, got %d", len(resp.Contexts))
	}
	if resp.Contexts[0].Similarity != 0.91 {
		t.Errorf("similarity = %v, want 0.91", resp.Contexts[0].Similarity)
	}
	if resp.Timings.Total <= 0 {
		t.Errorf("total timing not populated: %+v", resp.Timings)
	}
}

func TestHandleAsk_InvalidBody(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakePipeline{answer: sampleAnswer()})

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	s.handleAsk(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleAsk_MissingQuestion(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakePipeline{answer: sampleAnswer()})

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	s.handleAsk(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleAsk_PipelineError(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakePipeline{err: errors.New("embedding service unreachable")})

	req := httptest.NewRequest(http.MethodPost, "/api/ask",
		strings.NewReader(`{"question":"anything"}`))
	w := httptest.NewRecorder()

	s.handleAsk(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d — body: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected non-empty error field")
	}
}

func TestHandleSearch_OK(t *testing.T) {
	t.Parallel()

	fake := &fakePipeline{contexts: []vstore.RetrievedContext{
		{SourceType: "logs", Content: "ETL completed", Similarity: 0.72},
		{SourceType: "metrics", Content: "1.2M rows/day", Similarity: 0.65},
	}}
	s := newTestServer(t, fake)

	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"question":"recent pipeline activity"}`))
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Contexts) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(resp.Contexts))
	}
	if resp.Contexts[0].SourceType != "logs" {
		t.Errorf("order not preserved: first context is %q", resp.Contexts[0].SourceType)
	}
	if resp.Timings.Generation != 0 {
		t.Errorf("retrieval-only response should have zero generation time, got %v", resp.Timings.Generation)
	}
}

func TestHandleSearch_EmptyResultIsNotAnError(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakePipeline{contexts: nil})

	req := httptest.NewRequest(http.MethodPost, "/api/search",
		strings.NewReader(`{"question":"unknown topic"}`))
	w := httptest.NewRecorder()

	s.handleSearch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty result, got %d", w.Code)
	}

	var resp searchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Contexts) != 0 {
		t.Errorf("expected 0 contexts, got %d", len(resp.Contexts))
	}
}

func TestOutcomeFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("boom"), "error"},
	}
	for _, tc := range cases {
		if got := outcomeFor(tc.err); got != tc.want {
			t.Errorf("outcomeFor(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
