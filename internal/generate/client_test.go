package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/quanfold/ragcat-go/internal/vstore"
)

func TestBuildContext_OrderPreserved(t *testing.T) {
	t.Parallel()

	contexts := []vstore.RetrievedContext{
		{SourceType: "log", Component: "kafka-ingest", Content: "Lag spiked at 09:00."},
		{SourceType: "metadata", Component: "catalog", Content: "Table holds DDA postings."},
	}

	got := BuildContext(contexts)

	aIdx := strings.Index(got, "[log - kafka-ingest]\nLag spiked at 09:00.")
	bIdx := strings.Index(got, "[metadata - catalog]\nTable holds DDA postings.")
	if aIdx < 0 || bIdx < 0 {
		t.Fatalf("context block missing expected entries:\n%s", got)
	}
	if aIdx > bIdx {
		t.Errorf("ranked order not preserved: first context at %d, second at %d", aIdx, bIdx)
	}
	if !strings.Contains(got, "\n\n") {
		t.Error("blocks should be separated by a blank line")
	}
}

func TestBuildContext_Empty(t *testing.T) {
	t.Parallel()

	if got := BuildContext(nil); got != "" {
		t.Errorf("empty contexts: got %q", got)
	}
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["query"] != "why was the load late?" {
			t.Errorf("query: got %v", req["query"])
		}
		if req["max_tokens"] != float64(100) {
			t.Errorf("max_tokens: got %v", req["max_tokens"])
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "The Kafka consumer lagged.", "status": "success"})
	}))
	defer server.Close()

	c := New(&Config{URL: server.URL + "/api/rag"})
	answer, err := c.Generate(context.Background(), "why was the load late?", nil, 100, 0.3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "The Kafka consumer lagged." {
		t.Errorf("answer: got %q", answer)
	}
}

func TestGenerate_EmptyTextIsSoftFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "   ", "status": "success"})
	}))
	defer server.Close()

	c := New(&Config{URL: server.URL})
	answer, err := c.Generate(context.Background(), "q", nil, 100, 0.3)
	if err != nil {
		t.Fatalf("empty text must not be an error, got %v", err)
	}
	if answer != EmptyAnswerPlaceholder {
		t.Errorf("answer: got %q, want placeholder", answer)
	}
}

func TestGenerate_NonSuccessStatusIsAdvisory(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "answer", "status": "degraded"})
	}))
	defer server.Close()

	c := New(&Config{URL: server.URL})
	answer, err := c.Generate(context.Background(), "q", nil, 100, 0.3)
	if err != nil {
		t.Fatalf("non-success status with text must not be an error, got %v", err)
	}
	if answer != "answer" {
		t.Errorf("answer: got %q", answer)
	}
}

func TestGenerate_HTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(&Config{URL: server.URL})
	_, err := c.Generate(context.Background(), "q", nil, 100, 0.3)

	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if herr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got %d", herr.StatusCode)
	}
	if !strings.Contains(herr.Body, "model crashed") {
		t.Errorf("body: got %q", herr.Body)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := New(&Config{URL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Generate(context.Background(), "q", nil, 100, 0.3)

	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	c := New(&Config{URL: addr})
	_, err := c.Generate(context.Background(), "q", nil, 100, 0.3)

	var uerr *UnavailableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("health path: got %q", r.URL.Path)
		}
	}))
	defer server.Close()

	c := New(&Config{URL: server.URL + "/api/rag"})
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
}
