package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quanfold/ragcat-go/internal/progress"
)

// newMetricsTestServer builds a Server backed by a fresh isolated registry so
// tests do not pollute prometheus.DefaultRegisterer.
func newMetricsTestServer(t *testing.T) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := &Server{
		asker:     &fakePipeline{answer: sampleAnswer()},
		retriever: &fakePipeline{},
		cfg:       &Config{Registry: reg},
		metrics:   newServerMetrics(reg),
	}
	return s, reg
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	_, reg := newMetricsTestServer(t)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_AskCounterIncremented(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/ask",
		strings.NewReader(`{"question":"anything"}`))
	s.handleAsk(httptest.NewRecorder(), req)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "ragcat_ask_requests_total" {
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "outcome" && lp.GetValue() == "ok" {
						if m.GetCounter().GetValue() != 1 {
							t.Errorf("want counter=1, got %v", m.GetCounter().GetValue())
						}
						found = true
					}
				}
			}
		}
	}
	if !found {
		t.Error("ragcat_ask_requests_total{outcome=\"ok\"} not found in gathered metrics")
	}
}

func Test_Metrics_StageHistogramObserved(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t)

	s.observeStages(progress.Timings{
		Embedding:  50 * time.Millisecond,
		Search:     10 * time.Millisecond,
		Generation: 2 * time.Second,
	})

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	stages := map[string]bool{}
	for _, mf := range mfs {
		if mf.GetName() != "ragcat_pipeline_stage_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "stage" {
					stages[lp.GetValue()] = true
				}
			}
		}
	}
	for _, want := range []string{"embedding", "search", "generation"} {
		if !stages[want] {
			t.Errorf("stage %q not observed", want)
		}
	}
}

func Test_Metrics_GenerationSkippedWhenZero(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t)

	s.observeStages(progress.Timings{
		Embedding: 50 * time.Millisecond,
		Search:    10 * time.Millisecond,
	})

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	for _, mf := range mfs {
		if mf.GetName() != "ragcat_pipeline_stage_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "stage" && lp.GetValue() == "generation" {
					t.Error("generation stage observed for retrieval-only timings")
				}
			}
		}
	}
}
