// Package rag composes the embedding client, vector store gateway, and
// generation client into the two question-answering workflows: retrieval
// only, and full retrieve-then-generate. The stages run as a strict
// pipeline — embedding happens before retrieval happens before generation,
// with no overlap — and each stage's latency is recorded for reporting.
package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/quanfold/ragcat-go/internal/progress"
	"github.com/quanfold/ragcat-go/internal/vstore"
)

// DefaultTopK is the number of contexts retrieved per question when the
// caller does not override it.
const DefaultTopK = 6

// Embedder converts text into a dense vector. *embed.Client satisfies it;
// tests inject a fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher performs the similarity search. *vstore.Store satisfies it.
type Searcher interface {
	Search(ctx context.Context, queryEmbedding []float32, tableFilter string, topK int) ([]vstore.RetrievedContext, error)
}

// Generator produces the final answer from the question and ranked contexts.
// *generate.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, query string, contexts []vstore.RetrievedContext, maxTokens int, temperature float64) (string, error)
}

// Config holds the pipeline's retrieval and generation parameters.
type Config struct {
	// TableFilter scopes retrieval to rows with this exact table_name.
	TableFilter string
	// TopK is the number of contexts to retrieve. Defaults to DefaultTopK.
	TopK int
	// MaxTokens caps the generated answer length.
	MaxTokens int
	// Temperature controls generation randomness.
	Temperature float64
}

// Pipeline wires the three clients into the query workflows.
type Pipeline struct {
	embedder  Embedder
	store     Searcher
	generator Generator
	cfg       Config

	// OnStage, when set, is invoked at the start of each long-running stage
	// with its display name; the returned function is called when the stage
	// ends. The CLI uses this to drive the console indicator. May be nil.
	OnStage func(name string) func()
}

// Answer is the result of a full ask workflow.
type Answer struct {
	// Text is the generated answer (or the generation client's placeholder
	// when the service returned an empty one).
	Text string
	// Contexts are the retrieved documents in similarity-ranked order.
	Contexts []vstore.RetrievedContext
	// Timings is the per-stage latency breakdown.
	Timings progress.Timings
}

// New constructs a Pipeline from the given components and config.
func New(embedder Embedder, store Searcher, generator Generator, cfg Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Pipeline{embedder: embedder, store: store, generator: generator, cfg: cfg}, nil
}

// Retrieve embeds the question and returns the top-K contexts for it,
// along with the stage timings.
func (p *Pipeline) Retrieve(ctx context.Context, question string) ([]vstore.RetrievedContext, progress.Timings, error) {
	var timings progress.Timings

	vec, err := timed(p, ctx, "Generating embedding", &timings.Embedding, func(ctx context.Context) ([]float32, error) {
		return p.embedder.Embed(ctx, question)
	})
	if err != nil {
		return nil, timings, fmt.Errorf("rag: embedding question: %w", err)
	}

	contexts, err := timed(p, ctx, "Searching vector store", &timings.Search, func(ctx context.Context) ([]vstore.RetrievedContext, error) {
		return p.store.Search(ctx, vec, p.cfg.TableFilter, p.cfg.TopK)
	})
	if err != nil {
		return nil, timings, fmt.Errorf("rag: similarity search: %w", err)
	}

	return contexts, timings, nil
}

// Ask runs the full workflow: embed the question, retrieve the nearest
// contexts, and generate an answer from them. Hard failures at any stage
// abort the whole query.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	if p.generator == nil {
		return nil, fmt.Errorf("rag: generator must not be nil for ask")
	}

	contexts, timings, err := p.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	text, err := timed(p, ctx, "Generating answer", &timings.Generation, func(ctx context.Context) (string, error) {
		return p.generator.Generate(ctx, question, contexts, p.cfg.MaxTokens, p.cfg.Temperature)
	})
	if err != nil {
		return nil, fmt.Errorf("rag: answer generation: %w", err)
	}

	return &Answer{Text: text, Contexts: contexts, Timings: timings}, nil
}

// timed runs fn with the OnStage hook active and records its elapsed time
// into elapsed. A free function because methods cannot have type parameters.
func timed[T any](p *Pipeline, ctx context.Context, name string, elapsed *time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if p.OnStage != nil {
		done := p.OnStage(name)
		defer done()
	}
	start := time.Now()
	out, err := fn(ctx)
	*elapsed = time.Since(start)
	return out, err
}
