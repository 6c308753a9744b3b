// Package ingest implements the bulk-load pipeline for the canonical catalog
// documents: read each JSON file in order, normalize it, embed its content,
// and insert it into the vector store as its own transaction. Failure of one
// document never blocks the next — batch-level partial failure is expected
// and reported in the final tally.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/quanfold/ragcat-go/internal/document"
)

// CanonicalFiles is the fixed ordered list of pre-authored document files
// covering the tracked table: five metadata records, three lineage records,
// and daily/weekly log and metric summaries.
var CanonicalFiles = []string{
	"01_business_metadata.json",
	"02_schema_metadata.json",
	"03_storage_configuration.json",
	"04_table_statistics.json",
	"05_data_lifecycle.json",
	"06_lineage_kafka.json",
	"07_lineage_spark.json",
	"08_lineage_dataapi.json",
	"09_logs_daily.json",
	"10_logs_weekly.json",
	"11_metrics_daily.json",
	"12_metrics_weekly.json",
}

// Embedder converts text into a dense vector. *embed.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Inserter persists one normalized document with its embedding as an atomic
// unit. *vstore.Store satisfies it.
type Inserter interface {
	Insert(ctx context.Context, doc *document.Document, embedding []float32) error
}

// Result is the tally of one batch run.
type Result struct {
	// Loaded is the number of documents successfully inserted.
	Loaded int
	// Failed is the number of documents skipped due to an error.
	Failed int
}

// Batch runs the bulk-load pipeline over an ordered list of document files.
type Batch struct {
	embedder Embedder
	store    Inserter
	log      *slog.Logger
}

// NewBatch constructs a Batch from the given components.
func NewBatch(embedder Embedder, store Inserter, log *slog.Logger) (*Batch, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingest: store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Batch{embedder: embedder, store: store, log: log}, nil
}

// Run processes files from dir strictly in the given order. Each document is
// read, normalized, embedded, and inserted in its own transaction; any
// failure skips that document and continues with the next. The only
// batch-level error is context cancellation.
func (b *Batch) Run(ctx context.Context, dir string, files []string, progress func(msg string)) (Result, error) {
	if progress == nil {
		progress = func(string) {}
	}

	var res Result
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("ingest: batch interrupted: %w", err)
		}

		progress(fmt.Sprintf("loading %s", name))
		if err := b.loadOne(ctx, filepath.Join(dir, name)); err != nil {
			res.Failed++
			b.log.Error("ingest: document skipped",
				slog.String("file", name),
				slog.Any("error", err),
			)
			continue
		}
		res.Loaded++
		b.log.Info("ingest: document loaded", slog.String("file", name))
	}

	return res, nil
}

// loadOne ingests a single document file: read → normalize → embed → insert.
func (b *Batch) loadOne(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	doc, err := document.Decode(data)
	if err != nil {
		return err
	}

	embedding, err := b.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return err
	}

	return b.store.Insert(ctx, doc, embedding)
}
