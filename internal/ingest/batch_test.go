package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/quanfold/ragcat-go/internal/document"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, 4)
	vec[0] = float32(len(text))
	return vec, nil
}

type fakeInserter struct {
	err  error
	docs []*document.Document
}

func (f *fakeInserter) Insert(_ context.Context, doc *document.Document, _ []float32) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDoc(t *testing.T, dir, name, sourceType string) {
	t.Helper()
	body := fmt.Sprintf(`{
		"source_type": %q,
		"doc_sub_type": "business_metadata",
		"table_name": "dda_transactions",
		"content": "document for %s"
	}`, sourceType, name)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_AllDocumentsLoaded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := []string{"01_a.json", "02_b.json", "03_c.json"}
	for _, name := range files {
		writeDoc(t, dir, name, "metadata")
	}

	embedder := &fakeEmbedder{}
	store := &fakeInserter{}
	batch, err := NewBatch(embedder, store, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	res, err := batch.Run(context.Background(), dir, files, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Loaded != 3 || res.Failed != 0 {
		t.Fatalf("tally = %+v, want 3 loaded, 0 failed", res)
	}
	if len(store.docs) != 3 {
		t.Fatalf("inserted %d documents, want 3", len(store.docs))
	}
	if got := store.docs[0].Content; got != "document for 01_a.json" {
		t.Errorf("first document content = %q", got)
	}
}

// TestRun_ShippedCanonicalDocuments loads the real fixtures from data/ and
// requires all twelve to normalize, embed, and insert cleanly, so a malformed
// shipped document (bad event_date, missing content) fails here rather than
// at load time. Ranking and the insert-then-search round trip depend on the
// database's vector operator and are exercised against a running instance,
// not in unit tests.
func TestRun_ShippedCanonicalDocuments(t *testing.T) {
	t.Parallel()

	dir := filepath.Join("..", "..", "data")
	embedder := &fakeEmbedder{}
	store := &fakeInserter{}
	batch, err := NewBatch(embedder, store, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	res, err := batch.Run(context.Background(), dir, CanonicalFiles, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Loaded != 12 || res.Failed != 0 {
		t.Fatalf("tally = %+v, want 12 loaded, 0 failed", res)
	}
	if len(store.docs) != 12 {
		t.Fatalf("inserted %d documents, want 12", len(store.docs))
	}
	if embedder.calls != 12 {
		t.Errorf("embedder called %d times, want 12", embedder.calls)
	}

	subTypes := make(map[string]bool, len(store.docs))
	for i, doc := range store.docs {
		if doc.TableName != "dda_transactions" {
			t.Errorf("doc %d: table_name = %q", i, doc.TableName)
		}
		if doc.Content == "" {
			t.Errorf("doc %d: empty content", i)
		}
		subTypes[doc.DocSubType] = true
	}
	if len(subTypes) != 12 {
		t.Errorf("got %d distinct sub-types, want 12", len(subTypes))
	}

	// The statistics document carries an event_date and must keep it.
	stats := store.docs[3]
	if stats.DocSubType != "table_statistics" {
		t.Fatalf("doc order changed: docs[3] is %q", stats.DocSubType)
	}
	if stats.EventDate == nil {
		t.Fatal("table_statistics lost its event_date")
	}
	if got := stats.EventDate.Format("2006-01-02"); got != "2025-03-14" {
		t.Errorf("table_statistics event_date = %s, want 2025-03-14", got)
	}
}

func TestRun_FailedDocumentDoesNotBlockRest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "01_good.json", "metadata")
	if err := os.WriteFile(filepath.Join(dir, "02_bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeDoc(t, dir, "03_good.json", "logs")

	batch, err := NewBatch(&fakeEmbedder{}, &fakeInserter{}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	res, err := batch.Run(context.Background(), dir, []string{"01_good.json", "02_bad.json", "03_good.json"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Loaded != 2 || res.Failed != 1 {
		t.Fatalf("tally = %+v, want 2 loaded, 1 failed", res)
	}
}

func TestRun_MissingFileCountedAsFailed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	batch, err := NewBatch(&fakeEmbedder{}, &fakeInserter{}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	res, err := batch.Run(context.Background(), dir, []string{"missing.json"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Loaded != 0 || res.Failed != 1 {
		t.Fatalf("tally = %+v, want 0 loaded, 1 failed", res)
	}
}

func TestRun_EmbedFailureSkipsInsert(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "01_a.json", "metadata")

	store := &fakeInserter{}
	batch, err := NewBatch(&fakeEmbedder{err: errors.New("service down")}, store, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	res, err := batch.Run(context.Background(), dir, []string{"01_a.json"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("tally = %+v, want 1 failed", res)
	}
	if len(store.docs) != 0 {
		t.Fatalf("insert was called after embed failure")
	}
}

func TestRun_CancelledContextStopsBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "01_a.json", "metadata")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := NewBatch(&fakeEmbedder{}, &fakeInserter{}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := batch.Run(ctx, dir, []string{"01_a.json"}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}

func TestCanonicalFilesOrderedAndComplete(t *testing.T) {
	t.Parallel()

	if len(CanonicalFiles) != 12 {
		t.Fatalf("CanonicalFiles has %d entries, want 12", len(CanonicalFiles))
	}
	for i, name := range CanonicalFiles {
		want := fmt.Sprintf("%02d_", i+1)
		if name[:3] != want {
			t.Errorf("CanonicalFiles[%d] = %q, want prefix %q", i, name, want)
		}
	}
}
