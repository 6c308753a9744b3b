// Package vstore implements the vector store gateway over a
// PostgreSQL-compatible database with the pgvector extension. It owns the
// transactional write path (one atomic insert per document) and the read
// path (cosine-distance ranked retrieval scoped by table name); the
// nearest-neighbour search itself is delegated entirely to the database's
// vector operator.
package vstore

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/quanfold/ragcat-go/internal/document"
)

// VectorDims is the dimensionality of the embedding column. It must match
// the embedding service's output; inserts of any other length are rejected
// before a transaction is opened.
const VectorDims = 384

// Config holds the store connection parameters.
type Config struct {
	// Host is the database server hostname.
	Host string
	// Port is the database server port.
	Port int
	// Name is the database name.
	Name string
	// User is the database user.
	User string
	// Password is the database password.
	Password string
	// SSLMode is the libpq sslmode value (default: disable).
	SSLMode string
}

// DSN renders the config as a libpq connection string.
func (c *Config) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, sslmode)
}

// RetrievedContext is the read-side projection of a stored document plus its
// similarity to the query vector. It is created per query and never persisted.
type RetrievedContext struct {
	SourceType string
	Component  string
	SourceName string
	Content    string
	Metadata   map[string]any
	// EventDate is nil for rows without one.
	EventDate *time.Time
	// Similarity is 1 - cosine distance, in [0,1] where 1 is identical
	// direction.
	Similarity float64
}

// Store is the gateway to the rag_documents table. It is safe for
// concurrent use; every operation acquires a scoped connection from the pool
// and releases it on all exit paths.
type Store struct {
	// pool is the underlying connection pool.
	pool *pgxpool.Pool
}

// Open connects to the store and verifies reachability with a ping.
// The pgvector type codecs are registered on every pooled connection so
// embeddings travel as native vector values.
func Open(ctx context.Context, cfg *Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("vstore: parse connection config: %w", err)
	}
	pcfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, &UnavailableError{Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &UnavailableError{Op: "connect", Err: err}
	}

	return &Store{pool: pool}, nil
}

// Ping probes store reachability. Used by pre-flight checks and readiness
// probes.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &UnavailableError{Op: "ping", Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const insertSQL = `
INSERT INTO rag_documents
    (cluster_name, source_type, doc_sub_type, entity_type, component, source_name,
     keyspace, table_name, domain, sub_domain, event_date, time_window,
     content, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb, $15)`

// Insert persists one normalized document and its embedding as a single
// atomic unit: the row is inserted and committed inside its own transaction,
// and any failure rolls that transaction back without affecting other
// documents in a batch. The embedding is validated before a transaction is
// opened, so a malformed vector can never leave a partial row behind.
func (s *Store) Insert(ctx context.Context, doc *document.Document, embedding []float32) error {
	if err := validateVector(embedding); err != nil {
		return err
	}

	metadata, err := doc.MetadataJSON()
	if err != nil {
		return &WriteError{Reason: "metadata not serializable", Err: err}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &UnavailableError{Op: "insert", Err: err}
	}
	// Rollback is a no-op after a successful commit.
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, insertSQL,
		doc.ClusterName, doc.SourceType, doc.DocSubType, doc.EntityType,
		doc.Component, doc.SourceName, doc.Keyspace, doc.TableName,
		doc.Domain, doc.SubDomain, doc.EventDate, doc.TimeWindow,
		doc.Content, string(metadata), pgvector.NewVector(embedding),
	)
	if err != nil {
		return &WriteError{Reason: "insert statement", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &WriteError{Reason: "commit", Err: err}
	}
	return nil
}

const searchSQL = `
SELECT source_type, COALESCE(component, ''), COALESCE(source_name, ''),
       content, COALESCE(metadata, '{}'::jsonb), event_date,
       1 - (embedding <=> $1) AS similarity
FROM   rag_documents
WHERE  table_name = $2
ORDER  BY embedding <=> $1
LIMIT  $3`

// Search returns the topK stored documents nearest to queryEmbedding among
// rows whose table_name equals tableFilter, ordered by ascending cosine
// distance (descending similarity). Ties fall back to the store's natural
// row order. An empty result set is not an error.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, tableFilter string, topK int) ([]RetrievedContext, error) {
	if topK < 1 {
		return nil, fmt.Errorf("vstore: topK must be >= 1, got %d", topK)
	}
	if err := validateVector(queryEmbedding); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, searchSQL, pgvector.NewVector(queryEmbedding), tableFilter, topK)
	if err != nil {
		return nil, &UnavailableError{Op: "search", Err: err}
	}
	defer rows.Close()

	var results []RetrievedContext
	for rows.Next() {
		var rc RetrievedContext
		if err := rows.Scan(&rc.SourceType, &rc.Component, &rc.SourceName,
			&rc.Content, &rc.Metadata, &rc.EventDate, &rc.Similarity); err != nil {
			return nil, fmt.Errorf("vstore: scan search row: %w", err)
		}
		if rc.Metadata == nil {
			rc.Metadata = map[string]any{}
		}
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Op: "search", Err: err}
	}

	return results, nil
}

// Count returns the total number of stored documents. Used as the advisory
// verification read after a bulk load.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rag_documents`).Scan(&n); err != nil {
		return 0, &UnavailableError{Op: "count", Err: err}
	}
	return n, nil
}

// validateVector rejects vectors of the wrong length or containing
// non-finite values before they reach the database.
func validateVector(vec []float32) error {
	if len(vec) != VectorDims {
		return &WriteError{Reason: fmt.Sprintf("embedding has %d dimensions, want %d", len(vec), VectorDims)}
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &WriteError{Reason: fmt.Sprintf("embedding element %d is not finite", i)}
		}
	}
	return nil
}
