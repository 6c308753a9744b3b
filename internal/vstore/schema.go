package vstore

import (
	"context"
	"fmt"
)

// schemaDDL creates the vector extension, the rag_documents table, and the
// scoping indexes. Statements are idempotent so Migrate can run before every
// bulk load.
var schemaDDL = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rag_documents (
    id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    cluster_name TEXT,
    source_type  TEXT,
    doc_sub_type TEXT,
    entity_type  TEXT,
    component    TEXT,
    source_name  TEXT,
    keyspace     TEXT,
    table_name   TEXT,
    domain       TEXT,
    sub_domain   TEXT,
    event_date   DATE,
    time_window  TEXT,
    content      TEXT NOT NULL,
    metadata     JSONB,
    embedding    VECTOR(%d),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`, VectorDims),

	`CREATE INDEX IF NOT EXISTS idx_rag_table_name ON rag_documents (table_name)`,
	`CREATE INDEX IF NOT EXISTS idx_rag_source_type ON rag_documents (source_type)`,
	`CREATE INDEX IF NOT EXISTS idx_rag_doc_sub_type ON rag_documents (doc_sub_type)`,
	`CREATE INDEX IF NOT EXISTS idx_rag_event_date ON rag_documents (event_date)`,
}

// Migrate applies the schema. Safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("vstore: migrate: %w", err)
		}
	}
	return nil
}
