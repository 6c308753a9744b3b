// Package document defines the catalog document model and the normalization
// step that turns heterogeneous JSON source records (business metadata, schema
// metadata, lineage, log and metric summaries) into a uniform row shape ready
// for embedding and storage.
package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Source types recognised in the catalog. A document's SourceType groups it
// at the coarse level; DocSubType identifies the exact record kind.
const (
	SourceMetadata = "metadata"
	SourceLineage  = "lineage"
	SourceLog      = "log"
	SourceMetric   = "metric"
)

// CanonicalSubTypes is the fixed set of document sub-types the catalog
// tracks for a table: five metadata records, three lineage records, and
// daily/weekly log and metric summaries.
var CanonicalSubTypes = []string{
	"business_metadata",
	"schema_metadata",
	"storage_configuration",
	"table_statistics",
	"data_lifecycle",
	"lineage_kafka",
	"lineage_spark",
	"lineage_dataapi",
	"logs_daily",
	"logs_weekly",
	"metrics_daily",
	"metrics_weekly",
}

// eventDateLayout is the only accepted wire format for event_date.
const eventDateLayout = "2006-01-02"

// RawDocument is the JSON shape of a source record as authored on disk.
// Every field except Content is optional.
type RawDocument struct {
	ClusterName string         `json:"cluster_name"`
	SourceType  string         `json:"source_type"`
	DocSubType  string         `json:"doc_sub_type"`
	EntityType  string         `json:"entity_type"`
	Component   string         `json:"component"`
	SourceName  string         `json:"source_name"`
	Keyspace    string         `json:"keyspace"`
	TableName   string         `json:"table_name"`
	Domain      string         `json:"domain"`
	SubDomain   string         `json:"sub_domain"`
	EventDate   string         `json:"event_date"`
	TimeWindow  string         `json:"time_window"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata"`
}

// Document is the normalized, storage-ready form of a catalog record.
// Once inserted a document is immutable; re-ingestion creates a new row.
type Document struct {
	ClusterName string
	SourceType  string
	DocSubType  string
	EntityType  string
	Component   string
	SourceName  string
	Keyspace    string
	// TableName scopes retrieval: the query workflow filters on exact
	// table_name equality, so a document without one is never retrieved.
	TableName  string
	Domain     string
	SubDomain  string
	// EventDate is nil when the source record carries no event_date.
	EventDate  *time.Time
	TimeWindow string
	// Content is the text that gets embedded and later shown as context.
	Content  string
	Metadata map[string]any
}

// ValidationError reports a source record that cannot be normalized:
// a missing mandatory field or a malformed value.
type ValidationError struct {
	// Field is the offending source field name.
	Field string
	// Reason describes what was wrong with it.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document: invalid field %q: %s", e.Field, e.Reason)
}

// Normalize converts a raw source record into a Document, applying default
// substitution for absent optional fields and parsing event_date.
// It is a pure function: no I/O, deterministic for a given input.
//
// Content is the only mandatory field; absence or a whitespace-only value
// fails with a [*ValidationError] before any embedding call is attempted.
func Normalize(raw *RawDocument) (*Document, error) {
	if strings.TrimSpace(raw.Content) == "" {
		return nil, &ValidationError{Field: "content", Reason: "must be non-empty"}
	}

	doc := &Document{
		ClusterName: raw.ClusterName,
		SourceType:  raw.SourceType,
		DocSubType:  raw.DocSubType,
		EntityType:  raw.EntityType,
		Component:   raw.Component,
		SourceName:  raw.SourceName,
		Keyspace:    raw.Keyspace,
		TableName:   raw.TableName,
		Domain:      raw.Domain,
		SubDomain:   raw.SubDomain,
		TimeWindow:  raw.TimeWindow,
		Content:     raw.Content,
		Metadata:    raw.Metadata,
	}

	if raw.EventDate != "" {
		d, err := time.Parse(eventDateLayout, raw.EventDate)
		if err != nil {
			return nil, &ValidationError{
				Field:  "event_date",
				Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", raw.EventDate),
			}
		}
		doc.EventDate = &d
	}

	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}

	return doc, nil
}

// Decode unmarshals a JSON source record and normalizes it.
// Malformed JSON is reported as a [*ValidationError] on the record itself.
func Decode(data []byte) (*Document, error) {
	var raw RawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Field: "(record)", Reason: err.Error()}
	}
	return Normalize(&raw)
}

// MetadataJSON returns the document's metadata serialized for jsonb storage.
// An empty metadata map serializes to "{}".
func (d *Document) MetadataJSON() ([]byte, error) {
	b, err := json.Marshal(d.Metadata)
	if err != nil {
		return nil, fmt.Errorf("document: marshal metadata: %w", err)
	}
	return b, nil
}
