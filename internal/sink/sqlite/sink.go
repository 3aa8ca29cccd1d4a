// Package sqlite provides a RecordSink on a local SQLite database for
// runs without a Postgres instance.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

const schema = `
CREATE TABLE IF NOT EXISTS auctions (
	case_number TEXT PRIMARY KEY,
	gov_pdf_name TEXT,
	fields TEXT NOT NULL,
	data_extraction_date TEXT NOT NULL
)`

// Sink upserts auction rows into a SQLite file.
type Sink struct {
	db *sql.DB
}

// New opens (or creates) the database at path and ensures the schema.
func New(ctx context.Context, path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ensure schema: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Sink{db: db}, nil
}

// Close releases the database handle.
func (s *Sink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite database: %w", err)
	}
	return nil
}

// ExistingKeys reports which candidate case numbers are already stored.
func (s *Sink) ExistingKeys(ctx context.Context, keys []string) (map[string]struct{}, error) {
	if len(keys) == 0 {
		return map[string]struct{}{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	query := fmt.Sprintf(`SELECT case_number FROM auctions WHERE case_number IN (%s)`, placeholders)
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing keys: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan existing key: %w", err)
		}
		existing[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing keys: %w", err)
	}
	return existing, nil
}

// Upsert writes one auction row, replacing any previous row with the
// same case number.
func (s *Sink) Upsert(ctx context.Context, key string, fields auction.Fields) error {
	if key == "" {
		return fmt.Errorf("case number is required")
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	document, _ := fields["gov_pdf_name"].(string)
	_, err = s.db.ExecContext(ctx, `
INSERT INTO auctions (case_number, gov_pdf_name, fields, data_extraction_date)
VALUES (?, ?, ?, ?)
ON CONFLICT(case_number) DO UPDATE SET
	gov_pdf_name = excluded.gov_pdf_name,
	fields = excluded.fields,
	data_extraction_date = excluded.data_extraction_date`,
		key, document, string(fieldsJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert auction %s: %w", key, err)
	}
	return nil
}
