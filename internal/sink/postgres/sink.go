// Package postgres provides a Postgres-backed RecordSink.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for auction rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Sink upserts auction rows keyed by case number.
type Sink struct {
	pool  pgxPool
	table string
}

// New creates a Postgres-backed Sink using the provided config.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "auctions"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Sink{pool: pool, table: table}, nil
}

// NewWithPool constructs a Sink from an existing pool (primarily for
// testing).
func NewWithPool(pool pgxPool, table string) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "auctions"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Sink{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Sink) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ExistingKeys reports which candidate case numbers are already stored,
// with one batched query.
func (s *Sink) ExistingKeys(ctx context.Context, keys []string) (map[string]struct{}, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("sink is not configured")
	}
	if len(keys) == 0 {
		return map[string]struct{}{}, nil
	}
	query := fmt.Sprintf(`SELECT case_number FROM %s WHERE case_number = ANY($1)`, s.table)
	rows, err := s.pool.Query(ctx, query, keys)
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
	if s == nil || s.pool == nil {
		return fmt.Errorf("sink is not configured")
	}
	if key == "" {
		return fmt.Errorf("case number is required")
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (case_number, gov_pdf_name, fields, data_extraction_date)
VALUES ($1, $2, $3, now())
ON CONFLICT (case_number) DO UPDATE SET
	gov_pdf_name = EXCLUDED.gov_pdf_name,
	fields = EXCLUDED.fields,
	data_extraction_date = EXCLUDED.data_extraction_date`, s.table)

	document, _ := fields["gov_pdf_name"].(string)
	if _, err := s.pool.Exec(ctx, query, key, document, fieldsJSON); err != nil {
		return fmt.Errorf("upsert auction %s: %w", key, err)
	}
	return nil
}
