package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Dialect selects the SQL flavour spoken by an SQL store.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

type statements struct {
	schema string
	get    string
	put    string
}

var dialects = map[Dialect]statements{
	Postgres: {
		schema: `
			CREATE TABLE IF NOT EXISTS records (
				key TEXT PRIMARY KEY,
				value JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
		get: `SELECT value FROM records WHERE key = $1`,
		put: `
			INSERT INTO records (key, value, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value,
			    updated_at = EXCLUDED.updated_at
		`,
	},
	SQLite: {
		schema: `
			CREATE TABLE IF NOT EXISTS records (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`,
		get: `SELECT value FROM records WHERE key = ?`,
		put: `
			INSERT INTO records (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE
			SET value = excluded.value,
			    updated_at = excluded.updated_at
		`,
	},
}

// SQL stores each record as one row of the records table.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	stmts   statements
	tracer  trace.Tracer
}

// NewSQL wraps an open database. Call EnsureSchema before first use on a
// fresh database.
func NewSQL(db *sql.DB, dialect Dialect) (*SQL, error) {
	stmts, ok := dialects[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	return &SQL{
		db:      db,
		dialect: dialect,
		stmts:   stmts,
		tracer:  otel.Tracer("libraryos/storage"),
	}, nil
}

// EnsureSchema creates the records table if it does not exist.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "storage.ensure_schema",
		trace.WithAttributes(attribute.String("db.dialect", string(s.dialect))),
	)
	defer span.End()

	if _, err := s.db.ExecContext(ctx, s.stmts.schema); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "storage.get",
		trace.WithAttributes(
			attribute.String("db.dialect", string(s.dialect)),
			attribute.String("record.key", key),
		),
	)
	defer span.End()

	var value []byte
	err := s.db.QueryRowContext(ctx, s.stmts.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.Bool("record.found", false))
		return nil, ErrNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query %s: %w", key, describe(err))
	}

	span.SetAttributes(
		attribute.Bool("record.found", true),
		attribute.Int("record.bytes", len(value)),
	)
	return value, nil
}

func (s *SQL) Put(ctx context.Context, key string, data []byte) error {
	ctx, span := s.tracer.Start(ctx, "storage.put",
		trace.WithAttributes(
			attribute.String("db.dialect", string(s.dialect)),
			attribute.String("record.key", key),
			attribute.Int("record.bytes", len(data)),
		),
	)
	defer span.End()

	if _, err := s.db.ExecContext(ctx, s.stmts.put, key, string(data), time.Now().UTC()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert %s: %w", key, describe(err))
	}
	return nil
}

func (s *SQL) Close() error { return s.db.Close() }

// describe annotates postgres errors that point at a missing schema.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
		return fmt.Errorf("records table missing (run EnsureSchema): %w", err)
	}
	return err
}
