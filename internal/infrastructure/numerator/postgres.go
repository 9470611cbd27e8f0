// Package numerator provides storage backends for counter allocation.
// Every backend implements core/numerator.Store.
package numerator

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	corenumerator "staffnum/internal/core/numerator"
	"staffnum/internal/infrastructure/storage/postgres"
)

// QuerierSource returns the querier for ctx: the active transaction if
// there is one, the pool otherwise. *postgres.TxManager satisfies it.
type QuerierSource interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// PostgresStore keeps counters in the sys_id_counters table.
// Every mutation is a single UPSERT ... RETURNING statement.
type PostgresStore struct {
	source QuerierSource
}

// Ensure compile-time interface compliance.
var _ corenumerator.Store = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(source QuerierSource) *PostgresStore {
	return &PostgresStore{source: source}
}

// Schema is the DDL for the counter table.
const Schema = `
CREATE TABLE IF NOT EXISTS sys_id_counters (
    scope_key   TEXT        NOT NULL,
    period_key  TEXT        NOT NULL DEFAULT '',
    current_val BIGINT      NOT NULL DEFAULT 0 CHECK (current_val >= 0),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (scope_key, period_key)
)`

// EnsureSchema creates the counter table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.source.GetQuerier(ctx).Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create sys_id_counters: %w", err)
	}
	return nil
}

// Next implements corenumerator.Store.
func (s *PostgresStore) Next(ctx context.Context, key corenumerator.Key, floor int64) (int64, error) {
	var num int64
	err := s.source.GetQuerier(ctx).QueryRow(ctx, `
        INSERT INTO sys_id_counters (scope_key, period_key, current_val)
        VALUES ($1, $2, $3::bigint + 1)
        ON CONFLICT (scope_key, period_key) DO UPDATE
        SET current_val = GREATEST(sys_id_counters.current_val, $3::bigint) + 1,
            updated_at  = now()
        RETURNING current_val
	`, key.Scope, key.Period, floor).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// Current implements corenumerator.Store.
func (s *PostgresStore) Current(ctx context.Context, key corenumerator.Key) (int64, error) {
	var num int64
	err := s.source.GetQuerier(ctx).QueryRow(ctx, `
        SELECT current_val FROM sys_id_counters
        WHERE scope_key = $1 AND period_key = $2
	`, key.Scope, key.Period).Scan(&num)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("current: %w", err)
	}
	return num, nil
}

// Seed implements corenumerator.Store.
func (s *PostgresStore) Seed(ctx context.Context, key corenumerator.Key, value int64) (int64, error) {
	var num int64
	err := s.source.GetQuerier(ctx).QueryRow(ctx, `
        INSERT INTO sys_id_counters (scope_key, period_key, current_val)
        VALUES ($1, $2, $3)
        ON CONFLICT (scope_key, period_key) DO UPDATE
        SET current_val = GREATEST(sys_id_counters.current_val, EXCLUDED.current_val),
            updated_at  = now()
        RETURNING current_val
	`, key.Scope, key.Period, value).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	return num, nil
}

// List implements corenumerator.Store.
func (s *PostgresStore) List(ctx context.Context) ([]corenumerator.Record, error) {
	var records []corenumerator.Record
	err := pgxscan.Select(ctx, s.source.GetQuerier(ctx), &records, `
        SELECT scope_key, period_key, current_val, updated_at
        FROM sys_id_counters
        ORDER BY scope_key, period_key
	`)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	return records, nil
}
