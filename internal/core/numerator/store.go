// Package numerator provides domain contracts for scoped counter allocation.
// Implementations of Store live in the infrastructure layer.
package numerator

import (
	"context"
	"time"
)

// Key identifies one counter sequence: a scope and a reset period.
type Key struct {
	// Scope is the canonical scope key (e.g. "COMPANY_ABBR=TTX", "global").
	Scope string
	// Period is the reset-period key (e.g. "2025", "2025-03"). Empty for
	// counters that never reset.
	Period string
}

// String renders the key for logs and storage backends that need one string.
func (k Key) String() string {
	if k.Period == "" {
		return k.Scope
	}
	return k.Scope + "@" + k.Period
}

// Record is the persisted state of one counter sequence.
// Records are never deleted: a new period starts a new record.
type Record struct {
	Scope     string    `db:"scope_key" json:"scope" yaml:"scope"`
	Period    string    `db:"period_key" json:"period" yaml:"period"`
	Value     int64     `db:"current_val" json:"value" yaml:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at" yaml:"updated_at"`
}

// Key returns the record's key.
func (r Record) Key() Key {
	return Key{Scope: r.Scope, Period: r.Period}
}

// Store persists counters.
//
// Next must be a single atomic read-modify-write: concurrent callers for the
// same key each receive a distinct value, strictly increasing, with nothing
// skipped or repeated.
type Store interface {
	// Next raises the counter to at least floor, increments it and returns
	// the new value. A missing record is created at 0 first.
	Next(ctx context.Context, key Key, floor int64) (int64, error)

	// Current returns the last issued value, or 0 when the record does not exist.
	Current(ctx context.Context, key Key) (int64, error)

	// Seed raises the counter to at least value without ever lowering it
	// and returns the resulting value.
	Seed(ctx context.Context, key Key, value int64) (int64, error)

	// List returns all counter records, including those of past periods.
	List(ctx context.Context) ([]Record, error)
}
