package numerator

import (
	"context"
	"sync"
	"time"

	corenumerator "staffnum/internal/core/numerator"
)

// MemoryStore keeps counters in process memory.
// Suitable for tests and single-process tools; state is lost on exit.
type MemoryStore struct {
	mu      sync.Mutex
	records map[corenumerator.Key]*corenumerator.Record
	now     func() time.Time
}

// Ensure compile-time interface compliance.
var _ corenumerator.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[corenumerator.Key]*corenumerator.Record),
		now:     time.Now,
	}
}

// Next implements corenumerator.Store.
func (s *MemoryStore) Next(_ context.Context, key corenumerator.Key, floor int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(key)
	rec.Value = max(rec.Value, floor) + 1
	rec.UpdatedAt = s.now()
	return rec.Value, nil
}

// Current implements corenumerator.Store.
func (s *MemoryStore) Current(_ context.Context, key corenumerator.Key) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		return rec.Value, nil
	}
	return 0, nil
}

// Seed implements corenumerator.Store.
func (s *MemoryStore) Seed(_ context.Context, key corenumerator.Key, value int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(key)
	if value > rec.Value {
		rec.Value = value
		rec.UpdatedAt = s.now()
	}
	return rec.Value, nil
}

// List implements corenumerator.Store.
func (s *MemoryStore) List(_ context.Context) ([]corenumerator.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]corenumerator.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out, nil
}

// record returns the record for key, creating it at 0. Caller holds mu.
func (s *MemoryStore) record(key corenumerator.Key) *corenumerator.Record {
	rec, ok := s.records[key]
	if !ok {
		rec = &corenumerator.Record{Scope: key.Scope, Period: key.Period, UpdatedAt: s.now()}
		s.records[key] = rec
	}
	return rec
}
