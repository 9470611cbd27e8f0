package numerator

import (
	"context"
	"fmt"
	"sort"
)

// Options configures a Manager.
type Options struct {
	// Start is the first value issued for a new sequence. Values <= 1 mean 1.
	Start int64
}

// DefaultOptions returns standard options (sequences start at 1).
func DefaultOptions() *Options {
	return &Options{Start: 1}
}

// Manager hands out counter values from a Store.
// It is the only component that mutates counters.
type Manager struct {
	store Store
	floor int64
}

// NewManager creates a counter manager over store.
func NewManager(store Store, opts *Options) *Manager {
	if opts == nil {
		opts = DefaultOptions()
	}
	floor := opts.Start - 1
	if floor < 0 {
		floor = 0
	}
	return &Manager{store: store, floor: floor}
}

// NextValue allocates the next value for key.
func (m *Manager) NextValue(ctx context.Context, key Key) (int64, error) {
	if m == nil || m.store == nil {
		return 0, fmt.Errorf("numerator manager is not initialized")
	}
	v, err := m.store.Next(ctx, key, m.floor)
	if err != nil {
		return 0, fmt.Errorf("next value for %s: %w", key, err)
	}
	return v, nil
}

// PeekValue returns the value NextValue would return now, without consuming it.
func (m *Manager) PeekValue(ctx context.Context, key Key) (int64, error) {
	if m == nil || m.store == nil {
		return 0, fmt.Errorf("numerator manager is not initialized")
	}
	cur, err := m.store.Current(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("peek value for %s: %w", key, err)
	}
	return max(cur, m.floor) + 1, nil
}

// Current returns the last issued value for key (0 if none).
func (m *Manager) Current(ctx context.Context, key Key) (int64, error) {
	return m.store.Current(ctx, key)
}

// Seed makes sure the next value issued for key is greater than value.
func (m *Manager) Seed(ctx context.Context, key Key, value int64) (int64, error) {
	if value < 0 {
		return 0, fmt.Errorf("seed value must not be negative: %d", value)
	}
	v, err := m.store.Seed(ctx, key, value)
	if err != nil {
		return 0, fmt.Errorf("seed %s: %w", key, err)
	}
	return v, nil
}

// History returns all counter records ordered by scope and period.
func (m *Manager) History(ctx context.Context) ([]Record, error) {
	records, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Scope != records[j].Scope {
			return records[i].Scope < records[j].Scope
		}
		return records[i].Period < records[j].Period
	})
	return records, nil
}
