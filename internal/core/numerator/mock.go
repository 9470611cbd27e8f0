package numerator

import (
	"context"
)

// MockStore is a test implementation of Store.
// Use in unit tests to avoid database dependencies.
type MockStore struct {
	NextFunc    func(ctx context.Context, key Key, floor int64) (int64, error)
	CurrentFunc func(ctx context.Context, key Key) (int64, error)
	SeedFunc    func(ctx context.Context, key Key, value int64) (int64, error)
	ListFunc    func(ctx context.Context) ([]Record, error)
}

// Next implements Store.
func (m *MockStore) Next(ctx context.Context, key Key, floor int64) (int64, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, key, floor)
	}
	return floor + 1, nil
}

// Current implements Store.
func (m *MockStore) Current(ctx context.Context, key Key) (int64, error) {
	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx, key)
	}
	return 0, nil
}

// Seed implements Store.
func (m *MockStore) Seed(ctx context.Context, key Key, value int64) (int64, error) {
	if m.SeedFunc != nil {
		return m.SeedFunc(ctx, key, value)
	}
	return value, nil
}

// List implements Store.
func (m *MockStore) List(ctx context.Context) ([]Record, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// Ensure compile-time interface compliance.
var _ Store = (*MockStore)(nil)
