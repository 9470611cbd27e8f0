package numerator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffnum/internal/core/pattern"
)

func TestManager_FloorFromStart(t *testing.T) {
	var gotFloor int64 = -1
	store := &MockStore{
		NextFunc: func(ctx context.Context, key Key, floor int64) (int64, error) {
			gotFloor = floor
			return floor + 1, nil
		},
		CurrentFunc: func(ctx context.Context, key Key) (int64, error) { return 0, nil },
	}

	m := NewManager(store, &Options{Start: 1000})
	v, err := m.NextValue(context.Background(), Key{Scope: "global"})
	require.NoError(t, err)
	assert.Equal(t, int64(999), gotFloor)
	assert.Equal(t, int64(1000), v)

	peek, err := m.PeekValue(context.Background(), Key{Scope: "global"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), peek)
}

func TestManager_PeekUsesCurrent(t *testing.T) {
	store := &MockStore{
		CurrentFunc: func(ctx context.Context, key Key) (int64, error) { return 41, nil },
	}
	m := NewManager(store, nil)

	v, err := m.PeekValue(context.Background(), Key{Scope: "global", Period: "2025"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestManager_WrapsStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	m := NewManager(&MockStore{
		NextFunc: func(ctx context.Context, key Key, floor int64) (int64, error) { return 0, boom },
	}, nil)

	_, err := m.NextValue(context.Background(), Key{Scope: "global", Period: "2025"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "global@2025")
}

func TestManager_SeedRejectsNegative(t *testing.T) {
	m := NewManager(&MockStore{}, nil)
	_, err := m.Seed(context.Background(), Key{Scope: "global"}, -1)
	assert.Error(t, err)
}

func TestManager_HistorySorted(t *testing.T) {
	m := NewManager(&MockStore{
		ListFunc: func(ctx context.Context) ([]Record, error) {
			return []Record{
				{Scope: "b", Period: "2025", Value: 1},
				{Scope: "a", Period: "2026", Value: 2},
				{Scope: "a", Period: "2025", Value: 3},
			}, nil
		},
	}, nil)

	records, err := m.History(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Key{Scope: "a", Period: "2025"}, records[0].Key())
	assert.Equal(t, Key{Scope: "a", Period: "2026"}, records[1].Key())
	assert.Equal(t, Key{Scope: "b", Period: "2025"}, records[2].Key())
}

func TestManager_NilStore(t *testing.T) {
	var m *Manager
	_, err := m.NextValue(context.Background(), Key{Scope: "global"})
	assert.Error(t, err)
}

func TestKey_StringKeepsScopeAndPeriodApart(t *testing.T) {
	withAt := Key{Scope: pattern.Scope{{Token: "COMPANY", Value: "Acme@2025"}}.String()}
	withPeriod := Key{Scope: pattern.Scope{{Token: "COMPANY", Value: "Acme"}}.String(), Period: "2025"}

	assert.Equal(t, "COMPANY=Acme@2025", withPeriod.String())
	assert.NotEqual(t, withAt.String(), withPeriod.String())
}
