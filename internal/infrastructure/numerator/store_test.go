package numerator

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "staffnum/internal/core/numerator"
	"staffnum/internal/core/pattern"
)

// runStoreContract exercises the behaviour every Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) corenumerator.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("first value is one", func(t *testing.T) {
		s := newStore(t)
		v, err := s.Next(ctx, corenumerator.Key{Scope: "global"}, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		cur, err := s.Current(ctx, corenumerator.Key{Scope: "global"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), cur)
	})

	t.Run("missing record reads as zero", func(t *testing.T) {
		s := newStore(t)
		cur, err := s.Current(ctx, corenumerator.Key{Scope: "nobody", Period: "2025"})
		require.NoError(t, err)
		assert.Zero(t, cur)
	})

	t.Run("floor raises the counter once", func(t *testing.T) {
		s := newStore(t)
		key := corenumerator.Key{Scope: "COMPANY_ABBR=TTX"}

		v, err := s.Next(ctx, key, 999)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), v)

		v, err = s.Next(ctx, key, 999)
		require.NoError(t, err)
		assert.Equal(t, int64(1001), v)
	})

	t.Run("periods are isolated", func(t *testing.T) {
		s := newStore(t)
		k2025 := corenumerator.Key{Scope: "global", Period: "2025"}
		k2026 := corenumerator.Key{Scope: "global", Period: "2026"}

		for i := 0; i < 3; i++ {
			_, err := s.Next(ctx, k2025, 0)
			require.NoError(t, err)
		}
		v, err := s.Next(ctx, k2026, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		cur, err := s.Current(ctx, k2025)
		require.NoError(t, err)
		assert.Equal(t, int64(3), cur)
	})

	t.Run("seed never lowers", func(t *testing.T) {
		s := newStore(t)
		key := corenumerator.Key{Scope: "DEPARTMENT_ABBR=ENG", Period: "2025-03"}

		v, err := s.Seed(ctx, key, 40)
		require.NoError(t, err)
		assert.Equal(t, int64(40), v)

		v, err = s.Seed(ctx, key, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(40), v)

		next, err := s.Next(ctx, key, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(41), next)
	})

	t.Run("concurrent next hands out distinct values", func(t *testing.T) {
		s := newStore(t)
		key := corenumerator.Key{Scope: "global", Period: "2025"}
		const workers = 40

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			values []int64
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := s.Next(ctx, key, 0)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				values = append(values, v)
				mu.Unlock()
			}()
		}
		wg.Wait()

		require.Len(t, values, workers)
		sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
		for i, v := range values {
			assert.Equal(t, int64(i+1), v)
		}
	})

	t.Run("list returns every record", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Next(ctx, corenumerator.Key{Scope: "a", Period: "2025"}, 0)
		require.NoError(t, err)
		_, err = s.Next(ctx, corenumerator.Key{Scope: "b"}, 0)
		require.NoError(t, err)

		records, err := s.List(ctx)
		require.NoError(t, err)
		keys := make([]corenumerator.Key, 0, len(records))
		for _, r := range records {
			keys = append(keys, r.Key())
		}
		assert.ElementsMatch(t, []corenumerator.Key{
			{Scope: "a", Period: "2025"},
			{Scope: "b"},
		}, keys)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) corenumerator.Store {
		return NewMemoryStore()
	})
}

func TestFileStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) corenumerator.Store {
		return NewFileStore(filepath.Join(t.TempDir(), "counters.json"))
	})
}

func TestFileStore_SharedBetweenInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "counters.json")
	key := corenumerator.Key{Scope: "global"}

	a := NewFileStore(path)
	b := NewFileStore(path)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = a.Next(ctx, key, 0) }()
		go func() { defer wg.Done(); _, _ = b.Next(ctx, key, 0) }()
	}
	wg.Wait()

	cur, err := NewFileStore(path).Current(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(20), cur)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counters.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Next(context.Background(), corenumerator.Key{Scope: "global"}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse counter file")
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	runStoreContract(t, func(t *testing.T) corenumerator.Store {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		store := NewRedisStore(client, "staffnum:test:"+uuid.NewString()+":")
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestRedisStore_KeysKeepEscapedScopes(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	scope := pattern.Scope{{Token: "COMPANY", Value: "R@D"}}.String()
	_, err := store.Next(ctx, corenumerator.Key{Scope: scope, Period: "2025"}, 0)
	require.NoError(t, err)

	key := DefaultRedisKeyPrefix + `COMPANY=R\@D@2025`
	assert.True(t, mr.Exists(key))
	assert.Equal(t, "1", mr.HGet(key, "value"))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, scope, records[0].Scope)
}

// TestRedisStore_Server runs the contract against a real Redis when one is
// configured.
func TestRedisStore_Server(t *testing.T) {
	addr := os.Getenv("STAFFNUM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STAFFNUM_TEST_REDIS_ADDR not set")
	}

	runStoreContract(t, func(t *testing.T) corenumerator.Store {
		store, err := DialRedis(context.Background(), RedisConfig{
			Address:   addr,
			KeyPrefix: "staffnum:test:" + uuid.NewString() + ":",
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestRecordFromHash(t *testing.T) {
	rec, err := recordFromHash(map[string]string{
		"value":      "12",
		"scope":      "COMPANY_ABBR=TTX",
		"period":     "2025",
		"updated_at": "2025-03-01T10:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, corenumerator.Key{Scope: "COMPANY_ABBR=TTX", Period: "2025"}, rec.Key())
	assert.Equal(t, int64(12), rec.Value)
	assert.Equal(t, 2025, rec.UpdatedAt.Year())

	_, err = recordFromHash(map[string]string{"value": "x"})
	assert.Error(t, err)
}
