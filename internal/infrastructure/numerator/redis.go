package numerator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	corenumerator "staffnum/internal/core/numerator"
)

// DefaultRedisKeyPrefix is prepended to every counter hash key.
const DefaultRedisKeyPrefix = "staffnum:counter:"

// nextScript raises the counter to the floor, increments it and stamps the
// record in one server-side step.
var nextScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'value') or '0')
local floor = tonumber(ARGV[1])
if cur < floor then cur = floor end
cur = cur + 1
redis.call('HSET', KEYS[1], 'value', cur, 'scope', ARGV[2], 'period', ARGV[3], 'updated_at', ARGV[4])
return cur
`)

// seedScript raises the counter to ARGV[1] and never lowers it.
var seedScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'value') or '0')
local v = tonumber(ARGV[1])
if v > cur then
  cur = v
  redis.call('HSET', KEYS[1], 'value', cur, 'scope', ARGV[2], 'period', ARGV[3], 'updated_at', ARGV[4])
elseif redis.call('EXISTS', KEYS[1]) == 0 then
  redis.call('HSET', KEYS[1], 'value', cur, 'scope', ARGV[2], 'period', ARGV[3], 'updated_at', ARGV[4])
end
return cur
`)

// RedisConfig holds connection settings for the Redis store.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps each counter in a Redis hash and mutates it with Lua
// scripts, which Redis executes atomically.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// Ensure compile-time interface compliance.
var _ corenumerator.Store = (*RedisStore)(nil)

// NewRedisStore creates a store over an existing client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis connects to Redis and verifies the connection.
func DialRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(client, cfg.KeyPrefix), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(key corenumerator.Key) string {
	return s.prefix + key.String()
}

// Next implements corenumerator.Store.
func (s *RedisStore) Next(ctx context.Context, key corenumerator.Key, floor int64) (int64, error) {
	v, err := nextScript.Run(ctx, s.client, []string{s.key(key)},
		floor, key.Scope, key.Period, time.Now().UTC().Format(time.RFC3339Nano)).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis next: %w", err)
	}
	return v, nil
}

// Current implements corenumerator.Store.
func (s *RedisStore) Current(ctx context.Context, key corenumerator.Key) (int64, error) {
	v, err := s.client.HGet(ctx, s.key(key), "value").Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis current: %w", err)
	}
	return v, nil
}

// Seed implements corenumerator.Store.
func (s *RedisStore) Seed(ctx context.Context, key corenumerator.Key, value int64) (int64, error) {
	v, err := seedScript.Run(ctx, s.client, []string{s.key(key)},
		value, key.Scope, key.Period, time.Now().UTC().Format(time.RFC3339Nano)).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis seed: %w", err)
	}
	return v, nil
}

// List implements corenumerator.Store.
func (s *RedisStore) List(ctx context.Context) ([]corenumerator.Record, error) {
	var records []corenumerator.Record

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		fields, err := s.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis list %s: %w", iter.Val(), err)
		}
		rec, err := recordFromHash(fields)
		if err != nil {
			return nil, fmt.Errorf("redis list %s: %w", iter.Val(), err)
		}
		records = append(records, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return records, nil
}

func recordFromHash(fields map[string]string) (corenumerator.Record, error) {
	value, err := strconv.ParseInt(fields["value"], 10, 64)
	if err != nil {
		return corenumerator.Record{}, fmt.Errorf("parse value: %w", err)
	}
	rec := corenumerator.Record{
		Scope:  fields["scope"],
		Period: fields["period"],
		Value:  value,
	}
	if ts := fields["updated_at"]; ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.UpdatedAt = t
		}
	}
	return rec, nil
}
