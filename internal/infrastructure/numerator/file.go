package numerator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	corenumerator "staffnum/internal/core/numerator"
)

const (
	fileLockTimeout = 5 * time.Second
	fileLockRetry   = 25 * time.Millisecond
)

// FileStore keeps counters in a JSON file.
// Every operation holds an in-process mutex and an exclusive cross-process
// file lock for its whole read-modify-write, so several CLI invocations can
// share one file.
type FileStore struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
	now  func() time.Time
}

// Ensure compile-time interface compliance.
var _ corenumerator.Store = (*FileStore)(nil)

type fileData struct {
	Counters  []corenumerator.Record `json:"counters"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewFileStore creates a store backed by the file at path.
// The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}
}

// Next implements corenumerator.Store.
func (s *FileStore) Next(ctx context.Context, key corenumerator.Key, floor int64) (int64, error) {
	var value int64
	err := s.update(ctx, true, func(data *fileData) {
		rec := data.record(key, s.now())
		rec.Value = max(rec.Value, floor) + 1
		rec.UpdatedAt = s.now()
		value = rec.Value
	})
	return value, err
}

// Current implements corenumerator.Store.
func (s *FileStore) Current(ctx context.Context, key corenumerator.Key) (int64, error) {
	var value int64
	err := s.update(ctx, false, func(data *fileData) {
		for _, rec := range data.Counters {
			if rec.Key() == key {
				value = rec.Value
				return
			}
		}
	})
	return value, err
}

// Seed implements corenumerator.Store.
func (s *FileStore) Seed(ctx context.Context, key corenumerator.Key, value int64) (int64, error) {
	var result int64
	err := s.update(ctx, true, func(data *fileData) {
		rec := data.record(key, s.now())
		if value > rec.Value {
			rec.Value = value
			rec.UpdatedAt = s.now()
		}
		result = rec.Value
	})
	return result, err
}

// List implements corenumerator.Store.
func (s *FileStore) List(ctx context.Context) ([]corenumerator.Record, error) {
	var out []corenumerator.Record
	err := s.update(ctx, false, func(data *fileData) {
		out = append(out, data.Counters...)
	})
	return out, err
}

// update runs fn on the file contents under both locks and writes the result
// back when write is true.
func (s *FileStore) update(ctx context.Context, write bool, fn func(*fileData)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, fileLockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(lockCtx, fileLockRetry)
	if err != nil {
		return fmt.Errorf("acquire counter file lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not acquire counter file lock for %s", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := s.load()
	if err != nil {
		return err
	}

	fn(data)

	if !write {
		return nil
	}
	data.UpdatedAt = s.now()
	return s.save(data)
}

func (s *FileStore) load() (*fileData, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &fileData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read counter file: %w", err)
	}
	if len(raw) == 0 {
		return &fileData{}, nil
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse counter file %s: %w", s.path, err)
	}
	return &data, nil
}

// save writes to a temporary file and renames it over the original.
func (s *FileStore) save(data *fileData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode counter file: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create counter directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write counter file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace counter file: %w", err)
	}
	return nil
}

func (d *fileData) record(key corenumerator.Key, now time.Time) *corenumerator.Record {
	for i := range d.Counters {
		if d.Counters[i].Key() == key {
			return &d.Counters[i]
		}
	}
	d.Counters = append(d.Counters, corenumerator.Record{Scope: key.Scope, Period: key.Period, UpdatedAt: now})
	return &d.Counters[len(d.Counters)-1]
}
