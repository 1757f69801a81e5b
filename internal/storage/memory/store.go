// Package memory is an in-process notes.Backend, used for tests and for
// ephemeral sessions.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Iron-Ham/margin/internal/notes"
)

// Name is the backend name reported in errors.
const Name = "memory"

// Store keeps notes in a map. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	data     map[string][]notes.Note
	latency  time.Duration
	failNext []error
	writes   int
}

// Option configures a Store.
type Option func(*Store)

// WithLatency delays every Load and Store by d, widening race windows in
// tests.
func WithLatency(d time.Duration) Option {
	return func(s *Store) {
		s.latency = d
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{data: make(map[string][]notes.Note)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements notes.Backend.
func (s *Store) Name() string { return Name }

// FailNextStore makes the next call to Store or Remove return err without
// writing. Calls queue up.
func (s *Store) FailNextStore(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, err)
}

// Writes returns the number of successful Store and Remove calls.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Store) delay(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load implements notes.Backend. The returned slice is a copy.
func (s *Store) Load(ctx context.Context, key string) ([]notes.Note, error) {
	if err := s.delay(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data[key]), nil
}

// Store implements notes.Backend.
func (s *Store) Store(ctx context.Context, key string, ns []notes.Note) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.popFailure(); err != nil {
		return err
	}
	if len(ns) == 0 {
		delete(s.data, key)
	} else {
		s.data[key] = slices.Clone(ns)
	}
	s.writes++
	return nil
}

// Remove implements notes.Backend.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.Store(ctx, key, nil)
}

// Keys implements notes.Backend.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// popFailure must be called with mu held.
func (s *Store) popFailure() error {
	if len(s.failNext) == 0 {
		return nil
	}
	err := s.failNext[0]
	s.failNext = s.failNext[1:]
	return err
}
