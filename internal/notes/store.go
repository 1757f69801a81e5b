package notes

import (
	"context"
	"io"
	"slices"

	"github.com/Iron-Ham/margin/internal/errors"
	"github.com/Iron-Ham/margin/internal/event"
	"github.com/Iron-Ham/margin/internal/logging"
	"github.com/Iron-Ham/margin/internal/serial"
)

// DefaultParallel is the number of keys Import applies concurrently when
// no limit is configured.
const DefaultParallel = 4

// Store is the note collection for all documents, backed by a Backend.
// Each Store owns its own lock registry.
type Store struct {
	backend  Backend
	locks    *serial.Registry[string]
	bus      *event.Bus
	logger   *logging.Logger
	parallel int
	indent   string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for store and lock activity.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBus publishes note events to bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Store) {
		s.bus = bus
	}
}

// WithParallel bounds how many keys Import applies at once.
func WithParallel(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.parallel = n
		}
	}
}

// WithIndent sets the indentation Export uses. An empty string produces
// compact JSON.
func WithIndent(indent string) Option {
	return func(s *Store) {
		s.indent = indent
	}
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		logger:   logging.NopLogger(),
		parallel: DefaultParallel,
		indent:   "  ",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.locks = serial.NewRegistry[string](serial.WithLogger(s.logger), serial.WithBus(s.bus))
	s.logger = s.logger.WithComponent("notes").With("backend", backend.Name())
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Notes returns the notes stored for key in order. It does not wait for
// in-flight writes; call WaitIdle first for a consistent view.
func (s *Store) Notes(ctx context.Context, key string) ([]Note, error) {
	notes, err := s.backend.Load(ctx, key)
	if err != nil {
		return nil, s.storageError("load notes", "load", key, err)
	}
	return slices.Clone(notes), nil
}

// Keys returns the resource keys that currently hold notes, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return nil, s.storageError("list keys", "keys", "", err)
	}
	slices.Sort(keys)
	return keys, nil
}

// Save stores note under its File key, replacing the note with the same ID
// or appending it. Concurrent saves to one key are applied in arrival order.
func (s *Store) Save(ctx context.Context, note Note) error {
	if err := note.Validate(); err != nil {
		return err
	}
	key := note.File

	_, err := s.locks.Do(ctx, key, func(ctx context.Context) (any, error) {
		notes, err := s.backend.Load(ctx, key)
		if err != nil {
			return nil, s.storageError("load notes", "load", key, err)
		}

		replaced := false
		if i := slices.IndexFunc(notes, func(n Note) bool { return n.ID == note.ID }); i >= 0 {
			notes[i] = note
			replaced = true
		} else {
			notes = append(notes, note)
		}

		if err := s.backend.Store(ctx, key, notes); err != nil {
			return nil, s.storageError("write notes", "store", key, err)
		}

		s.logger.Debug("note saved", "key", key, "note_id", note.ID, "replaced", replaced, "count", len(notes))
		s.bus.Publish(event.NewNoteSavedEvent(key, note.ID, replaced, len(notes)))
		return nil, nil
	})
	return err
}

// Delete removes the note with id from key. Deleting an id that is not
// present succeeds without writing.
func (s *Store) Delete(ctx context.Context, id, key string) error {
	_, err := s.locks.Do(ctx, key, func(ctx context.Context) (any, error) {
		notes, err := s.backend.Load(ctx, key)
		if err != nil {
			return nil, s.storageError("load notes", "load", key, err)
		}

		kept := slices.DeleteFunc(notes, func(n Note) bool { return n.ID == id })
		found := len(kept) != len(notes)
		if found {
			if err := s.backend.Store(ctx, key, kept); err != nil {
				return nil, s.storageError("write notes", "store", key, err)
			}
		}

		s.logger.Debug("note deleted", "key", key, "note_id", id, "found", found)
		s.bus.Publish(event.NewNoteDeletedEvent(key, id, found))
		return nil, nil
	})
	return err
}

// DeleteAll removes every note stored for key.
func (s *Store) DeleteAll(ctx context.Context, key string) error {
	_, err := s.locks.Do(ctx, key, func(ctx context.Context) (any, error) {
		notes, err := s.backend.Load(ctx, key)
		if err != nil {
			return nil, s.storageError("load notes", "load", key, err)
		}
		if err := s.backend.Remove(ctx, key); err != nil {
			return nil, s.storageError("remove notes", "remove", key, err)
		}

		s.logger.Debug("notes cleared", "key", key, "removed", len(notes))
		s.bus.Publish(event.NewNotesClearedEvent(key, len(notes)))
		return nil, nil
	})
	return err
}

// WaitIdle blocks until writes already queued for key have finished.
func (s *Store) WaitIdle(ctx context.Context, key string) error {
	return s.locks.WaitIdle(ctx, key)
}

// WaitAllIdle blocks until writes already queued for any key have finished.
func (s *Store) WaitAllIdle(ctx context.Context) error {
	return s.locks.WaitAllIdle(ctx)
}

// ActiveLocks returns the number of keys with queued or running writes.
func (s *Store) ActiveLocks() int {
	return s.locks.ActiveCount()
}

// Close waits for queued writes and then closes the backend if it holds
// resources. The backend is closed even when ctx ends before the writes
// finish; both errors are returned.
func (s *Store) Close(ctx context.Context) error {
	waitErr := s.WaitAllIdle(ctx)
	if waitErr != nil {
		s.logger.Warn("closing with writes still queued", "active_locks", s.ActiveLocks(), "error", waitErr)
	}
	var closeErr error
	if c, ok := s.backend.(io.Closer); ok {
		closeErr = c.Close()
	}
	return errors.Join(waitErr, closeErr)
}

// storageError wraps a backend failure. Errors that already carry storage
// context are passed through.
func (s *Store) storageError(message, op, key string, err error) error {
	var se *errors.StorageError
	if errors.As(err, &se) {
		return err
	}
	serr := errors.NewStorageError(message, err).WithBackend(s.backend.Name()).WithOp(op)
	if key != "" {
		serr = serr.WithKey(key)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		serr = serr.WithRetryable(false)
	}
	return serr
}
