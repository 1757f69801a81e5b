// Package sqlite is a notes.Backend that stores each resource key's notes
// as one JSON row in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	merrors "github.com/Iron-Ham/margin/internal/errors"
	"github.com/Iron-Ham/margin/internal/logging"
	"github.com/Iron-Ham/margin/internal/notes"
	"github.com/Iron-Ham/margin/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Name is the backend name reported in errors.
const Name = "sqlite"

// Store persists notes in SQLite.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
	closed atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens the database at path, creating parent directories, and applies
// embedded migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(Name)
	return s, nil
}

// Close closes the database handle. Later calls report
// ErrBackendUnavailable; closing twice is a no-op.
func (s *Store) Close() error {
	if s == nil || s.db == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Debug("database closed")
	return s.db.Close()
}

// Name implements notes.Backend.
func (s *Store) Name() string { return Name }

// Load implements notes.Backend.
func (s *Store) Load(ctx context.Context, key string) ([]notes.Note, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM notes WHERE resource_key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []notes.Note{}, nil
	}
	if err != nil {
		return nil, classify("load notes", err)
	}

	var ns []notes.Note
	if err := json.Unmarshal([]byte(payload), &ns); err != nil {
		return nil, fmt.Errorf("decode notes for %q: %w", key, err)
	}
	return ns, nil
}

// Store implements notes.Backend.
func (s *Store) Store(ctx context.Context, key string, ns []notes.Note) error {
	if len(ns) == 0 {
		return s.Remove(ctx, key)
	}
	if err := s.ready(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(ns)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO notes (resource_key, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT(resource_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, string(payload), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return classify("store notes", err)
	}
	s.logger.Debug("row written", "key", key, "notes", len(ns))
	return nil
}

// Remove implements notes.Backend.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE resource_key = ?", key); err != nil {
		return classify("remove notes", err)
	}
	return nil
}

// Keys implements notes.Backend.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT resource_key FROM notes ORDER BY resource_key")
	if err != nil {
		return nil, classify("list keys", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list keys", err)
	}
	return keys, nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil || s.closed.Load() {
		return merrors.ErrBackendUnavailable
	}
	return nil
}

// classify marks lock contention and a handle closed mid-call as
// ErrBackendUnavailable.
func classify(op string, err error) error {
	if isBusy(err) || isClosed(err) {
		return fmt.Errorf("%s: %w: %w", op, merrors.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isClosed matches database/sql's errors for a closed pool or connection.
func isClosed(err error) bool {
	return errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "sql: database is closed")
}

func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
		return true
	}
	return false
}
