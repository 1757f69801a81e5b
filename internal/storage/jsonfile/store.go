package jsonfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/margin/internal/logging"
	"github.com/Iron-Ham/margin/internal/notes"
)

// Name is the backend name reported in errors.
const Name = "jsonfile"

const fileExt = ".json"

// DefaultLockTimeout bounds how long a write waits for another process.
const DefaultLockTimeout = 5 * time.Second

// document is the on-disk form of one key's notes.
type document struct {
	File  string       `json:"file"`
	Notes []notes.Note `json:"notes"`
}

// Store is a directory of per-key JSON documents.
type Store struct {
	dir         string
	lockTimeout time.Duration
	logger      *logging.Logger

	mu      sync.Mutex
	written map[string]string // file name -> digest of our last write, "" after our remove
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout sets how long writes wait for the directory lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open creates dir if needed and returns a Store rooted there.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("jsonfile: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create notes directory: %w", err)
	}
	s := &Store{
		dir:         dir,
		lockTimeout: DefaultLockTimeout,
		logger:      logging.NopLogger(),
		written:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(Name)
	return s, nil
}

// Name implements notes.Backend.
func (s *Store) Name() string { return Name }

// Dir returns the directory holding the documents.
func (s *Store) Dir() string { return s.dir }

// FileName returns the document name used for key.
func FileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16] + fileExt
}

// Path returns the document path used for key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, FileName(key))
}

// Load implements notes.Backend.
func (s *Store) Load(ctx context.Context, key string) ([]notes.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := readDocument(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return []notes.Note{}, nil
	}
	if err != nil {
		return nil, err
	}
	if doc.File != key {
		return nil, fmt.Errorf("document %s belongs to %q, not %q", FileName(key), doc.File, key)
	}
	return doc.Notes, nil
}

func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document{}, err
	}
	return decodeDocument(filepath.Base(path), data)
}

func decodeDocument(name string, data []byte) (document, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", name, err)
	}
	return doc, nil
}

// Store implements notes.Backend.
func (s *Store) Store(ctx context.Context, key string, ns []notes.Note) error {
	if len(ns) == 0 {
		return s.Remove(ctx, key)
	}
	data, err := json.MarshalIndent(document{File: key, Notes: ns}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}

	return s.withLock(ctx, func() error {
		name := FileName(key)
		target := filepath.Join(s.dir, name)

		tmp, err := os.CreateTemp(s.dir, ".margin-*.tmp")
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
		tmpName := tmp.Name()
		_, writeErr := tmp.Write(data)
		closeErr := tmp.Close()
		if err := errors.Join(writeErr, closeErr); err != nil {
			_ = os.Remove(tmpName)
			return fmt.Errorf("write temp file: %w", err)
		}

		s.remember(name, digest(data))
		if err := os.Rename(tmpName, target); err != nil {
			_ = os.Remove(tmpName) // best-effort cleanup
			s.forget(name)
			return fmt.Errorf("rename temp file: %w", err)
		}
		s.logger.Debug("document written", "key", key, "file", name, "notes", len(ns))
		return nil
	})
}

// Remove implements notes.Backend.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.withLock(ctx, func() error {
		name := FileName(key)
		s.remember(name, "")
		err := os.Remove(filepath.Join(s.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			s.forget(name)
			return nil
		}
		if err != nil {
			s.forget(name)
			return fmt.Errorf("remove document: %w", err)
		}
		s.logger.Debug("document removed", "key", key, "file", name)
		return nil
	})
}

// Keys implements notes.Backend. Unreadable documents are skipped.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read notes directory: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !isDocument(e.Name()) {
			continue
		}
		doc, err := readDocument(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable document", "file", e.Name(), "error", err)
			continue
		}
		if doc.File != "" && len(doc.Notes) > 0 {
			keys = append(keys, doc.File)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	fl := newFileLock(s.dir)
	if err := fl.lock(ctx, s.lockTimeout); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.unlock() }()
	return fn()
}

func (s *Store) remember(name, sum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written[name] = sum
}

func (s *Store) forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.written, name)
}

// ownWrite reports whether the current state of name was produced by this
// Store. sum is "" for a missing file.
func (s *Store) ownWrite(name, sum string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.written[name]
	return ok && last == sum
}

func isDocument(name string) bool {
	return strings.HasSuffix(name, fileExt) && !strings.HasPrefix(name, ".")
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
