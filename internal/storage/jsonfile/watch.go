package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval collapses the burst of events a single rename produces.
const debounceInterval = 50 * time.Millisecond

// Change describes a document modified outside this Store.
type Change struct {
	Key     string
	Path    string
	Removed bool
}

// Watch reports documents changed on disk by other writers until ctx is
// done. Changes made through this Store are not reported. fn runs on the
// watch goroutine; Watch returns after the watcher shuts down.
func (s *Store) Watch(ctx context.Context, fn func(Change)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	// Remember which key each document holds so removals can be reported.
	keys := s.indexKeys()

	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !isDocument(name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[name] = struct{}{}
			debounce.Reset(debounceInterval)

		case <-debounce.C:
			for name := range pending {
				if change, ok := s.resolve(name, keys); ok {
					fn(change)
				}
			}
			pending = make(map[string]struct{})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

// resolve turns a settled file name into a Change, updating keys.
func (s *Store) resolve(name string, keys map[string]string) (Change, bool) {
	path := filepath.Join(s.dir, name)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		key, known := keys[name]
		delete(keys, name)
		if !known || s.ownWrite(name, "") {
			return Change{}, false
		}
		return Change{Key: key, Path: path, Removed: true}, true
	}
	if err != nil {
		s.logger.Warn("read changed document", "file", name, "error", err)
		return Change{}, false
	}

	doc, err := decodeDocument(name, data)
	if err != nil || doc.File == "" {
		s.logger.Warn("ignoring malformed document", "file", name, "error", err)
		return Change{}, false
	}
	keys[name] = doc.File
	if s.ownWrite(name, digest(data)) {
		return Change{}, false
	}
	return Change{Key: doc.File, Path: path}, true
}

func (s *Store) indexKeys() map[string]string {
	keys := make(map[string]string)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return keys
	}
	for _, e := range entries {
		if e.IsDir() || !isDocument(e.Name()) {
			continue
		}
		if doc, err := readDocument(filepath.Join(s.dir, e.Name())); err == nil && doc.File != "" {
			keys[e.Name()] = doc.File
		}
	}
	return keys
}
