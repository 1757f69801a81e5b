// Package internal contains integration tests that run the note store over
// every storage backend and check the backends agree with each other.
package internal

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/margin/internal/event"
	"github.com/Iron-Ham/margin/internal/notes"
	"github.com/Iron-Ham/margin/internal/storage/jsonfile"
	"github.com/Iron-Ham/margin/internal/storage/memory"
	"github.com/Iron-Ham/margin/internal/storage/sqlite"
	"github.com/google/go-cmp/cmp"
)

type backendFactory struct {
	name string
	open func(t *testing.T) notes.Backend
}

func backends() []backendFactory {
	return []backendFactory{
		{name: memory.Name, open: func(t *testing.T) notes.Backend { return memory.New() }},
		{name: jsonfile.Name, open: func(t *testing.T) notes.Backend {
			s, err := jsonfile.Open(t.TempDir())
			if err != nil {
				t.Fatalf("jsonfile.Open: %v", err)
			}
			return s
		}},
		{name: sqlite.Name, open: func(t *testing.T) notes.Backend {
			s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "notes.db"))
			if err != nil {
				t.Fatalf("sqlite.Open: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

// TestBackendConcurrentSaves fires concurrent saves at a few documents on
// every backend and checks that none is lost.
func TestBackendConcurrentSaves(t *testing.T) {
	const (
		docs    = 4
		perDoc  = 25
		timeout = 30 * time.Second
	)

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			store := notes.NewStore(b.open(t))

			var wg sync.WaitGroup
			errs := make(chan error, docs*perDoc)
			for d := range docs {
				key := fmt.Sprintf("file:///doc-%d.go", d)
				for i := range perDoc {
					wg.Add(1)
					go func() {
						defer wg.Done()
						errs <- store.Save(ctx, notes.New(key, fmt.Sprintf("note %d", i)))
					}()
				}
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("Save: %v", err)
				}
			}

			keys, err := store.Keys(ctx)
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if len(keys) != docs {
				t.Fatalf("Keys = %v, want %d documents", keys, docs)
			}
			for _, key := range keys {
				ns, err := store.Notes(ctx, key)
				if err != nil {
					t.Fatalf("Notes(%s): %v", key, err)
				}
				if len(ns) != perDoc {
					t.Errorf("Notes(%s) has %d notes, want %d", key, len(ns), perDoc)
				}
			}
			if n := store.ActiveLocks(); n != 0 {
				t.Errorf("ActiveLocks() = %d after all saves settled, want 0", n)
			}
			if err := store.Close(ctx); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
	}
}

// TestBackendMigration exports from each backend and imports into every
// other one, expecting identical snapshots.
func TestBackendMigration(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := notes.Snapshot{
		"file:///a.go": {
			{ID: "a-1", File: "file:///a.go", Text: "first", CreatedAt: created, Quote: "x := 1",
				Position: notes.Range{Start: notes.Position{Line: 2}, End: notes.Position{Line: 2, Character: 6}}},
			{ID: "a-2", File: "file:///a.go", Text: "whole file", CreatedAt: created, IsDocumentLevel: true},
		},
		"file:///b.md": {
			{ID: "b-1", File: "file:///b.md", Text: "typo", CreatedAt: created},
		},
	}

	for _, from := range backends() {
		for _, to := range backends() {
			if from.name == to.name {
				continue
			}
			t.Run(from.name+"->"+to.name, func(t *testing.T) {
				src := notes.NewStore(from.open(t))
				if _, err := src.Apply(ctx, seed); err != nil {
					t.Fatalf("Apply: %v", err)
				}
				data, err := src.Export(ctx, notes.FormatYAML)
				if err != nil {
					t.Fatalf("Export: %v", err)
				}

				dst := notes.NewStore(to.open(t))
				result, err := dst.Import(ctx, data, notes.FormatYAML)
				if err != nil {
					t.Fatalf("Import: %v", err)
				}
				if result.Applied != seed.Count() {
					t.Errorf("Applied = %d, want %d", result.Applied, seed.Count())
				}

				got, err := dst.Snapshot(ctx)
				if err != nil {
					t.Fatalf("Snapshot: %v", err)
				}
				if diff := cmp.Diff(seed, got); diff != "" {
					t.Errorf("migrated snapshot mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

// TestWatchSeesOtherWriter opens one notes directory twice, as two
// processes would, and checks that a save through one is reported by a
// watch on the other and published on its bus.
func TestWatchSeesOtherWriter(t *testing.T) {
	dir := t.TempDir()
	const key = "file:///shared.go"

	writerFiles, err := jsonfile.Open(dir)
	if err != nil {
		t.Fatalf("Open writer: %v", err)
	}
	readerFiles, err := jsonfile.Open(dir)
	if err != nil {
		t.Fatalf("Open reader: %v", err)
	}

	bus := event.NewBus()
	changed := make(chan event.NotesChangedEvent, 16)
	bus.Subscribe(event.TypeNotesChanged, func(e event.Event) {
		if c, ok := e.(event.NotesChangedEvent); ok {
			changed <- c
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- readerFiles.Watch(ctx, func(c jsonfile.Change) {
			bus.Publish(event.NewNotesChangedEvent(c.Key, c.Path, c.Removed))
		})
	}()

	writer := notes.NewStore(writerFiles)
	reader := notes.NewStore(readerFiles)

	// The watcher starts asynchronously, so keep writing until it reports.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var got event.NotesChangedEvent
wait:
	for i := 0; ; i++ {
		select {
		case got = <-changed:
			break wait
		case <-ticker.C:
			if err := writer.Save(ctx, notes.New(key, fmt.Sprintf("edit %d", i))); err != nil {
				t.Fatalf("Save: %v", err)
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for the watch to report a change")
		}
	}

	if got.Key != key || got.Removed {
		t.Errorf("change = %+v, want key %s not removed", got, key)
	}

	ns, err := reader.Notes(ctx, key)
	if err != nil {
		t.Fatalf("reader Notes: %v", err)
	}
	if len(ns) == 0 {
		t.Error("reader sees no notes after the watch fired")
	}

	cancel()
	if err := <-watchDone; err != nil {
		t.Errorf("Watch returned %v, want nil after cancel", err)
	}
}
