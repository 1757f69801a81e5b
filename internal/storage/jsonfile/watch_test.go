package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/Iron-Ham/margin/internal/notes"
)

func writeExternal(t *testing.T, s *Store, key string) {
	t.Helper()
	data, _ := json.Marshal(document{File: key, Notes: []notes.Note{{ID: "ext", File: key}}})
	if err := os.WriteFile(s.Path(key), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func startWatch(t *testing.T, s *Store) <-chan Change {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan Change, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(c Change) { changes <- c })
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch() = %v", err)
		}
	})
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return changes
}

func nextChange(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case c := <-changes:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func TestWatch_ReportsExternalWrites(t *testing.T) {
	s := openTestStore(t)
	changes := startWatch(t, s)

	// Our own write must not be reported.
	if err := s.Store(context.Background(), "file:///own.go", []notes.Note{{ID: "1", File: "file:///own.go"}}); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	writeExternal(t, s, "file:///ext.go")

	c := nextChange(t, changes)
	if c.Key != "file:///ext.go" || c.Removed {
		t.Errorf("change = %+v, want external write to file:///ext.go", c)
	}
	if c.Path != s.Path("file:///ext.go") {
		t.Errorf("change path = %q", c.Path)
	}
}

func TestWatch_ReportsExternalRemoval(t *testing.T) {
	s := openTestStore(t)
	key := "file:///gone.go"
	writeExternal(t, s, key)

	changes := startWatch(t, s)
	if err := os.Remove(s.Path(key)); err != nil {
		t.Fatal(err)
	}

	c := nextChange(t, changes)
	if c.Key != key || !c.Removed {
		t.Errorf("change = %+v, want removal of %s", c, key)
	}
}

func TestWatch_IgnoresOwnRemoval(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	own := "file:///own.go"
	if err := s.Store(ctx, own, []notes.Note{{ID: "1", File: own}}); err != nil {
		t.Fatal(err)
	}

	changes := startWatch(t, s)
	if err := s.Remove(ctx, own); err != nil {
		t.Fatal(err)
	}
	writeExternal(t, s, "file:///marker.go")

	c := nextChange(t, changes)
	if c.Key != "file:///marker.go" {
		t.Errorf("first change = %+v, want only the external marker", c)
	}
}
