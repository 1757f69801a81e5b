package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/margin/internal/notes"
	"github.com/google/go-cmp/cmp"
)

var _ notes.Backend = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), WithLockTimeout(time.Second))
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	return s
}

func TestOpen_RequiresDir(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") should fail")
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	key := "file:///src/main.go"

	got, err := s.Load(ctx, key)
	if err != nil || len(got) != 0 {
		t.Fatalf("Load(missing) = (%v, %v), want empty", got, err)
	}

	want := []notes.Note{
		{ID: "1", File: key, Text: "one", CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", File: key, Text: "two", IsDocumentLevel: true},
	}
	if err := s.Store(ctx, key, want); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	got, err = s.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		t.Fatalf("document missing: %v", err)
	}
	if !strings.Contains(string(data), `"file": "file:///src/main.go"`) {
		t.Errorf("document does not record its key:\n%s", data)
	}
}

func TestStore_FileNaming(t *testing.T) {
	name := FileName("file:///a b/ünïcode?.go")
	if len(name) != 16+len(fileExt) || !strings.HasSuffix(name, fileExt) {
		t.Errorf("FileName() = %q", name)
	}
	if FileName("a") == FileName("b") {
		t.Error("distinct keys should map to distinct names")
	}
	if FileName("a") != FileName("a") {
		t.Error("FileName should be deterministic")
	}
}

func TestStore_KeysAndRemove(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, key := range []string{"file:///b.go", "file:///a.go", "untitled:1"} {
		if err := s.Store(ctx, key, []notes.Note{{ID: "x", File: key}}); err != nil {
			t.Fatalf("Store(%s) = %v", key, err)
		}
	}
	// Stray files are ignored.
	_ = os.WriteFile(filepath.Join(s.Dir(), "README.txt"), []byte("hi"), 0o644)
	_ = os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{"), 0o644)

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() = %v", err)
	}
	if diff := cmp.Diff([]string{"file:///a.go", "file:///b.go", "untitled:1"}, keys); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	if err := s.Remove(ctx, "file:///a.go"); err != nil {
		t.Fatalf("Remove() = %v", err)
	}
	if err := s.Remove(ctx, "file:///a.go"); err != nil {
		t.Errorf("second Remove() = %v, want nil", err)
	}
	if err := s.Store(ctx, "untitled:1", nil); err != nil {
		t.Fatalf("Store(empty) = %v", err)
	}
	if _, err := os.Stat(s.Path("untitled:1")); !os.IsNotExist(err) {
		t.Error("storing an empty slice should remove the document")
	}

	keys, _ = s.Keys(ctx)
	if diff := cmp.Diff([]string{"file:///b.go"}, keys); diff != "" {
		t.Errorf("Keys() after remove mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_LoadRejectsForeignDocument(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	doc := `{"file": "file:///other.go", "notes": []}`
	if err := os.WriteFile(s.Path("file:///mine.go"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "file:///mine.go"); err == nil {
		t.Error("Load() should reject a document recorded under another key")
	}
}

func TestStore_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := range 10 {
		_ = s.Store(ctx, "k", []notes.Note{{ID: fmt.Sprint(i), File: "k"}})
	}
	entries, _ := os.ReadDir(s.Dir())
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestStore_WithNoteStoreNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	store := notes.NewStore(openTestStore(t))
	key := "file:///contended.go"

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Go(func() {
			if err := store.Save(ctx, notes.Note{ID: fmt.Sprintf("note-%d", i), File: key}); err != nil {
				t.Errorf("Save() = %v", err)
			}
		})
	}
	wg.Wait()

	got, err := store.Notes(ctx, key)
	if err != nil {
		t.Fatalf("Notes() = %v", err)
	}
	if len(got) != 100 {
		t.Errorf("got %d notes, want 100", len(got))
	}
}
