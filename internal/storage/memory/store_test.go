package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Iron-Ham/margin/internal/notes"
	"github.com/google/go-cmp/cmp"
)

var _ notes.Backend = (*Store)(nil)

func TestStore_LoadStoreRemove(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.Load(ctx, "a")
	if err != nil || len(got) != 0 {
		t.Fatalf("Load(missing) = (%v, %v), want empty", got, err)
	}

	want := []notes.Note{{ID: "1", File: "a", Text: "one"}, {ID: "2", File: "a", Text: "two"}}
	if err := s.Store(ctx, "a", want); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	if err := s.Store(ctx, "b", []notes.Note{{ID: "3", File: "b"}}); err != nil {
		t.Fatalf("Store() = %v", err)
	}

	got, _ = s.Load(ctx, "a")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	// Mutating the returned slice must not affect the store.
	got[0].Text = "changed"
	again, _ := s.Load(ctx, "a")
	if again[0].Text != "one" {
		t.Error("Load() returned an alias of internal state")
	}

	keys, _ := s.Keys(ctx)
	if diff := cmp.Diff([]string{"a", "b"}, keys); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove() = %v", err)
	}
	if err := s.Store(ctx, "b", nil); err != nil {
		t.Fatalf("Store(empty) = %v", err)
	}
	keys, _ = s.Keys(ctx)
	if len(keys) != 0 {
		t.Errorf("Keys() = %v, want none", keys)
	}
	if s.Writes() != 4 {
		t.Errorf("Writes() = %d, want 4", s.Writes())
	}
}

func TestStore_FailNextStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("disk full")

	s.FailNextStore(boom)
	if err := s.Store(ctx, "a", []notes.Note{{ID: "1", File: "a"}}); !errors.Is(err, boom) {
		t.Fatalf("Store() = %v, want injected failure", err)
	}
	if got, _ := s.Load(ctx, "a"); len(got) != 0 {
		t.Error("failed Store should not write")
	}
	if err := s.Store(ctx, "a", []notes.Note{{ID: "1", File: "a"}}); err != nil {
		t.Errorf("second Store() = %v, want nil", err)
	}
}

func TestStore_LatencyHonorsContext(t *testing.T) {
	s := New(WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := s.Load(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Load() = %v, want DeadlineExceeded", err)
	}
}
