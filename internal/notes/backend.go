package notes

import "context"

// Backend persists the note collection of each resource key.
//
// Implementations must be safe for concurrent use, but they need not order
// writes to the same key; Store serializes those.
type Backend interface {
	// Name identifies the backend in errors and logs.
	Name() string
	// Load returns the notes stored for key, or an empty slice if none.
	Load(ctx context.Context, key string) ([]Note, error)
	// Store replaces the notes for key. An empty slice removes the key.
	Store(ctx context.Context, key string, notes []Note) error
	// Remove deletes every note for key. Removing a missing key succeeds.
	Remove(ctx context.Context, key string) error
	// Keys returns the keys that hold notes, sorted.
	Keys(ctx context.Context) ([]string, error)
}
