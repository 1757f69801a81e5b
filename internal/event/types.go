package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "note.saved", "lock.evicted")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeNoteSaved     = "note.saved"
	TypeNoteDeleted   = "note.deleted"
	TypeNotesCleared  = "notes.cleared"
	TypeNotesImported = "notes.imported"
	TypeNotesChanged  = "notes.changed"
	TypeLockEvicted   = "lock.evicted"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Note Events
// -----------------------------------------------------------------------------

// NoteSavedEvent is emitted after a save-one operation persisted a note.
type NoteSavedEvent struct {
	baseEvent
	Key      string // Resource key (document URI)
	NoteID   string
	Replaced bool // true when an existing note with the same ID was overwritten
	Count    int  // Notes under Key after the save
}

// NewNoteSavedEvent creates a NoteSavedEvent.
func NewNoteSavedEvent(key, noteID string, replaced bool, count int) NoteSavedEvent {
	return NoteSavedEvent{
		baseEvent: newBaseEvent(TypeNoteSaved),
		Key:       key,
		NoteID:    noteID,
		Replaced:  replaced,
		Count:     count,
	}
}

// NoteDeletedEvent is emitted after a delete-one operation settled.
type NoteDeletedEvent struct {
	baseEvent
	Key    string
	NoteID string
	Found  bool // false when no note with NoteID existed
}

// NewNoteDeletedEvent creates a NoteDeletedEvent.
func NewNoteDeletedEvent(key, noteID string, found bool) NoteDeletedEvent {
	return NoteDeletedEvent{
		baseEvent: newBaseEvent(TypeNoteDeleted),
		Key:       key,
		NoteID:    noteID,
		Found:     found,
	}
}

// NotesClearedEvent is emitted after every note under a key was removed.
type NotesClearedEvent struct {
	baseEvent
	Key     string
	Removed int
}

// NewNotesClearedEvent creates a NotesClearedEvent.
func NewNotesClearedEvent(key string, removed int) NotesClearedEvent {
	return NotesClearedEvent{
		baseEvent: newBaseEvent(TypeNotesCleared),
		Key:       key,
		Removed:   removed,
	}
}

// NotesImportedEvent is emitted when a snapshot import finished applying.
type NotesImportedEvent struct {
	baseEvent
	Keys    int // Resource keys present in the snapshot
	Applied int // Notes persisted successfully
	Failed  int // Notes whose apply failed
}

// NewNotesImportedEvent creates a NotesImportedEvent.
func NewNotesImportedEvent(keys, applied, failed int) NotesImportedEvent {
	return NotesImportedEvent{
		baseEvent: newBaseEvent(TypeNotesImported),
		Keys:      keys,
		Applied:   applied,
		Failed:    failed,
	}
}

// NotesChangedEvent is emitted when a backend observes notes for a key
// changing outside this process.
type NotesChangedEvent struct {
	baseEvent
	Key     string // Empty when the key could not be resolved
	Path    string // Backend location that changed
	Removed bool
}

// NewNotesChangedEvent creates a NotesChangedEvent.
func NewNotesChangedEvent(key, path string, removed bool) NotesChangedEvent {
	return NotesChangedEvent{
		baseEvent: newBaseEvent(TypeNotesChanged),
		Key:       key,
		Path:      path,
		Removed:   removed,
	}
}

// -----------------------------------------------------------------------------
// Lock Events
// -----------------------------------------------------------------------------

// LockEvictedEvent is emitted when the keyed registry drops an idle serializer.
type LockEvictedEvent struct {
	baseEvent
	Key string
}

// NewLockEvictedEvent creates a LockEvictedEvent.
func NewLockEvictedEvent(key string) LockEvictedEvent {
	return LockEvictedEvent{
		baseEvent: newBaseEvent(TypeLockEvicted),
		Key:       key,
	}
}
