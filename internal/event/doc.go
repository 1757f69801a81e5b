// Package event provides a pub-sub event bus for decoupled observation of
// note storage in margin.
//
// The note store and the keyed lock registry publish events as they mutate
// state; the CLI and tests subscribe to them without the publishers knowing
// who listens.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Note mutations:
//   - [NoteSavedEvent]: a note was inserted or replaced under a resource key
//   - [NoteDeletedEvent]: a delete-one operation settled
//   - [NotesClearedEvent]: every note under a resource key was removed
//   - [NotesImportedEvent]: a snapshot import finished applying
//   - [NotesChangedEvent]: a backend observed an out-of-process change
//
// Lock lifecycle:
//   - [LockEvictedEvent]: an idle per-key serializer left the registry
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called synchronously
// on the publishing goroutine and protected against panics: a panicking handler
// will not prevent other handlers from being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	bus.Subscribe(event.TypeNoteSaved, func(e event.Event) {
//	    saved := e.(event.NoteSavedEvent)
//	    fmt.Println(saved.Key, saved.NoteID)
//	})
//
//	id := bus.SubscribeAll(func(e event.Event) { ... })
//	bus.Unsubscribe(id)
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - note.saved, note.deleted
//   - notes.cleared, notes.imported, notes.changed
//   - lock.evicted
package event
