package notes

import (
	"time"

	"github.com/Iron-Ham/margin/internal/errors"
	"github.com/google/uuid"
)

// Position is a zero-based location inside a document.
type Position struct {
	Line      int `json:"line" yaml:"line"`
	Character int `json:"character" yaml:"character"`
}

// Range is the span of text a note is anchored to.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Before reports whether p comes strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// Note is a single annotation.
type Note struct {
	ID              string    `json:"id" yaml:"id"`
	File            string    `json:"file" yaml:"file"`
	Quote           string    `json:"quote,omitempty" yaml:"quote,omitempty"`
	Position        Range     `json:"position" yaml:"position"`
	Text            string    `json:"text" yaml:"text"`
	CreatedAt       time.Time `json:"createdAt" yaml:"createdAt"`
	IsDocumentLevel bool      `json:"isDocumentLevel,omitempty" yaml:"isDocumentLevel,omitempty"`
}

// NewID returns a fresh note identifier.
func NewID() string {
	return uuid.NewString()
}

// New creates a note for file with a fresh ID and the current time.
func New(file, text string) Note {
	return Note{
		ID:        NewID(),
		File:      file,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the fields every stored note must carry.
func (n Note) Validate() error {
	if n.ID == "" {
		return errors.NewValidationError("note id cannot be empty").WithField("id").WithCause(errors.ErrInvalidNote)
	}
	if n.File == "" {
		return errors.NewValidationError("note file cannot be empty").WithField("file").WithCause(errors.ErrInvalidNote)
	}
	start, end := n.Position.Start, n.Position.End
	if start.Line < 0 || start.Character < 0 || end.Line < 0 || end.Character < 0 {
		return errors.NewValidationError("note position cannot be negative").
			WithField("position").
			WithValue(n.Position).
			WithCause(errors.ErrInvalidNote)
	}
	if end.Before(start) {
		return errors.NewValidationError("note position ends before it starts").
			WithField("position").
			WithValue(n.Position).
			WithCause(errors.ErrInvalidNote)
	}
	return nil
}

// Snapshot maps resource keys to their ordered notes.
type Snapshot map[string][]Note

// Count returns the total number of notes in the snapshot.
func (s Snapshot) Count() int {
	total := 0
	for _, notes := range s {
		total += len(notes)
	}
	return total
}
