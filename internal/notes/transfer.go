package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/Iron-Ham/margin/internal/errors"
	"github.com/Iron-Ham/margin/internal/event"
	"github.com/sourcegraph/conc/pool"
	"gopkg.in/yaml.v3"
)

// Format is a snapshot encoding.
type Format string

// Supported snapshot formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a user-supplied format name. An empty name means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", errors.NewValidationError("unsupported snapshot format").WithField("format").WithValue(s)
	}
}

// ImportResult summarizes an Import.
type ImportResult struct {
	Keys    int
	Applied int
	Failed  int
}

// Snapshot returns every key's notes after waiting for queued writes.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := s.WaitAllIdle(ctx); err != nil {
		return nil, err
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}

	snap := make(Snapshot, len(keys))
	for _, key := range keys {
		notes, err := s.Notes(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(notes) > 0 {
			snap[key] = notes
		}
	}
	return snap, nil
}

// Export encodes the whole store in format.
func (s *Store) Export(ctx context.Context, format Format) ([]byte, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.encode(snap, format)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	s.logger.Debug("notes exported", "keys", len(snap), "notes", snap.Count(), "format", string(format))
	return data, nil
}

func (s *Store) encode(snap Snapshot, format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		if s.indent == "" {
			return json.Marshal(snap)
		}
		return json.MarshalIndent(snap, "", s.indent)
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.NewValidationError("unsupported snapshot format").WithField("format").WithValue(string(format))
	}
}

// Decode parses and validates a snapshot without touching any store.
// Notes with an empty File take the key they are listed under.
func Decode(data []byte, format Format) (Snapshot, error) {
	var snap Snapshot
	var err error
	switch format {
	case FormatJSON, "":
		format = FormatJSON
		err = json.Unmarshal(data, &snap)
	case FormatYAML:
		err = yaml.Unmarshal(data, &snap)
	default:
		return nil, errors.NewImportError("unsupported snapshot format", errors.ErrMalformedSnapshot).WithFormat(string(format))
	}
	if err != nil {
		return nil, errors.NewImportError("decode snapshot", errors.Join(errors.ErrMalformedSnapshot, err)).WithFormat(string(format))
	}
	if snap == nil {
		return nil, errors.NewImportError("snapshot is empty or null", errors.ErrMalformedSnapshot).WithFormat(string(format))
	}

	for key, notes := range snap {
		if key == "" {
			return nil, errors.NewImportError("snapshot contains an empty resource key", errors.ErrMalformedSnapshot).WithFormat(string(format))
		}
		for i := range notes {
			if notes[i].File == "" {
				notes[i].File = key
			}
			if notes[i].File != key {
				return nil, errors.NewImportError(
					fmt.Sprintf("note file %q does not match key", notes[i].File),
					errors.Join(errors.ErrMalformedSnapshot, errors.ErrInvalidNote),
				).WithFormat(string(format)).WithKey(key).WithNoteID(notes[i].ID)
			}
			if err := notes[i].Validate(); err != nil {
				return nil, errors.NewImportError("invalid note", errors.Join(errors.ErrMalformedSnapshot, err)).
					WithFormat(string(format)).WithKey(key).WithNoteID(notes[i].ID)
			}
		}
	}
	return snap, nil
}

// Import decodes data and saves every note it contains. Nothing is written
// unless the whole snapshot decodes and validates. After that, each key's
// notes are saved in order while different keys proceed concurrently; a
// failed save does not undo the ones before it, and all failures are
// returned joined.
func (s *Store) Import(ctx context.Context, data []byte, format Format) (ImportResult, error) {
	snap, err := Decode(data, format)
	if err != nil {
		s.logger.Warn("import rejected", "error", err)
		return ImportResult{}, err
	}
	return s.Apply(ctx, snap)
}

// Apply saves every note in snap through Save.
func (s *Store) Apply(ctx context.Context, snap Snapshot) (ImportResult, error) {
	keys := make([]string, 0, len(snap))
	for key := range snap {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var applied, failed atomic.Int64
	p := pool.New().WithErrors().WithMaxGoroutines(s.parallel)
	for _, key := range keys {
		notes := snap[key]
		p.Go(func() error {
			var errs []error
			for _, note := range notes {
				if err := s.Save(ctx, note); err != nil {
					failed.Add(1)
					errs = append(errs, fmt.Errorf("import note %s: %w", note.ID, err))
					continue
				}
				applied.Add(1)
			}
			return errors.Join(errs...)
		})
	}
	err := p.Wait()

	result := ImportResult{Keys: len(keys), Applied: int(applied.Load()), Failed: int(failed.Load())}
	s.logger.Info("notes imported", "keys", result.Keys, "applied", result.Applied, "failed", result.Failed)
	s.bus.Publish(event.NewNotesImportedEvent(result.Keys, result.Applied, result.Failed))
	return result, err
}
