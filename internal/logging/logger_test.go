package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// decodeLines parses every JSON log line in buf.
func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()

	var entries []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLoggerWithRotation_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := NewLoggerWithRotation(dir, LevelDebug, RotationConfig{})
	if err != nil {
		t.Fatalf("NewLoggerWithRotation() error: %v", err)
	}
	logger.Info("store opened", "backend", "jsonfile")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	entries := decodeLines(t, data)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["msg"] != "store opened" || entries[0]["backend"] != "jsonfile" {
		t.Errorf("unexpected entry: %v", entries[0])
	}
}

func TestNewLoggerWithRotation_EmptyDirUsesStderr(t *testing.T) {
	logger, err := NewLoggerWithRotation("", LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLoggerWithRotation() error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on stderr logger should be a no-op, got %v", err)
	}
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{LevelDebug, 4},
		{LevelInfo, 3},
		{LevelWarn, 2},
		{LevelError, 1},
		{"bogus", 3},
		{"debug", 4},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWriterLogger(&buf, tt.level)
			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")

			if got := len(decodeLines(t, buf.Bytes())); got != tt.want {
				t.Errorf("level %s emitted %d lines, want %d", tt.level, got, tt.want)
			}
		})
	}
}

func TestLogger_ChildAttributes(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriterLogger(&buf, LevelDebug)

	child := root.WithComponent("notes").WithKey("file:///a.go").With("attempt", 2, 99, "skipped")
	child.Debug("note saved", "note_id", "n-1")
	root.Debug("root line")

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	got := entries[0]
	for key, want := range map[string]any{
		"component": "notes",
		"key":       "file:///a.go",
		"attempt":   float64(2),
		"note_id":   "n-1",
	} {
		if got[key] != want {
			t.Errorf("entry[%q] = %v, want %v", key, got[key], want)
		}
	}
	if _, ok := entries[1]["component"]; ok {
		t.Error("parent logger should not inherit child attributes")
	}
}

func TestLogger_WithNoArgsReturnsSame(t *testing.T) {
	logger := NopLogger()
	if logger.With() != logger {
		t.Error("With() without args should return the receiver")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Error("discarded", "k", "v")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug": LevelDebug,
		"INFO":  LevelInfo,
		"Warn":  LevelWarn,
		"error": LevelError,
		"":      LevelInfo,
		"trace": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
	for _, level := range ValidLevels() {
		if got := ParseLevel(level); got != level {
			t.Errorf("ParseLevel(%q) = %q, want it unchanged", level, got)
		}
	}
}
