package logging

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRotatingWriter_CreatesNestedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", FileName)

	rw, err := NewRotatingWriter(path, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter() error: %v", err)
	}
	defer func() { _ = rw.Close() }()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
	if rw.path != path {
		t.Errorf("path = %q, want %q", rw.path, path)
	}
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rw, err := NewRotatingWriter(path, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter() error: %v", err)
	}
	if rw.size != 4 {
		t.Errorf("size = %d, want 4", rw.size)
	}
	if _, err := rw.Write([]byte("new\n")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	_ = rw.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "old\nnew\n" {
		t.Errorf("content = %q", data)
	}
}

// newTinyWriter returns a writer that rotates after roughly one kilobyte.
func newTinyWriter(t *testing.T, backups int, compress bool) (*RotatingWriter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	rw, err := NewRotatingWriter(path, RotationConfig{MaxBackups: backups, Compress: compress})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error: %v", err)
	}
	rw.maxBytes = 1024
	return rw, path
}

func TestRotatingWriter_RotatesAndCapsBackups(t *testing.T) {
	rw, path := newTinyWriter(t, 2, false)

	line := []byte(strings.Repeat("x", 600) + "\n")
	for range 5 {
		if _, err := rw.Write(line); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("backup .3 should not exist with MaxBackups=2")
	}
}

func TestRotatingWriter_Compress(t *testing.T) {
	rw, path := newTinyWriter(t, 1, true)

	payload := strings.Repeat("y", 900) + "\n"
	_, _ = rw.Write([]byte(payload))
	_, _ = rw.Write([]byte(payload))
	if err := rw.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	f, err := os.Open(path + ".1.gz")
	if err != nil {
		t.Fatalf("compressed backup missing: %v", err)
	}
	defer func() { _ = f.Close() }()

	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader() error: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	if string(data) != payload {
		t.Errorf("decompressed %d bytes, want %d", len(data), len(payload))
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("uncompressed backup should be removed after compression")
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	rw, _ := newTinyWriter(t, 1, false)
	_ = rw.Close()

	if _, err := rw.Write([]byte("late")); err == nil {
		t.Error("Write() after Close should fail")
	}
	if err := rw.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

func TestNewLoggerWithRotation(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLoggerWithRotation(dir, LevelDebug, RotationConfig{MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewLoggerWithRotation() error: %v", err)
	}
	logger.WithComponent("test").Info("hello")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"component":"test"`) {
		t.Errorf("log missing component attribute: %s", data)
	}
}
