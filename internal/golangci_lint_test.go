package internal

import (
	"os"
	"os/exec"
	"testing"
)

// TestGolangciLintCompliance runs golangci-lint over the margin module.
// It is skipped in -short mode and when golangci-lint is not installed.
func TestGolangciLintCompliance(t *testing.T) {
	if testing.Short() {
		t.Skip("lint run skipped in -short mode")
	}
	bin, err := exec.LookPath("golangci-lint")
	if err != nil {
		t.Skip("golangci-lint not found in PATH")
	}

	// Sandboxed runners may not allow writes to the default build cache.
	cmd := exec.CommandContext(t.Context(), bin, "run", "--allow-parallel-runners", "./...")
	cmd.Dir = moduleRoot(t)
	cmd.Env = append(os.Environ(), "GOCACHE="+t.TempDir())
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Errorf("golangci-lint run: %v\n%s", err, out)
	}
}
