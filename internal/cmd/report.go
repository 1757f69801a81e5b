package cmd

import (
	"fmt"
	"io"

	"github.com/Iron-Ham/margin/internal/errors"
	"github.com/Iron-Ham/margin/internal/logging"
)

// Exit codes returned by ReportError.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitInvalid = 2 // bad input: validation failures, unknown notes
)

// ReportError prints err to w with a hint suited to its classification and
// returns the exit code the process should use.
func ReportError(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}

	label := "Error"
	if errors.GetSeverity(err) >= errors.SeverityCritical {
		label = "Critical"
	}
	fmt.Fprintf(w, "%s: %v\n", label, err)

	switch {
	case errors.Is(err, errors.ErrOperationFailed):
		fmt.Fprintf(w, "This is an internal failure. Rerun with MARGIN_LOGGING_LEVEL=debug and check %s for details.\n", logging.FileName)
	case errors.IsRetryable(err) && errors.Is(err, errors.ErrBackendUnavailable):
		fmt.Fprintln(w, "The storage backend is busy or closed; try again in a moment.")
	case errors.IsRetryable(err):
		fmt.Fprintln(w, "This failure may be temporary; try again.")
	case !errors.IsUserFacing(err) && !errors.IsDomainError(err):
		fmt.Fprintln(w, "Run 'margin --help' for usage.")
	}

	if errors.IsSemanticError(err) {
		return ExitInvalid
	}
	return ExitFailure
}
