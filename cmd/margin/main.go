// Command margin keeps notes attached to documents.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Iron-Ham/margin/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if code := cmd.ReportError(os.Stderr, err); code != cmd.ExitOK {
		os.Exit(code)
	}
}
