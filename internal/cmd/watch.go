package cmd

import (
	"fmt"

	"github.com/Iron-Ham/margin/internal/config"
	"github.com/Iron-Ham/margin/internal/event"
	"github.com/Iron-Ham/margin/internal/storage/jsonfile"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print documents whose notes change on disk",
	Long: `Watch the notes directory and print each document whose notes are
changed by another process. Only the json backend supports watching.
Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if a.files == nil {
			return fmt.Errorf("watch requires the %q storage backend, configured backend is %q",
				config.BackendJSON, a.cfg.Storage.Backend)
		}

		out := cmd.OutOrStdout()
		id := a.bus.Subscribe(event.TypeNotesChanged, func(e event.Event) {
			changed, ok := e.(event.NotesChangedEvent)
			if !ok {
				return
			}
			verb := "changed"
			if changed.Removed {
				verb = "removed"
			}
			fmt.Fprintf(out, "%s %s\n", verb, changed.Key)
		})
		defer a.bus.Unsubscribe(id)

		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", a.files.Dir())
		return a.files.Watch(cmd.Context(), func(c jsonfile.Change) {
			a.logger.Info("notes changed on disk", "key", c.Key, "removed", c.Removed)
			a.bus.Publish(event.NewNotesChangedEvent(c.Key, c.Path, c.Removed))
		})
	})
}
