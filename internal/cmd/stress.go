package cmd

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/margin/internal/errors"
	"github.com/Iron-Ham/margin/internal/notes"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

var stressCmd = &cobra.Command{
	Use:   "stress <file>",
	Short: "Fire concurrent saves at one document and check nothing is lost",
	Long: `Save N notes to one document concurrently and report how many survive.

With distinct IDs (the default) every save must survive. With --same-id all
saves target one note and exactly one version must survive.

Examples:
  margin stress file:///tmp/scratch.go -n 200
  margin stress file:///tmp/scratch.go -n 50 --same-id`,
	Args: cobra.ExactArgs(1),
	RunE: runStress,
}

var (
	stressCount  int
	stressSameID bool
)

func init() {
	stressCmd.Flags().IntVarP(&stressCount, "count", "n", 100, "number of concurrent saves")
	stressCmd.Flags().BoolVar(&stressSameID, "same-id", false, "make every save target the same note ID")

	rootCmd.AddCommand(stressCmd)
}

func runStress(cmd *cobra.Command, args []string) error {
	key := args[0]
	if stressCount < 1 {
		return errors.NewValidationError("--count must be at least 1").WithField("count").WithValue(stressCount)
	}

	return withApp(cmd.Context(), func(a *app) error {
		ctx := cmd.Context()

		before, err := a.store.Notes(ctx, key)
		if err != nil {
			return errors.Wrap(err, "failed to load notes")
		}

		run := notes.NewID()
		contested := "stress-" + run
		ids := make(map[string]bool, stressCount)

		start := time.Now()
		p := pool.New().WithErrors()
		for i := range stressCount {
			n := notes.New(key, fmt.Sprintf("Update %d", i))
			n.ID = fmt.Sprintf("stress-%s-%d", run, i)
			if stressSameID {
				n.ID = contested
			}
			ids[n.ID] = true
			p.Go(func() error {
				return a.store.Save(ctx, n)
			})
		}
		saveErr := p.Wait()
		elapsed := time.Since(start)

		after, err := a.store.Notes(ctx, key)
		if err != nil {
			return errors.Wrap(err, "failed to load notes")
		}
		survived := 0
		for _, n := range after {
			if ids[n.ID] {
				survived++
			}
		}

		want := len(ids)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Submitted %d concurrent save(s) in %s\n", stressCount, elapsed.Round(time.Millisecond))
		fmt.Fprintf(out, "Notes on %s: %d before, %d after\n", key, len(before), len(after))
		fmt.Fprintf(out, "Survived: %d/%d\n", survived, want)

		if saveErr != nil {
			return errors.Wrap(saveErr, "some saves failed")
		}
		if survived != want {
			return errors.NewOperationError(fmt.Sprintf("lost %d update(s)", want-survived), nil).
				WithKey(key).
				WithSeverity(errors.SeverityCritical)
		}
		return nil
	})
}
