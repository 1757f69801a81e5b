package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/Iron-Ham/margin/internal/errors"
	"github.com/Iron-Ham/margin/internal/notes"
	"github.com/Iron-Ham/margin/internal/util"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <file> <text>",
	Short: "Add a note to a document",
	Long: `Add a note to the document identified by <file>, usually a URI such as
file:///src/main.go. The note gets a fresh ID.

Examples:
  margin add file:///src/main.go "check the error path" --line 42 --quote "if err != nil"
  margin add file:///README.md "needs an install section" --document`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List notes for one document or all documents",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <file> <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelete,
}

var clearCmd = &cobra.Command{
	Use:   "clear <file>",
	Short: "Delete every note on a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runClear,
}

var (
	addQuote    string
	addLine     int
	addDocument bool
	listWidth   int
)

// maxQuoteRunes bounds how much of a quote list prints.
const maxQuoteRunes = 72

func init() {
	addCmd.Flags().StringVarP(&addQuote, "quote", "q", "", "text the note is anchored to")
	addCmd.Flags().IntVarP(&addLine, "line", "l", 0, "1-based line the note is anchored to")
	addCmd.Flags().BoolVarP(&addDocument, "document", "d", false, "attach the note to the whole document")
	addCmd.MarkFlagsMutuallyExclusive("line", "document")
	listCmd.Flags().IntVarP(&listWidth, "width", "w", 0, "truncate output lines to this many columns (0 disables)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if addLine < 0 {
		return errors.NewValidationError("line must be positive").WithField("line").WithValue(addLine)
	}

	note := notes.New(args[0], args[1])
	note.Quote = addQuote
	note.IsDocumentLevel = addDocument
	if addLine > 0 {
		end := len([]rune(addQuote))
		note.Position = notes.Range{
			Start: notes.Position{Line: addLine - 1},
			End:   notes.Position{Line: addLine - 1, Character: end},
		}
	}

	return withApp(cmd.Context(), func(a *app) error {
		if err := a.store.Save(cmd.Context(), note); err != nil {
			return errors.Wrap(err, "failed to save note")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Added note %s\n", note.ID)
		fmt.Fprintf(out, "File: %s\n", note.File)
		return nil
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		ctx := cmd.Context()

		keys := args
		if len(keys) == 0 {
			var err error
			if keys, err = a.store.Keys(ctx); err != nil {
				return errors.Wrap(err, "failed to list documents")
			}
		}

		out := cmd.OutOrStdout()
		styles := newListStyles(out)
		total := 0
		for _, key := range keys {
			ns, err := a.store.Notes(ctx, key)
			if err != nil {
				return errors.Wrapf(err, "failed to load notes for %s", key)
			}
			if len(ns) == 0 {
				continue
			}
			total += len(ns)
			printLines(out, styles.header.Render(fmt.Sprintf("%s (%d)", key, len(ns))))
			for _, n := range ns {
				printLines(out, styles.renderNote(n))
			}
		}
		if total == 0 {
			fmt.Fprintln(out, styles.muted.Render("No notes."))
		}
		return nil
	})
}

// listStyles renders list output. Colors are dropped automatically when the
// writer is not a terminal.
type listStyles struct {
	header lipgloss.Style
	id     lipgloss.Style
	anchor lipgloss.Style
	quote  lipgloss.Style
	muted  lipgloss.Style
}

func newListStyles(w io.Writer) listStyles {
	r := lipgloss.NewRenderer(w)
	return listStyles{
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		id:     r.NewStyle().Foreground(lipgloss.Color("#626262")),
		anchor: r.NewStyle().Foreground(lipgloss.Color("#04B575")),
		quote:  r.NewStyle().Italic(true).Foreground(lipgloss.Color("#A8A8A8")),
		muted:  r.NewStyle().Faint(true),
	}
}

func (s listStyles) renderNote(n notes.Note) string {
	anchor := "document"
	if !n.IsDocumentLevel {
		anchor = fmt.Sprintf("L%d", n.Position.Start.Line+1)
	}

	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(s.id.Render(n.ID))
	b.WriteString(" ")
	b.WriteString(s.anchor.Render(anchor))
	b.WriteString(" ")
	b.WriteString(util.FirstLine(n.Text))
	if n.Quote != "" {
		b.WriteString("\n    ")
		b.WriteString(s.quote.Render("> " + util.TruncateString(util.FirstLine(n.Quote), maxQuoteRunes)))
	}
	return b.String()
}

// printLines writes s, truncating each line to --width when set.
func printLines(w io.Writer, s string) {
	for _, line := range strings.Split(s, "\n") {
		if listWidth > 0 {
			line = util.TruncateANSI(line, listWidth)
		}
		fmt.Fprintln(w, line)
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	key, id := args[0], args[1]
	return withApp(cmd.Context(), func(a *app) error {
		ctx := cmd.Context()

		ns, err := a.store.Notes(ctx, key)
		if err != nil {
			return errors.Wrap(err, "failed to load notes")
		}
		found := false
		for _, n := range ns {
			if n.ID == id {
				found = true
				break
			}
		}
		if !found {
			return errors.NewNotFoundError("note", id)
		}

		if err := a.store.Delete(ctx, id, key); err != nil {
			return errors.Wrap(err, "failed to delete note")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %s\n", id)
		return nil
	})
}

func runClear(cmd *cobra.Command, args []string) error {
	key := args[0]
	return withApp(cmd.Context(), func(a *app) error {
		ctx := cmd.Context()

		ns, err := a.store.Notes(ctx, key)
		if err != nil {
			return errors.Wrap(err, "failed to load notes")
		}
		if err := a.store.DeleteAll(ctx, key); err != nil {
			return errors.Wrap(err, "failed to clear notes")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d note(s) from %s\n", len(ns), key)
		return nil
	})
}
