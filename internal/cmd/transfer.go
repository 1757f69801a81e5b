package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/margin/internal/errors"
	"github.com/Iron-Ham/margin/internal/notes"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every note as a snapshot",
	Long: `Export every note as a snapshot mapping each document to its notes.

The snapshot is written to stdout unless --output is given. The format
defaults to export.format from the configuration.

Examples:
  margin export > notes.json
  margin export --format yaml -o notes.yaml`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import notes from a snapshot",
	Long: `Import notes from a snapshot produced by export.

The whole snapshot is checked before anything is written; a malformed
snapshot changes nothing. Imported notes replace notes with the same ID and
are appended otherwise. The format is taken from --format, then from the
file extension, then from export.format.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	exportFormat string
	exportOutput string
	importFormat string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "snapshot format: json or yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write the snapshot to this file")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "snapshot format: json or yaml")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		name := exportFormat
		if name == "" {
			name = a.cfg.Export.Format
		}
		format, err := notes.ParseFormat(name)
		if err != nil {
			return err
		}

		data, err := a.store.Export(cmd.Context(), format)
		if err != nil {
			return errors.Wrap(err, "failed to export notes")
		}
		if format == notes.FormatJSON {
			data = append(data, '\n')
		}

		if exportOutput == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return errors.Wrap(err, "failed to write snapshot")
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported notes to %s\n", exportOutput)
		return nil
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read snapshot")
	}

	return withApp(cmd.Context(), func(a *app) error {
		format, err := notes.ParseFormat(importFormatFor(path, a.cfg.Export.Format))
		if err != nil {
			return err
		}

		result, err := a.store.Import(cmd.Context(), data, format)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d note(s) across %d document(s)", result.Applied, result.Keys)
		if result.Failed > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), ", %d failed", result.Failed)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return errors.Wrap(err, "failed to import notes")
		}
		return nil
	})
}

// importFormatFor picks the snapshot format for path.
func importFormatFor(path, fallback string) string {
	if importFormat != "" {
		return importFormat
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	}
	return fallback
}
