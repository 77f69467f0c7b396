package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/taperlog/taper"
)

var (
	exportFormat string
	exportOut    string
	exportLevel  string
	exportSince  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export log records to JSON, text, or CSV",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format (json|text|csv)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, or - for stdout")
	exportCmd.Flags().StringVarP(&exportLevel, "level", "l", "", "only records at or above this severity")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "only records newer than this duration")
}

func runExport(cmd *cobra.Command, args []string) error {
	entries, err := taper.ReadDir(logDir(), logPrefix())
	if err != nil {
		return fmt.Errorf("read logs: %w", err)
	}
	filter, err := buildFilter(exportLevel, exportSince, "", "", "")
	if err != nil {
		return err
	}
	entries = taper.FilterEntries(entries, filter)

	var w io.Writer = cmd.OutOrStdout()
	toFile := exportOut != "" && exportOut != "-"
	if toFile {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := taper.WriteEntries(w, entries, taper.ExportFormat(exportFormat)); err != nil {
		return err
	}
	if toFile {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d record(s) to %s\n", len(entries), exportOut)
	}
	return nil
}
