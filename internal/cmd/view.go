package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taperlog/taper"
)

var (
	viewLevel       string
	viewSince       string
	viewGrep        string
	viewCorrelation string
	viewContext     string
	viewTail        int
	viewJSON        bool
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display log records with filtering",
	Long: `View aggregates the active file and every rotated backup (gzipped
included), orders records by time, and prints them with the same formatting
the engine uses on an interactive console.`,
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().StringVarP(&viewLevel, "level", "l", "", "only records at or above this severity (error|warn|info|http|debug|trace)")
	viewCmd.Flags().StringVar(&viewSince, "since", "", "only records newer than this duration (e.g. 45m, 12h)")
	viewCmd.Flags().StringVarP(&viewGrep, "grep", "g", "", "only records whose message contains this text")
	viewCmd.Flags().StringVar(&viewCorrelation, "correlation", "", "only records with this correlation id")
	viewCmd.Flags().StringVar(&viewContext, "context", "", "only records under this context tag")
	viewCmd.Flags().IntVarP(&viewTail, "tail", "n", 0, "show only the last N records")
	viewCmd.Flags().BoolVar(&viewJSON, "json", false, "print raw NDJSON instead of formatted lines")
}

func runView(cmd *cobra.Command, args []string) error {
	entries, err := taper.ReadDir(logDir(), logPrefix())
	if err != nil {
		return fmt.Errorf("read logs: %w", err)
	}

	filter, err := buildFilter(viewLevel, viewSince, viewGrep, viewCorrelation, viewContext)
	if err != nil {
		return err
	}
	entries = taper.FilterEntries(entries, filter)
	if viewTail > 0 && len(entries) > viewTail {
		entries = entries[len(entries)-viewTail:]
	}

	return printEntries(cmd.OutOrStdout(), entries, viewJSON)
}

// buildFilter converts flag values into an entry filter.
func buildFilter(level, since, grep, correlation, context string) (taper.Filter, error) {
	var f taper.Filter
	if level != "" {
		l, err := taper.ParseLevel(level)
		if err != nil {
			return f, err
		}
		f.Level = &l
	}
	if since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			return f, fmt.Errorf("invalid --since duration %q: %w", since, err)
		}
		f.Since = time.Now().Add(-d)
	}
	f.Contains = grep
	f.CorrelationID = correlation
	f.Context = context
	return f, nil
}

func printEntries(w io.Writer, entries []taper.Entry, raw bool) error {
	if raw {
		for _, e := range entries {
			line := e.Record().Line(false, true)
			if _, err := w.Write(line); err != nil {
				return err
			}
		}
		return nil
	}
	r := newRenderer()
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, r.Render(e.Record())); err != nil {
			return err
		}
	}
	return nil
}

// newRenderer builds the display renderer the engine itself would use on
// this terminal.
func newRenderer() *taper.ConsoleRenderer {
	return taper.NewConsoleRenderer(taper.ConsoleConfig{
		Enabled:    true,
		Colors:     true,
		Timestamps: true,
		Level:      taper.LevelTrace,
	}, os.Stdout)
}
