package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taperlog/taper"
	"github.com/taperlog/taper/internal/tailview"
)

var (
	tailLevel       string
	tailInteractive bool
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow the active log file",
	Long: `Tail streams records as the engine appends them, following the active
file across size rotations and date rollovers. With --interactive a
full-screen viewer opens instead, with scrollback and live filtering.`,
	RunE: runTail,
}

func init() {
	rootCmd.AddCommand(tailCmd)

	tailCmd.Flags().StringVarP(&tailLevel, "level", "l", "", "only records at or above this severity")
	tailCmd.Flags().BoolVarP(&tailInteractive, "interactive", "i", false, "open the full-screen viewer")
}

func runTail(cmd *cobra.Command, args []string) error {
	dir, prefix := logDir(), logPrefix()

	var min *taper.Level
	if tailLevel != "" {
		l, err := taper.ParseLevel(tailLevel)
		if err != nil {
			return err
		}
		min = &l
	}

	if tailInteractive {
		return tailview.Run(dir, prefix, min)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newRenderer()
	out := cmd.OutOrStdout()
	return tailview.Watch(ctx, dir, prefix, func(line []byte) {
		var e taper.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			// Not a record (pretty-printed fragment, stray text): pass it
			// through untouched.
			fmt.Fprintln(out, string(line))
			return
		}
		if min != nil && e.Level > *min {
			return
		}
		fmt.Fprintln(out, r.Render(e.Record()))
	})
}
