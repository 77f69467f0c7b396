package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taperlog/taper"
)

var (
	sweepMaxAge string
	sweepDryRun bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete log files older than the retention horizon",
	Long: `Sweep applies the age-based retention policy on demand: every log
file for the prefix whose modification time is older than the horizon is
removed, numbered backups and gzipped archives included.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&sweepMaxAge, "max-age", "", "retention horizon as a duration (default from config, 168h)")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "list the files that would be removed without touching them")
}

func runSweep(cmd *cobra.Command, args []string) error {
	age := sweepMaxAge
	if age == "" {
		age = viper.GetString("rotation.maxAge")
	}
	d, err := time.ParseDuration(age)
	if err != nil {
		return fmt.Errorf("invalid max age %q: %w", age, err)
	}

	if sweepDryRun {
		aged, err := taper.AgedFiles(logDir(), logPrefix(), d)
		if err != nil {
			return err
		}
		for _, path := range aged {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) would be removed\n", len(aged))
		return nil
	}

	n, err := taper.SweepAged(logDir(), logPrefix(), d)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d file(s)\n", n)
	return nil
}
