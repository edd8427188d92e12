package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/popgrid/internal/pings"
)

var pingsCmd = &cobra.Command{
	Use:   "pings",
	Short: "Count night-time device locations on the study grid",
	Long: `Reads every file in a directory of mobile ping CSVs and keeps, per device,
one stationary location seen during the night window inside the study
area. Writes the mobile grid of device counts.

Examples:
  pings --dir data/pings
  pings --dir data/pings --keep latest --out mmap.txt`,
	RunE: observed("pings", runPings),
}

func init() {
	f := pingsCmd.Flags()
	f.String("dir", "", "directory of ping CSV files (required)")
	f.String("out", "", "mobile grid path (default: grid.mobile_path)")
	f.String("keep", "", "earliest or latest location per device (overrides config)")
	_ = pingsCmd.MarkFlagRequired("dir")

	rootCmd.AddCommand(pingsCmd)
}

func runPings(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir, _ := cmd.Flags().GetString("dir")
	out := flagOr(cmd, "out", cfg.Grid.MobilePath)

	keep, err := pings.ParseKeep(flagOr(cmd, "keep", cfg.Pings.Keep))
	if err != nil {
		return err
	}

	opts := pings.Options{
		Bounds:   cfg.Bounds.Grid(),
		Window:   pings.Window{Start: cfg.Pings.NightStart, End: cfg.Pings.NightEnd},
		MaxSpeed: cfg.Pings.MaxSpeed,
		Keep:     keep,
	}

	res, err := pings.Run(ctx, dir, out, opts)
	if err != nil {
		return err
	}
	for outcome, n := range res.Counts {
		metrics.PingsProcessed.WithLabelValues(string(outcome)).Add(float64(n))
	}
	metrics.CellsWritten.WithLabelValues("mmap").Add(float64(opts.Bounds.Rows * opts.Bounds.Cols))

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "counted %d devices from %d files to %s\n", res.Devices, res.Files, out)
	return nil
}
