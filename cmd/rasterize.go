package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/popgrid/internal/raster"
)

var rasterizeCmd = &cobra.Command{
	Use:   "rasterize",
	Short: "Distribute tract populations over the study grid",
	Long: `Reads TRACT,POP100,geometry rows and spreads each tract's population over
the grid cells its polygons overlap, in proportion to the share of each
cell covered (--weighting polygon: share of the tract's own area). Writes
the census grid (row 0 south, column 0 west).`,
	RunE: observed("rasterize", runRasterize),
}

func init() {
	f := rasterizeCmd.Flags()
	f.String("in", "tract_to_pop.csv", "tract population table")
	f.String("out", "", "census grid path (default: grid.census_path)")
	f.String("weighting", "", "polygon or cell (overrides config)")

	rootCmd.AddCommand(rasterizeCmd)
}

func runRasterize(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in, _ := cmd.Flags().GetString("in")
	out := flagOr(cmd, "out", cfg.Grid.CensusPath)

	w, err := raster.ParseWeighting(flagOr(cmd, "weighting", cfg.Raster.Weighting))
	if err != nil {
		return err
	}

	b := cfg.Bounds.Grid()
	st, err := raster.Run(ctx, in, out, b, w)
	if err != nil {
		return err
	}
	metrics.TractsProcessed.WithLabelValues("rasterized").Add(float64(st.Rasterized))
	metrics.TractsProcessed.WithLabelValues("skipped").Add(float64(st.Skipped))
	metrics.CellsWritten.WithLabelValues("cmap").Add(float64(b.Rows * b.Cols))

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rasterized %d tracts (%d skipped) to %s\n", st.Rasterized, st.Skipped, out)
	return nil
}
