package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popgrid/internal/condense"
	"github.com/sells-group/popgrid/internal/grid"
)

var condenseCmd = &cobra.Command{
	Use:   "condense [cmap] [mmap]",
	Short: "Join the census and mobile grids into a per-cell table",
	Long: `Reorients both grids and writes one row per cell with its 4-character ID,
census value and mobile value. Positional arguments override the input
paths; --geotag adds the latitude and longitude of each cell.

Examples:
  condense
  condense cmap.txt mmap.txt --output condensed_data.csv
  condense --geotag --policy strict`,
	Args: cobra.MaximumNArgs(2),
	RunE: observed("condense", runCondense),
}

func init() {
	f := condenseCmd.Flags()
	f.String("census", "", "census grid path (overrides config)")
	f.String("mobile", "", "mobile grid path (overrides config)")
	f.String("output", "", "condensed table path (overrides config)")
	f.Bool("geotag", false, "append latitude and longitude columns")
	f.String("policy", "", "token policy: lenient or strict (overrides config)")

	rootCmd.AddCommand(condenseCmd)
}

func runCondense(cmd *cobra.Command, args []string) error {
	log := zap.L().With(zap.String("command", "condense"))

	censusPath := flagOr(cmd, "census", cfg.Grid.CensusPath)
	mobilePath := flagOr(cmd, "mobile", cfg.Grid.MobilePath)
	outPath := flagOr(cmd, "output", cfg.Grid.OutputPath)
	if len(args) > 0 {
		censusPath = args[0]
	}
	if len(args) > 1 {
		mobilePath = args[1]
	}

	policy, err := grid.ParsePolicy(flagOr(cmd, "policy", cfg.Grid.Policy))
	if err != nil {
		return err
	}

	geotag := cfg.Grid.Geotag
	if cmd.Flags().Changed("geotag") {
		geotag, _ = cmd.Flags().GetBool("geotag")
	}

	n, err := condense.Condense(censusPath, mobilePath, outPath, condense.Options{
		Policy: policy,
		Geotag: geotag,
		Geo:    cfg.Bounds.Geo(),
	})
	if err != nil {
		return err
	}
	metrics.CellsWritten.WithLabelValues("condensed").Add(float64(n))

	log.Debug("condense finished", zap.String("census", censusPath), zap.String("mobile", mobilePath))
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d cells to %s\n", n, outPath)
	return nil
}

// flagOr returns the string flag when set, otherwise def.
func flagOr(cmd *cobra.Command, name, def string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return def
}
