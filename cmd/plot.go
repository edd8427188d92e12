package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/popgrid/internal/condense"
	"github.com/sells-group/popgrid/internal/grid"
	"github.com/sells-group/popgrid/internal/heatmap"
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render a condensed table as census and mobile heat maps",
	Long: `Rebuilds the census and mobile grids from the cell IDs of a condensed
table and draws them side by side, north up, as a PNG.`,
	RunE: observed("plot", runPlot),
}

func init() {
	f := plotCmd.Flags()
	f.String("in", "", "condensed table (default: grid.output_path)")
	f.String("out", "heatmap.png", "PNG output path")

	rootCmd.AddCommand(plotCmd)
}

func runPlot(cmd *cobra.Command, _ []string) error {
	log := zap.L().With(zap.String("command", "plot"))

	in := flagOr(cmd, "in", cfg.Grid.OutputPath)
	out, _ := cmd.Flags().GetString("out")

	census, mobile, err := condense.ReadFile(in)
	if err != nil {
		return err
	}

	cm, err := rasterOrder(census)
	if err != nil {
		return eris.Wrap(err, "plot: census values")
	}
	mm, err := rasterOrder(mobile)
	if err != nil {
		return eris.Wrap(err, "plot: mobile values")
	}

	layers := []heatmap.Layer{
		{Title: "Census map Values", Values: cm},
		{Title: "Mobile Phone Data map Values", Values: mm},
	}
	if err := heatmap.RenderFile(out, layers, heatmap.Options{Bounds: cfg.Bounds.Grid()}); err != nil {
		return err
	}
	log.Info("heat map written", zap.String("input", in), zap.String("path", out))
	return nil
}

// rasterOrder undoes the condensed orientation so row 0 is south again.
func rasterOrder(g *grid.Grid) (*mat.Dense, error) {
	return g.Reorient().Numeric(grid.Lenient)
}
