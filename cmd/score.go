package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popgrid/internal/grid"
	"github.com/sells-group/popgrid/internal/heatmap"
	"github.com/sells-group/popgrid/internal/score"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Summarize the mobile-to-census ratio of every cell",
	Long: `Divides the mobile grid by the census grid cell by cell (cells with no
census population are undefined) and prints summary statistics, the
variance of each column and the median of those variances.

Examples:
  score
  score --census cmap.txt --mobile mmap.txt --plot maps.png`,
	RunE: observed("score", runScore),
}

func init() {
	f := scoreCmd.Flags()
	f.String("census", "", "census grid path (overrides config)")
	f.String("mobile", "", "mobile grid path (overrides config)")
	f.String("policy", "", "token policy: lenient or strict (overrides config)")
	f.String("plot", "", "also render both grids as a PNG heat map to this path")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	log := zap.L().With(zap.String("command", "score"))

	policy, err := grid.ParsePolicy(flagOr(cmd, "policy", cfg.Grid.Policy))
	if err != nil {
		return err
	}

	report, census, mobile, err := score.AnalyzeFiles(
		flagOr(cmd, "census", cfg.Grid.CensusPath),
		flagOr(cmd, "mobile", cfg.Grid.MobilePath),
		policy,
	)
	if err != nil {
		return err
	}

	if err := report.Print(cmd.OutOrStdout()); err != nil {
		return err
	}

	plotPath, _ := cmd.Flags().GetString("plot")
	if plotPath == "" {
		return nil
	}
	layers := []heatmap.Layer{
		{Title: "cmap", Values: census},
		{Title: "mmap", Values: mobile},
	}
	if err := heatmap.RenderFile(plotPath, layers, heatmap.Options{Bounds: cfg.Bounds.Grid()}); err != nil {
		return err
	}
	log.Info("heat map written", zap.String("path", plotPath))
	return nil
}
