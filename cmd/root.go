package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popgrid/internal/config"
	"github.com/sells-group/popgrid/internal/observability"
)

var (
	cfg     *config.Config
	metrics *observability.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "popgrid",
	Short: "Census and mobile population grids for the Los Angeles basin",
	Long: `Builds a census population grid from tract polygons and a mobile grid from
night-time phone pings, condenses both into a per-cell table and scores how
well the mobile data tracks the census.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(".env"); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		zap.ReplaceGlobals(zap.L().With(zap.String("run_id", uuid.NewString())))

		metrics = observability.NewMetrics()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// observed wraps a RunE so that its duration and outcome are recorded and
// the metrics textfile, when configured, is written after every run.
func observed(name string, run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		err := run(cmd, args)
		metrics.ObserveRun(name, started, time.Now(), err == nil)
		if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			zap.L().Warn("metrics textfile not written", zap.Error(werr))
		}
		return err
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
