package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popgrid/internal/census"
	"github.com/sells-group/popgrid/internal/tiger"
)

var censusTractsCmd = &cobra.Command{
	Use:   "tracts",
	Short: "Join tract populations to TIGER/Line tract polygons",
	Long: `Filters a TIGER/Line shapefile to the configured counties, joins each
tract to its POP100 from the population table (xlsx or csv) and writes
TRACT,POP100,geometry rows with WKT polygons.

Examples:
  census tracts --shapefile tl_2021_06_tract.shp --population pop.xlsx
  census tracts --download --layer tract --population pop.csv --out tract_to_pop.csv`,
	RunE: observed("census_tracts", runCensusTracts),
}

func init() {
	f := censusTractsCmd.Flags()
	f.String("shapefile", "", "TIGER/Line .shp path")
	f.Bool("download", false, "download the TIGER/Line archive for census.year and census.state_fips")
	f.String("layer", "tract", "TIGER/Line layer to download: tract or bg")
	f.String("population", "", "tract population table, .xlsx or .csv (required)")
	f.String("out", "tract_to_pop.csv", "output CSV path")
	_ = censusTractsCmd.MarkFlagRequired("population")

	censusCmd.AddCommand(censusTractsCmd)
}

func runCensusTracts(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "census tracts"))

	shpPath, _ := cmd.Flags().GetString("shapefile")
	popPath, _ := cmd.Flags().GetString("population")
	out, _ := cmd.Flags().GetString("out")

	if download, _ := cmd.Flags().GetBool("download"); download {
		layerName, _ := cmd.Flags().GetString("layer")
		layer, ok := tiger.ParseLayer(layerName)
		if !ok {
			return eris.Errorf("census tracts: unknown layer %q", layerName)
		}
		url := tiger.DownloadURL(layer, cfg.Census.Year, cfg.Census.StateFIPS)
		p, err := tiger.Download(ctx, url, cfg.Census.TempDir)
		if err != nil {
			return err
		}
		shpPath = p
	}
	if shpPath == "" {
		return eris.New("census tracts: --shapefile or --download is required")
	}

	features, err := tiger.ReadShapefile(shpPath)
	if err != nil {
		return err
	}
	pops, err := census.ReadPopulationTable(popPath)
	if err != nil {
		return err
	}

	tracts, err := census.MergeTracts(features, pops, cfg.Census.Counties)
	if err != nil {
		return err
	}
	if err := census.WriteTracts(out, tracts); err != nil {
		return err
	}
	metrics.TractsProcessed.WithLabelValues("merged").Add(float64(len(tracts)))

	log.Info("tract table written", zap.String("shapefile", shpPath), zap.String("path", out))
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d tracts to %s\n", len(tracts), out)
	return nil
}
