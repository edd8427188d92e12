package main

import "github.com/spf13/cobra"

var censusCmd = &cobra.Command{
	Use:   "census",
	Short: "Census Bureau data preparation",
	Long: `Fetches Census API tables and prepares the tract population table that
the rasterizer reads.`,
}

func init() {
	rootCmd.AddCommand(censusCmd)
}
