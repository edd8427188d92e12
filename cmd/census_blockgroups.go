package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/popgrid/internal/census"
)

var censusBlockGroupsCmd = &cobra.Command{
	Use:   "blockgroups",
	Short: "Extract block group populations from an ACS table export",
	Long: `Reads an ACS table exported from data.census.gov, whose header names each
block group ("Block Group 1; Census Tract 1011.10; Los Angeles County;
California!!Estimate"), and writes Tract_Block_Group,Population rows.`,
	RunE: observed("census_blockgroups", runCensusBlockGroups),
}

func init() {
	f := censusBlockGroupsCmd.Flags()
	f.String("in", "", "ACS table CSV (required)")
	f.String("out", "bg_to_pop.csv", "output CSV path")
	_ = censusBlockGroupsCmd.MarkFlagRequired("in")

	censusCmd.AddCommand(censusBlockGroupsCmd)
}

func runCensusBlockGroups(cmd *cobra.Command, _ []string) error {
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")

	f, err := os.Open(in)
	if err != nil {
		return eris.Wrapf(err, "census blockgroups: open %s", in)
	}
	defer f.Close() //nolint:errcheck

	groups, err := census.ParseBlockGroups(f)
	if err != nil {
		return err
	}
	if err := census.WriteBlockGroups(out, groups); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d block groups to %s\n", len(groups), out)
	return nil
}
