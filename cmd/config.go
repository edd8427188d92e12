package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Prints the configuration after config.yaml, POPGRID_* environment
variables and .env have been applied. The Census API key is masked.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := *cfg
		if c.Census.APIKey != "" {
			c.Census.APIKey = "****"
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(&c); err != nil {
			return eris.Wrap(err, "config: encode")
		}
		return eris.Wrap(enc.Close(), "config: encode")
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
