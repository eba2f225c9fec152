package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hebbianctl",
	Short: "Operator surface for the Hebbian memory engine",
	Long:  "hebbianctl runs the engine's maintenance and query operations directly against the configured store. Single Go binary, no server to run.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(decayCmd)
	rootCmd.AddCommand(lowActivationCmd)
	rootCmd.AddCommand(deprecateCmd)
	rootCmd.AddCommand(correctCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(hookCmd)
}
