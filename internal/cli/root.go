package cli

import (
	"github.com/spf13/cobra"

	"github.com/fabrik-io/fabrik/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "fabrik",
	Short: "Declarative infrastructure provisioning",
	Long: `Fabrik takes a desired-state description of resources, compares it
against the last recorded state, and executes the minimal ordered set of
create/update/delete operations with correct dependency ordering.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(versionCmd)
}
