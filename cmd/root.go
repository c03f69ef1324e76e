// Package cmd implements the graphflow CLI using the cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "graphflowd",
	Short: "graphflowd - hybrid dataflow/task-graph execution daemon",
	Long: `graphflowd runs dataflow graphs built on the graphflow engine: tasks
joined by typed connectors, rule-based fan-out bookkeepers, bounded memory
pools, and execution pipelines that replicate a sub-graph across parallel
instances.

The bundled demonstration graph decodes synthetic Ethernet/IPv4 frames,
classifies them by transport protocol, and reports each flow — enough to
watch every engine component work under load.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once, by main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (default: built-in defaults)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(describeCmd)
}
