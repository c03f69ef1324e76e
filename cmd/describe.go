package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"graphflow.dev/graphflow/internal/config"
	"graphflow.dev/graphflow/internal/demo"
)

var describeOutput string

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the configured graph's wiring without running it",
	Long: `Describe builds the configured graph and prints its tasks, edges
and memory pools as YAML or JSON. External tooling (a DOT renderer, a
dashboard) can consume this instead of linking against the engine.

Note that an execution pipeline's replicas are built from its template
only at run time, so describe shows the enclosing graph alone (the
pipeline task and its input/output edges); the replicas' tasks, edges and
pools do not appear.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDescribe()
	},
}

func init() {
	describeCmd.Flags().StringVarP(&describeOutput, "output", "o", "yaml",
		"output format: yaml or json")
}

func runDescribe() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	builder, err := demo.Lookup(cfg.Demo.Graph)
	if err != nil {
		return err
	}
	g, err := builder(cfg.Demo, nil)
	if err != nil {
		return err
	}

	snap := g.Describe()

	switch describeOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(snap)
	default:
		return fmt.Errorf("unknown output format %q (yaml or json)", describeOutput)
	}
}
