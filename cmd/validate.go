package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"graphflow.dev/graphflow/internal/config"
	"graphflow.dev/graphflow/internal/demo"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file without running anything",
	Long: `Validate a configuration file: decode it, check its values, and
resolve the demo graph it names. Useful for pre-checking configuration
before deploying.

Examples:
  graphflowd validate -c config.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidate()
	},
}

func runValidate() {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	if _, err := demo.Lookup(cfg.Demo.Graph); err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("VALID: graph %q — %d packets, %d pipeline(s), %s pool of %d\n",
		cfg.Demo.Graph,
		cfg.Demo.Packets,
		cfg.Demo.Pipelines,
		cfg.Demo.Pool.Kind,
		cfg.Demo.Pool.Capacity,
	)
}
