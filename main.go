// Package main is the entry point for the graphflow daemon.
package main

import (
	"fmt"
	"os"

	"graphflow.dev/graphflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
