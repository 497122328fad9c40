// Package main provides the CLI entrypoint for reactorbus.
//
// reactorbus accepts configuration via a YAML file (--config flag) or the
// built-in defaults in internal/config. It runs until receiving SIGTERM or
// SIGINT, at which point it performs graceful shutdown.
package main

import (
	"fmt"
	"os"

	_ "github.com/KimMachineGun/automemlimit"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reactorbus",
	Short: "Reactive event-dispatch runtime: parallel fan-out action + event bus",
	Long: `reactorbus runs a key-indexed event bus and a parallel fan-out action
on top of a pluggable dispatcher.

Use "serve" to run the bus as a long-lived process with a metrics endpoint,
or "bench" to exercise the parallel fan-out with a configurable element
count and lane pool, reporting per-lane distribution.`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
