package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reshape",
	Short: "Version-bridge proxy that reshapes JSON payloads between API versions",
	Long: `Reshape sits in front of an API and rewrites request and response
payloads so that clients speaking older API versions keep working
against the current one.

Bridges are declared in YAML as lists of path-addressed operations
(set, unset, move, copy, cast, map, wrap, func) and applied to
request bodies, headers, query parameters, and responses.

Quick start:
  reshape validate  # Check the configuration compiles
  reshape serve     # Start the bridge server

One-off use:
  reshape transform --ops ops.yaml < input.json`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "reshape.yaml", "config file path")
}
