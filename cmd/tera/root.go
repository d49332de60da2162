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
	Use:   "tera",
	Short: "Declarative business module engine",
	Long: `Tera interprets declarative YAML module definitions and serves
screens, forms, workflows, and actions over an HTTP API.

Modules describe what a business capability looks like; the engine
derives navigation, rendering, and workflow behavior from the
definitions at runtime. Definitions hot-reload on change.

Quick start:
  tera validate ./modules   # Check module definitions
  tera serve                # Start the engine

Management:
  tera modules              # List module definitions
  tera validate             # Validate module definitions`,
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
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "tera.yaml", "config file path")
}
