package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	format string
	quiet  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rampkit",
	Short: "Operator CLI for the rampkit onboarding coordinator",
	Long: `Rampkit is a command-line tool for working with onboarding manifests.

It validates manifest files, previews which flow a given user context would
be assigned, and audits bucket distribution for A/B allocations.

Examples:
  rampkit validate manifest.json
  rampkit evaluate manifest.json --context ctx.json --stable-id user-42
  rampkit bucket --n 10000`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
}
