package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "macrodesk",
	Short: "macrodesk - point-in-time macro and market data store",
	Long: `macrodesk stores revisioned macro and market time series with as-of
reconstruction, and keeps the desk's trade proposals, positions and the
immutable decision journal.

Usage:
  go run ./cmd/macrodesk [command]

Examples:
  go run ./cmd/macrodesk migrate up
  go run ./cmd/macrodesk serve
  go run ./cmd/macrodesk compress
  go run ./cmd/macrodesk status`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
