// Package cli wires the securescan commands. Each command builds an API
// client bound to the persisted session for the configured backend host.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "securescan",
	Short: "Command-line client for the SecureScan web security scanner",
	Long: `securescan - Command-line client for the SecureScan service

Start scans against your own web applications, follow their progress,
and pull findings and reports from the SecureScan backend.

Only scan systems you have explicit permission to test.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "Config file path (default ~/.securescan/config.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "Backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("securescan %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
