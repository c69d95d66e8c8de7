// Package cli implements the petlink command line: the API server, a
// one-shot expiry sweep and operator helpers.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "petlink",
	Short: "Adoption, sponsorship and donation lifecycle service",
	Long: `petlink tracks account-to-pet interactions, arbitrates adoption requests,
issues payment intents to the payment provider and reconciles its webhooks
into an auditable ledger.`,
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.toml (default: $PETLINK_HOME/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
