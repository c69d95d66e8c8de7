package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petlink-network/petlink/internal/api"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the petlink version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "petlink %s\n", api.Version)
	},
}
