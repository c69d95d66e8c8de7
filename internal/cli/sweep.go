package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petlink-network/petlink/internal/app/sweeper"
	"github.com/petlink-network/petlink/internal/daemon"
	"github.com/petlink-network/petlink/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

// ─── sweep ──────────────────────────────────────────────────────────────────

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Cancel expired payment intents once",
	Long: `Run a single sweep: every pending donation or sponsorship whose expiry
has passed is cancelled. Useful from cron when the server runs with the
background sweeper disabled.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Database.Dir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sw := sweeper.New(cfg.SweeperSettings(), db.Repos().Ledger)
	n, err := sw.RunOnce(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %d expired intent(s)\n", n)
	return nil
}
