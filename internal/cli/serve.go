package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petlink-network/petlink/internal/api"
	"github.com/petlink-network/petlink/internal/app/achievement"
	"github.com/petlink-network/petlink/internal/app/adoption"
	"github.com/petlink-network/petlink/internal/app/interaction"
	"github.com/petlink-network/petlink/internal/app/payment"
	"github.com/petlink-network/petlink/internal/app/sweeper"
	"github.com/petlink-network/petlink/internal/app/webhook"
	"github.com/petlink-network/petlink/internal/daemon"
	paymentclient "github.com/petlink-network/petlink/internal/infra/payment"
	"github.com/petlink-network/petlink/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

// ─── serve ──────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Start the lifecycle HTTP API. When [sweeper].enabled is set, expired
payment intents are cancelled in the background.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	db, err := sqlite.Open(cfg.Database.Dir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(buildLifecycle(cfg, db))
	srv.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Metrics.Enabled {
		srv.EnableMetrics()
	}

	var sw *sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		sw = sweeper.New(cfg.SweeperSettings(), db.Repos().Ledger)
		go sw.Run(ctx)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[serve] listening on %s (db %s)", cfg.Addr(), db.Path())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("[serve] shutting down")
	if sw != nil {
		logSweeperStats(sw.Stats())
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func logSweeperStats(st sweeper.Stats) {
	log.Printf("[serve] sweeper: %d runs, %d cancelled, %d settled first, %d failed",
		st.Runs, st.Cancelled, st.Lost, st.Failed)
}

// buildLifecycle wires the lifecycle services over one database.
func buildLifecycle(cfg daemon.Config, db *sqlite.DB) *api.LifecycleAPI {
	awarder := achievement.NewAwarder(db.Repos().Achievements)
	gateway := paymentclient.NewClient(cfg.Payment.BaseURL, cfg.Payment.AccessToken, cfg.Payment.Sandbox)
	return &api.LifecycleAPI{
		Interactions: interaction.NewTracker(db),
		Adoptions:    adoption.NewArbiter(db, awarder),
		Payments:     payment.NewFactory(gateway, db, cfg.PaymentIntents()),
		Webhooks:     webhook.NewReconciler(db, awarder, cfg.Payment.WebhookSecret),
		Achievements: awarder,
		Ledger:       db.Repos().Ledger,
	}
}
