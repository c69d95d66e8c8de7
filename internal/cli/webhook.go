package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/petlink-network/petlink/internal/app/webhook"
	"github.com/petlink-network/petlink/internal/daemon"
)

func init() {
	rootCmd.AddCommand(webhookCmd)
	webhookCmd.AddCommand(webhookSignCmd)

	webhookSignCmd.Flags().String("data-id", "", "Notification data.id")
	webhookSignCmd.Flags().String("request-id", "", "x-request-id header value")
	webhookSignCmd.Flags().String("ts", "", "Timestamp to sign (default: now)")
	webhookSignCmd.MarkFlagRequired("data-id")
	webhookSignCmd.MarkFlagRequired("request-id")
}

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Payment webhook helpers",
}

// ─── webhook sign ───────────────────────────────────────────────────────────

var webhookSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Print a valid x-signature header",
	Long: `Sign a notification with the configured webhook secret and print the
x-signature header value, for replaying provider callbacks by hand.`,
	Args: cobra.NoArgs,
	RunE: runWebhookSign,
}

func runWebhookSign(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Payment.WebhookSecret == "" {
		return fmt.Errorf("no webhook secret configured\nSet PETLINK_WEBHOOK_SECRET or [payment].webhook_secret")
	}
	dataID, _ := cmd.Flags().GetString("data-id")
	requestID, _ := cmd.Flags().GetString("request-id")
	ts, _ := cmd.Flags().GetString("ts")
	if ts == "" {
		ts = strconv.FormatInt(time.Now().Unix(), 10)
	}

	fmt.Fprintln(cmd.OutOrStdout(), webhook.Header(cfg.Payment.WebhookSecret, dataID, requestID, ts))
	return nil
}
