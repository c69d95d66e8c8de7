package cli

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/petlink-network/petlink/internal/app/sweeper"
	"github.com/petlink-network/petlink/internal/app/webhook"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PETLINK_HOME", t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { configPath = "" })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out, "petlink ") {
		t.Errorf("output = %q", out)
	}
}

func TestWebhookSign(t *testing.T) {
	t.Setenv("PETLINK_WEBHOOK_SECRET", "cli-secret")
	out, err := run(t, "webhook", "sign", "--data-id", "pay-1", "--request-id", "req-1", "--ts", "1700000000")
	if err != nil {
		t.Fatalf("webhook sign error: %v", err)
	}
	header := strings.TrimSpace(out)
	if err := webhook.Verify("cli-secret", header, "pay-1", "req-1"); err != nil {
		t.Errorf("signed header %q does not verify: %v", header, err)
	}
}

func TestWebhookSign_NoSecret(t *testing.T) {
	t.Setenv("PETLINK_WEBHOOK_SECRET", "")
	if _, err := run(t, "webhook", "sign", "--data-id", "x", "--request-id", "y"); err == nil {
		t.Error("expected error without a webhook secret")
	}
}

func TestSweep_EmptyDatabase(t *testing.T) {
	t.Setenv("PETLINK_DB_DIR", t.TempDir())
	out, err := run(t, "sweep")
	if err != nil {
		t.Fatalf("sweep error: %v", err)
	}
	if !strings.Contains(out, "Cancelled 0 expired intent(s)") {
		t.Errorf("output = %q", out)
	}
}

func TestLogSweeperStats(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	logSweeperStats(sweeper.Stats{Runs: 3, Cancelled: 2, Lost: 1, Failed: 0, LastRun: time.Now()})
	if got := buf.String(); !strings.Contains(got, "3 runs, 2 cancelled, 1 settled first, 0 failed") {
		t.Errorf("log = %q", got)
	}
}
