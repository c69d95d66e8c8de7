package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/petlink-network/petlink/internal/domain"
	"github.com/petlink-network/petlink/internal/testutil"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSweeper(t *testing.T) (*Sweeper, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	env.Account("A")
	env.Institution("shelter")
	s := New(Config{Interval: time.Hour, BatchSize: 10}, env.DB.Repos().Ledger)
	s.now = func() time.Time { return base }
	return s, env
}

func donation(env *testutil.Env, expires time.Time) *domain.HistoryRecord {
	rec := domain.NewDonation("A", decimal.RequireFromString("10"))
	rec.ExternalReference = "donation:A:" + rec.ID
	rec.ExpiresAt = &expires
	env.CreateRecord(rec)
	return rec
}

// ─── Config Tests ───────────────────────────────────────────────────────────

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Interval != time.Minute {
		t.Errorf("Interval = %v, want 1m", cfg.Interval)
	}
	if cfg.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", cfg.BatchSize)
	}
}

func TestNew_FillsZeroConfig(t *testing.T) {
	s := New(Config{}, nil)
	if s.config != DefaultConfig() {
		t.Errorf("config = %+v, want defaults", s.config)
	}
}

// ─── Sweep Tests ────────────────────────────────────────────────────────────

func TestRunOnce_CancelsOnlyExpired(t *testing.T) {
	s, env := newTestSweeper(t)
	stale := donation(env, base.Add(-time.Minute))
	fresh := donation(env, base.Add(time.Minute))
	adoption := domain.NewAdoption("A", "p", "shelter")
	env.CreateRecord(adoption)

	n, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if n != 1 {
		t.Errorf("cancelled = %d, want 1", n)
	}
	if got := env.Record(stale.ID).Status; got != domain.StatusCancelled {
		t.Errorf("stale status = %q, want cancelled", got)
	}
	if got := env.Record(fresh.ID).Status; got != domain.StatusPending {
		t.Errorf("fresh status = %q, want pending", got)
	}
	if got := env.Record(adoption.ID).Status; got != domain.StatusPending {
		t.Errorf("adoption status = %q, want pending", got)
	}
}

func TestRunOnce_SkipsSettled(t *testing.T) {
	s, env := newTestSweeper(t)
	rec := donation(env, base.Add(-time.Minute))
	if _, err := env.DB.Repos().Ledger.Transition(context.Background(), rec.ID, domain.StatusPending, domain.StatusCompleted); err != nil {
		t.Fatalf("Transition() error: %v", err)
	}

	n, err := s.RunOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("RunOnce() = %d, %v; want 0, nil", n, err)
	}
	if got := env.Record(rec.ID).Status; got != domain.StatusCompleted {
		t.Errorf("status = %q, want completed", got)
	}
}

func TestRunOnce_RespectsBatchSize(t *testing.T) {
	s, env := newTestSweeper(t)
	s.config.BatchSize = 2
	for i := 0; i < 5; i++ {
		donation(env, base.Add(-time.Duration(i+1)*time.Minute))
	}

	first, _ := s.RunOnce(context.Background())
	second, _ := s.RunOnce(context.Background())
	third, _ := s.RunOnce(context.Background())
	if first != 2 || second != 2 || third != 1 {
		t.Errorf("sweeps = %d, %d, %d; want 2, 2, 1", first, second, third)
	}

	st := s.Stats()
	if st.Runs != 3 || st.Cancelled != 5 || !st.LastRun.Equal(base) {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _ := newTestSweeper(t)
	s.config.Interval = 5 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if s.Stats().Runs == 0 {
		t.Error("expected at least one sweep")
	}
}
