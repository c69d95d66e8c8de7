// Package sweeper cancels payment intents whose expiry has passed.
//
// Lazy expiry in the webhook path stays authoritative; the sweeper only
// keeps abandoned checkouts from sitting in pending forever. Each record is
// cancelled with its own compare-and-swap, so a webhook landing mid-sweep
// wins or loses cleanly.
package sweeper

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/petlink-network/petlink/internal/domain"
	"github.com/petlink-network/petlink/internal/infra/observability"
)

// Config controls sweep cadence.
type Config struct {
	Interval  time.Duration // time between sweeps (default: 1m)
	BatchSize int           // max records per sweep (default: 100)
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:  time.Minute,
		BatchSize: 100,
	}
}

// Sweeper periodically cancels expired pending intents.
type Sweeper struct {
	mu        sync.RWMutex
	config    Config
	ledger    domain.LedgerStore
	now       func() time.Time
	runs      int64
	cancelled int64
	lost      int64
	failed    int64
	lastRun   time.Time
}

// New creates a Sweeper. Zero config values fall back to the defaults.
func New(cfg Config, ledger domain.LedgerStore) *Sweeper {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &Sweeper{config: cfg, ledger: ledger, now: time.Now}
}

// Run sweeps every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("[sweeper] started, interval=%s batch=%d", s.config.Interval, s.config.BatchSize)
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sweeper] stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[sweeper] sweep failed: %v", err)
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many records it cancelled.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.ledger.ExpiredPending(ctx, now, s.config.BatchSize)
	if err != nil {
		s.record(now, 0, 0, 1)
		return 0, domain.Internal("expired intent listing failed", err)
	}

	var cancelled, lost, failed int
	for _, rec := range expired {
		ok, err := s.ledger.Transition(ctx, rec.ID, domain.StatusPending, domain.StatusCancelled)
		switch {
		case err != nil:
			failed++
			log.Printf("[sweeper] cancel %s failed: %v", rec.ID, err)
		case ok:
			cancelled++
			observability.SweeperCancelled.Inc()
			observability.LedgerTransitions.WithLabelValues(string(rec.Type()), string(domain.StatusCancelled)).Inc()
		default:
			lost++
		}
	}
	s.record(now, cancelled, lost, failed)
	if cancelled > 0 {
		log.Printf("[sweeper] cancelled %d expired intents (%d already settled)", cancelled, lost)
	}
	return cancelled, nil
}

func (s *Sweeper) record(at time.Time, cancelled, lost, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.cancelled += int64(cancelled)
	s.lost += int64(lost)
	s.failed += int64(failed)
	s.lastRun = at
}

// Stats is a snapshot of sweeper counters.
type Stats struct {
	Runs      int64     `json:"runs"`
	Cancelled int64     `json:"cancelled"`
	Lost      int64     `json:"lost"` // settled by a webhook between listing and cancel
	Failed    int64     `json:"failed"`
	LastRun   time.Time `json:"last_run"`
}

// Stats returns current sweeper statistics.
func (s *Sweeper) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Runs:      s.runs,
		Cancelled: s.cancelled,
		Lost:      s.lost,
		Failed:    s.failed,
		LastRun:   s.lastRun,
	}
}
