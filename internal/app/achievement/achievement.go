// Package achievement grants achievements when a ledger entry completes.
// Awards are idempotent: one row per (account, achievement), so a redelivered
// completion signal is harmless.
package achievement

import (
	"context"
	"log"

	"github.com/petlink-network/petlink/internal/domain"
	"github.com/petlink-network/petlink/internal/infra/observability"
)

// Awarder grants catalog achievements to accounts.
type Awarder struct {
	store domain.AchievementStore
}

// NewAwarder creates an Awarder over the achievement store.
func NewAwarder(store domain.AchievementStore) *Awarder {
	return &Awarder{store: store}
}

// Award grants the achievement for t to accountID. It reports whether a new
// grant happened; an existing grant is a no-op.
func (a *Awarder) Award(ctx context.Context, accountID string, t domain.RecordType) (bool, error) {
	ach, err := a.store.AchievementByType(ctx, t)
	if err != nil {
		return false, domain.Internal("achievement catalog lookup failed", err)
	}
	if ach == nil {
		return false, domain.ErrAchievementNotFound
	}

	granted, err := a.store.GrantAchievement(ctx, accountID, ach.ID)
	if err != nil {
		return false, domain.Internal("achievement grant failed", err)
	}
	if granted {
		observability.AchievementsAwarded.WithLabelValues(string(t)).Inc()
		log.Printf("[achievement] granted %s to %s", ach.ID, accountID)
	}
	return granted, nil
}

// List returns the achievements held by accountID.
func (a *Awarder) List(ctx context.Context, accountID string) ([]domain.AccountAchievement, error) {
	held, err := a.store.AccountAchievements(ctx, accountID)
	if err != nil {
		return nil, domain.Internal("achievement listing failed", err)
	}
	if held == nil {
		held = []domain.AccountAchievement{}
	}
	return held, nil
}
