package sqlite

import (
	"context"
	"testing"

	"github.com/petlink-network/petlink/internal/domain"
)

// ─── Achievements ───────────────────────────────────────────────────────────

func TestAchievements_GrantIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := db.Repos().Achievements

	ach, err := s.AchievementByType(ctx, domain.RecordAdoption)
	if err != nil || ach == nil {
		t.Fatalf("AchievementByType() = %v, %v", ach, err)
	}

	granted, err := s.GrantAchievement(ctx, "acct-a", ach.ID)
	if err != nil || !granted {
		t.Fatalf("first GrantAchievement() = %v, %v; want true", granted, err)
	}
	granted, err = s.GrantAchievement(ctx, "acct-a", ach.ID)
	if err != nil {
		t.Fatalf("second GrantAchievement() error: %v", err)
	}
	if granted {
		t.Error("second GrantAchievement() should be a no-op")
	}

	held, err := s.AccountAchievements(ctx, "acct-a")
	if err != nil {
		t.Fatalf("AccountAchievements() error: %v", err)
	}
	if len(held) != 1 {
		t.Fatalf("AccountAchievements() = %d rows, want 1", len(held))
	}
	if held[0].Type != domain.RecordAdoption || held[0].Name == "" {
		t.Errorf("held = %+v", held[0])
	}
}

func TestAchievements_UnknownType(t *testing.T) {
	db := newTestDB(t)
	got, err := db.Repos().Achievements.AchievementByType(context.Background(), "grooming")
	if err != nil || got != nil {
		t.Errorf("AchievementByType(unknown) = %v, %v; want nil, nil", got, err)
	}
}
