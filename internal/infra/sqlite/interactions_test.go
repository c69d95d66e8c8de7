package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/petlink-network/petlink/internal/domain"
)

// ─── Interactions ───────────────────────────────────────────────────────────

func TestInteractions_UpsertNeverDuplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := db.Repos().Interactions

	first, err := s.UpsertInteraction(ctx, "acct-a", "pet-p", domain.InteractionLiked)
	if err != nil {
		t.Fatalf("UpsertInteraction() error: %v", err)
	}
	time.Sleep(time.Millisecond)
	second, err := s.UpsertInteraction(ctx, "acct-a", "pet-p", domain.InteractionDisliked)
	if err != nil {
		t.Fatalf("UpsertInteraction() update error: %v", err)
	}

	if second.Status != domain.InteractionDisliked {
		t.Errorf("Status = %q, want disliked", second.Status)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("CreatedAt should survive an update")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("UpdatedAt should advance on update")
	}

	var count int
	db.db.QueryRow(`SELECT COUNT(*) FROM interactions WHERE account_id = ? AND pet_id = ?`,
		"acct-a", "pet-p").Scan(&count)
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestInteractions_GetMissing(t *testing.T) {
	db := newTestDB(t)
	got, err := db.Repos().Interactions.GetInteraction(context.Background(), "acct-a", "pet-p")
	if err != nil || got != nil {
		t.Errorf("GetInteraction(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestInteractions_ListExcludesStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := db.Repos().Interactions

	s.UpsertInteraction(ctx, "acct-a", "pet-1", domain.InteractionLiked)
	s.UpsertInteraction(ctx, "acct-a", "pet-2", domain.InteractionViewed)
	s.UpsertInteraction(ctx, "acct-a", "pet-3", domain.InteractionDisliked)
	s.UpsertInteraction(ctx, "acct-b", "pet-1", domain.InteractionLiked)

	got, err := s.ListInteractions(ctx, "acct-a", domain.InteractionViewed)
	if err != nil {
		t.Fatalf("ListInteractions() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListInteractions() = %d, want 2", len(got))
	}
	for _, in := range got {
		if in.Status == domain.InteractionViewed {
			t.Error("viewed interactions should be excluded")
		}
		if in.AccountID != "acct-a" {
			t.Errorf("AccountID = %q, want acct-a", in.AccountID)
		}
	}
}
