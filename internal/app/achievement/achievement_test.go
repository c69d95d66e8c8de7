package achievement

import (
	"context"
	"errors"
	"testing"

	"github.com/petlink-network/petlink/internal/domain"
	"github.com/petlink-network/petlink/internal/infra/sqlite"
)

func newTestAwarder(t *testing.T) *Awarder {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAwarder(db.Repos().Achievements)
}

func TestAward_Idempotent(t *testing.T) {
	a := newTestAwarder(t)
	ctx := context.Background()

	first, err := a.Award(ctx, "acct-a", domain.RecordAdoption)
	if err != nil || !first {
		t.Fatalf("first Award() = %v, %v; want true", first, err)
	}
	second, err := a.Award(ctx, "acct-a", domain.RecordAdoption)
	if err != nil {
		t.Fatalf("second Award() error: %v", err)
	}
	if second {
		t.Error("second Award() should be a no-op")
	}

	held, err := a.List(ctx, "acct-a")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(held) != 1 {
		t.Errorf("List() = %d rows, want exactly 1", len(held))
	}
}

func TestAward_DistinctTypes(t *testing.T) {
	a := newTestAwarder(t)
	ctx := context.Background()

	for _, typ := range []domain.RecordType{domain.RecordAdoption, domain.RecordSponsorship, domain.RecordDonation} {
		if _, err := a.Award(ctx, "acct-a", typ); err != nil {
			t.Fatalf("Award(%s) error: %v", typ, err)
		}
	}
	held, _ := a.List(ctx, "acct-a")
	if len(held) != 3 {
		t.Errorf("List() = %d, want 3", len(held))
	}
}

func TestAward_UnknownType(t *testing.T) {
	a := newTestAwarder(t)
	_, err := a.Award(context.Background(), "acct-a", "grooming")
	if !errors.Is(err, domain.ErrAchievementNotFound) {
		t.Errorf("Award(unknown) error = %v, want ErrAchievementNotFound", err)
	}
}

func TestList_EmptyIsNotNil(t *testing.T) {
	a := newTestAwarder(t)
	held, err := a.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if held == nil {
		t.Error("List() should return an empty slice, not nil")
	}
}
