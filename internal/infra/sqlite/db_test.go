package sqlite

import (
	"context"
	"testing"

	"github.com/petlink-network/petlink/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Migration Tests ────────────────────────────────────────────────────────

func TestMigrations_TablesExist(t *testing.T) {
	db := newTestDB(t)

	tables := []string{
		"accounts",
		"pets",
		"interactions",
		"history_records",
		"achievements",
		"account_achievements",
	}
	for _, tbl := range tables {
		t.Run(tbl, func(t *testing.T) {
			var name string
			err := db.db.QueryRow(
				`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, tbl,
			).Scan(&name)
			if err != nil {
				t.Fatalf("table %s not found: %v", tbl, err)
			}
		})
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		db, err := Open(dir)
		if err != nil {
			t.Fatalf("Open() pass %d error: %v", i, err)
		}
		db.Close()
	}
}

func TestMigrations_SeedsAchievementCatalog(t *testing.T) {
	db := newTestDB(t)
	r := db.Repos()
	for _, typ := range []domain.RecordType{domain.RecordAdoption, domain.RecordSponsorship, domain.RecordDonation} {
		a, err := r.Achievements.AchievementByType(context.Background(), typ)
		if err != nil {
			t.Fatalf("AchievementByType(%s) error: %v", typ, err)
		}
		if a == nil {
			t.Fatalf("catalog missing %s achievement", typ)
		}
	}
}

// ─── Unit of Work ───────────────────────────────────────────────────────────

func TestAtomic_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := domain.NewAdoption("acct-u", "pet-p", "acct-s")
	boom := domain.Conflict("boom")
	err := db.Atomic(ctx, func(r domain.Repos) error {
		if err := r.Ledger.CreateRecord(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("Atomic() error = %v, want boom", err)
	}

	got, err := db.Repos().Ledger.GetRecord(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecord() error: %v", err)
	}
	if got != nil {
		t.Error("record should not survive a rolled back transaction")
	}
}

func TestAtomic_Commits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := domain.NewAdoption("acct-u", "pet-p", "acct-s")
	err := db.Atomic(ctx, func(r domain.Repos) error {
		return r.Ledger.CreateRecord(ctx, rec)
	})
	if err != nil {
		t.Fatalf("Atomic() error: %v", err)
	}
	got, _ := db.Repos().Ledger.GetRecord(ctx, rec.ID)
	if got == nil {
		t.Fatal("committed record not found")
	}
}
