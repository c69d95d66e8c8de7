package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/petlink-network/petlink/internal/domain"
)

// ─── Identity ───────────────────────────────────────────────────────────────

func TestIdentity_AccountRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	want := domain.Account{ID: "acct-s", Email: "shelter@example.org", Name: "Shelter", Institution: true}
	if err := db.UpsertAccount(ctx, want); err != nil {
		t.Fatalf("UpsertAccount() error: %v", err)
	}
	got, err := db.Repos().Identity.GetAccount(ctx, "acct-s")
	if err != nil {
		t.Fatalf("GetAccount() error: %v", err)
	}
	if got == nil || *got != want {
		t.Errorf("GetAccount() = %+v, want %+v", got, want)
	}

	missing, err := db.Repos().Identity.GetAccount(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("GetAccount(missing) = %v, %v", missing, err)
	}
}

func TestIdentity_UpdatePet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := db.Repos().Identity

	db.UpsertPet(ctx, domain.Pet{ID: "pet-p", AccountID: "acct-s", Name: "Rex"})

	adopted := true
	owner := "acct-u"
	if err := id.UpdatePet(ctx, "pet-p", domain.PetPatch{Adopted: &adopted, AccountID: &owner}); err != nil {
		t.Fatalf("UpdatePet() error: %v", err)
	}
	got, _ := id.GetPet(ctx, "pet-p")
	if !got.Adopted || got.AccountID != "acct-u" {
		t.Errorf("pet after update = %+v", got)
	}
	if got.Name != "Rex" {
		t.Errorf("Name = %q, untouched fields should survive", got.Name)
	}

	if err := id.UpdatePet(ctx, "missing", domain.PetPatch{Adopted: &adopted}); !errors.Is(err, domain.ErrPetNotFound) {
		t.Errorf("UpdatePet(missing) error = %v, want ErrPetNotFound", err)
	}
	if err := id.UpdatePet(ctx, "pet-p", domain.PetPatch{}); err != nil {
		t.Errorf("empty patch error: %v", err)
	}
}
