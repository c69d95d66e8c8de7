// Package testutil provides reusable fixtures for lifecycle tests: an
// isolated SQLite database plus helpers to seed accounts and pets.
package testutil

import (
	"context"
	"testing"

	"github.com/petlink-network/petlink/internal/domain"
	"github.com/petlink-network/petlink/internal/infra/sqlite"
)

// Env is an isolated database for one test.
type Env struct {
	DB *sqlite.DB
	t  *testing.T
}

// NewEnv opens a database under t.TempDir(), closed on cleanup.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Env{DB: db, t: t}
}

// Account seeds a personal account.
func (e *Env) Account(id string) domain.Account {
	e.t.Helper()
	a := domain.Account{ID: id, Email: id + "@example.org", Name: id}
	if err := e.DB.UpsertAccount(context.Background(), a); err != nil {
		e.t.Fatalf("seed account %s: %v", id, err)
	}
	return a
}

// Institution seeds an institution account (shelter, rescue).
func (e *Env) Institution(id string) domain.Account {
	e.t.Helper()
	a := domain.Account{ID: id, Email: id + "@example.org", Name: id, Institution: true}
	if err := e.DB.UpsertAccount(context.Background(), a); err != nil {
		e.t.Fatalf("seed institution %s: %v", id, err)
	}
	return a
}

// Pet seeds a pet owned by ownerID.
func (e *Env) Pet(id, ownerID string) domain.Pet {
	e.t.Helper()
	p := domain.Pet{ID: id, AccountID: ownerID, Name: id}
	if err := e.DB.UpsertPet(context.Background(), p); err != nil {
		e.t.Fatalf("seed pet %s: %v", id, err)
	}
	return p
}

// SavePet overwrites a pet row, e.g. to mark it deleted.
func (e *Env) SavePet(p domain.Pet) {
	e.t.Helper()
	if err := e.DB.UpsertPet(context.Background(), p); err != nil {
		e.t.Fatalf("save pet %s: %v", p.ID, err)
	}
}

// GetPet reloads a pet, failing the test if it is missing.
func (e *Env) GetPet(id string) domain.Pet {
	e.t.Helper()
	p, err := e.DB.Repos().Identity.GetPet(context.Background(), id)
	if err != nil || p == nil {
		e.t.Fatalf("load pet %s: %v", id, err)
	}
	return *p
}

// Record reloads a ledger entry, failing the test if it is missing.
func (e *Env) Record(id string) domain.HistoryRecord {
	e.t.Helper()
	rec, err := e.DB.Repos().Ledger.GetRecord(context.Background(), id)
	if err != nil || rec == nil {
		e.t.Fatalf("load record %s: %v", id, err)
	}
	return *rec
}

// CreateRecord inserts a ledger entry directly.
func (e *Env) CreateRecord(rec *domain.HistoryRecord) {
	e.t.Helper()
	if err := e.DB.Repos().Ledger.CreateRecord(context.Background(), rec); err != nil {
		e.t.Fatalf("create record: %v", err)
	}
}
