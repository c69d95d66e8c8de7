// Package adoption arbitrates adoption requests. Requests are cheap and
// many accounts may compete for one pet; the owner's acceptance picks a
// single winner and cancels every other pending request in the same
// transaction. The pet is only marked adopted on acceptance.
package adoption

import (
	"context"
	"errors"
	"log"

	"github.com/petlink-network/petlink/internal/domain"
	"github.com/petlink-network/petlink/internal/infra/observability"
)

// Arbiter owns the request/accept/reject rules for adoption records.
type Arbiter struct {
	store   domain.Store
	awarder domain.Awarder
}

// NewArbiter creates an Arbiter. awarder may be nil to skip achievements.
func NewArbiter(store domain.Store, awarder domain.Awarder) *Arbiter {
	return &Arbiter{store: store, awarder: awarder}
}

// ─── Request ────────────────────────────────────────────────────────────────

// Request files a pending adoption request by requesterID for petID.
func (a *Arbiter) Request(ctx context.Context, petID, requesterID string) (*domain.HistoryRecord, error) {
	var rec *domain.HistoryRecord
	err := a.store.Atomic(ctx, func(r domain.Repos) error {
		acct, err := r.Identity.GetAccount(ctx, requesterID)
		if err != nil {
			return err
		}
		if acct == nil {
			return domain.ErrAccountNotFound
		}
		pet, err := loadPet(ctx, r, petID)
		if err != nil {
			return err
		}
		switch {
		case pet.Adopted:
			return domain.ErrPetAdopted
		case pet.OwnedBy(requesterID):
			return domain.ErrSelfAdoption
		}

		existing, err := r.Ledger.PendingAdoption(ctx, petID, requesterID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyRequested
		}

		rec = domain.NewAdoption(requesterID, petID, pet.AccountID)
		return r.Ledger.CreateRecord(ctx, rec)
	})
	if err != nil {
		return nil, domain.AsInternal("adoption request failed", err)
	}
	log.Printf("[adoption] %s requested pet %s (record %s)", requesterID, petID, rec.ID)
	return rec, nil
}

// ─── Accept ─────────────────────────────────────────────────────────────────

// Accept completes adopterID's pending request for petID. Only the pet's
// owner may accept a pending request. The winning transition, the pet update and the
// cancellation of competing requests commit together; the adoption
// achievement is granted after commit.
func (a *Arbiter) Accept(ctx context.Context, petID, adopterID, institutionID string) (*domain.HistoryRecord, error) {
	var (
		target    *domain.HistoryRecord
		cancelled int
	)
	err := a.store.Atomic(ctx, func(r domain.Repos) error {
		var (
			pet *domain.Pet
			err error
		)
		pet, target, err = decisionTarget(ctx, r, petID, adopterID, institutionID)
		if err != nil {
			return err
		}
		if pet.Adopted {
			return domain.ErrPetAdopted
		}

		ok, err := r.Ledger.Transition(ctx, target.ID, domain.StatusPending, domain.StatusCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAdoptionProcessed
		}

		adopted := true
		if err := r.Identity.UpdatePet(ctx, petID, domain.PetPatch{Adopted: &adopted, AccountID: &adopterID}); err != nil {
			return err
		}

		siblings, err := r.Ledger.PendingAdoptions(ctx, petID)
		if err != nil {
			return err
		}
		for _, s := range siblings {
			ok, err := r.Ledger.Transition(ctx, s.ID, domain.StatusPending, domain.StatusCancelled)
			if err != nil {
				return err
			}
			if ok {
				cancelled++
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAdoptionProcessed) || errors.Is(err, domain.ErrAdoptionCompetition) {
			observability.LedgerConflicts.WithLabelValues(string(domain.RecordAdoption)).Inc()
		}
		return nil, domain.AsInternal("adoption accept failed", err)
	}

	observability.LedgerTransitions.WithLabelValues(string(domain.RecordAdoption), string(domain.StatusCompleted)).Inc()
	if cancelled > 0 {
		observability.LedgerTransitions.WithLabelValues(string(domain.RecordAdoption), string(domain.StatusCancelled)).Add(float64(cancelled))
		observability.AdoptionSiblingsCancelled.Add(float64(cancelled))
	}
	log.Printf("[adoption] %s accepted %s for pet %s, cancelled %d competing requests",
		institutionID, adopterID, petID, cancelled)

	if a.awarder != nil {
		// The ledger is already committed; a failed grant is retried by the
		// next completion signal since Award is idempotent.
		if _, err := a.awarder.Award(ctx, adopterID, domain.RecordAdoption); err != nil {
			log.Printf("[adoption] award for %s failed: %v", adopterID, err)
		}
	}
	return a.reload(ctx, target.ID)
}

// ─── Reject ─────────────────────────────────────────────────────────────────

// Reject cancels adopterID's pending request for petID. The pet and any
// competing requests are left untouched.
func (a *Arbiter) Reject(ctx context.Context, petID, adopterID, institutionID string) (*domain.HistoryRecord, error) {
	var target *domain.HistoryRecord
	err := a.store.Atomic(ctx, func(r domain.Repos) error {
		var err error
		_, target, err = decisionTarget(ctx, r, petID, adopterID, institutionID)
		if err != nil {
			return err
		}
		ok, err := r.Ledger.Transition(ctx, target.ID, domain.StatusPending, domain.StatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAdoptionProcessed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAdoptionProcessed) {
			observability.LedgerConflicts.WithLabelValues(string(domain.RecordAdoption)).Inc()
		}
		return nil, domain.AsInternal("adoption reject failed", err)
	}

	observability.LedgerTransitions.WithLabelValues(string(domain.RecordAdoption), string(domain.StatusCancelled)).Inc()
	log.Printf("[adoption] %s rejected %s for pet %s", institutionID, adopterID, petID)
	return a.reload(ctx, target.ID)
}

// ─── Listing ────────────────────────────────────────────────────────────────

// ListRequests returns every adoption record for petID. The caller must own
// the pet or be the institution the requests were addressed to.
func (a *Arbiter) ListRequests(ctx context.Context, petID, institutionID string) ([]domain.HistoryRecord, error) {
	r := a.store.Repos()
	pet, err := loadPet(ctx, r, petID)
	if err != nil {
		return nil, domain.AsInternal("adoption listing failed", err)
	}
	recs, err := r.Ledger.AdoptionsForPet(ctx, petID)
	if err != nil {
		return nil, domain.Internal("adoption listing failed", err)
	}
	if !pet.OwnedBy(institutionID) && !addressedTo(recs, institutionID) {
		return nil, domain.ErrNotPetOwner
	}
	if recs == nil {
		recs = []domain.HistoryRecord{}
	}
	return recs, nil
}

func addressedTo(recs []domain.HistoryRecord, institutionID string) bool {
	for i := range recs {
		if recs[i].InstitutionID() == institutionID {
			return true
		}
	}
	return false
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func loadPet(ctx context.Context, r domain.Repos, petID string) (*domain.Pet, error) {
	pet, err := r.Identity.GetPet(ctx, petID)
	if err != nil {
		return nil, err
	}
	if pet == nil || pet.Deleted {
		return nil, domain.ErrPetNotFound
	}
	return pet, nil
}

// decisionTarget loads the pet and adopterID's latest request for it, and
// checks that institutionID may decide it. Pending requests are decided by
// the current owner only; the institution a request was addressed to still
// sees it as processed after ownership has moved to the adopter.
func decisionTarget(ctx context.Context, r domain.Repos, petID, adopterID, institutionID string) (*domain.Pet, *domain.HistoryRecord, error) {
	pet, err := loadPet(ctx, r, petID)
	if err != nil {
		return nil, nil, err
	}
	rec, err := r.Ledger.LatestAdoption(ctx, petID, adopterID)
	if err != nil {
		return nil, nil, err
	}
	if !pet.OwnedBy(institutionID) && (rec == nil || rec.InstitutionID() != institutionID) {
		return nil, nil, domain.ErrNotPetOwner
	}
	if rec == nil {
		return nil, nil, domain.ErrHistoryNotFound
	}
	if rec.Status != domain.StatusPending {
		return nil, nil, domain.ErrAdoptionProcessed
	}
	if !pet.OwnedBy(institutionID) {
		return nil, nil, domain.ErrNotPetOwner
	}
	return pet, rec, nil
}

func (a *Arbiter) reload(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	rec, err := a.store.Repos().Ledger.GetRecord(ctx, id)
	if err != nil {
		return nil, domain.Internal("ledger read failed", err)
	}
	if rec == nil {
		return nil, domain.ErrHistoryNotFound
	}
	return rec, nil
}
