// Package interaction tracks account-to-pet engagement (liked, disliked,
// viewed). Changing an interaction also withdraws any pending adoption
// request the account had for that pet.
package interaction

import (
	"context"
	"log"

	"github.com/petlink-network/petlink/internal/domain"
	"github.com/petlink-network/petlink/internal/infra/observability"
)

// Tracker upserts interactions and keeps pending adoptions consistent with them.
type Tracker struct {
	store domain.Store
}

// NewTracker creates a Tracker.
func NewTracker(store domain.Store) *Tracker {
	return &Tracker{store: store}
}

// Record upserts the interaction for (account, pet).
func (t *Tracker) Record(ctx context.Context, accountID, petID string, status domain.InteractionStatus) (*domain.Interaction, error) {
	r := t.store.Repos()
	if err := checkParticipants(ctx, r, accountID, petID); err != nil {
		return nil, err
	}
	in, err := r.Interactions.UpsertInteraction(ctx, accountID, petID, status)
	if err != nil {
		return nil, domain.Internal("interaction store failure", err)
	}
	observability.Interactions.WithLabelValues(string(status)).Inc()
	return in, nil
}

// SetStatus upserts the interaction and, in the same transaction, cancels the
// pending adoption for exactly this (account, pet) before the upsert lands.
func (t *Tracker) SetStatus(ctx context.Context, accountID, petID string, status domain.InteractionStatus) (*domain.Interaction, error) {
	var (
		in        *domain.Interaction
		cancelled string
	)
	err := t.store.Atomic(ctx, func(r domain.Repos) error {
		if err := checkParticipants(ctx, r, accountID, petID); err != nil {
			return err
		}

		pending, err := r.Ledger.PendingAdoption(ctx, petID, accountID)
		if err != nil {
			return err
		}
		if pending != nil {
			ok, err := r.Ledger.Transition(ctx, pending.ID, domain.StatusPending, domain.StatusCancelled)
			if err != nil {
				return err
			}
			if ok {
				cancelled = pending.ID
			}
		}

		in, err = r.Interactions.UpsertInteraction(ctx, accountID, petID, status)
		return err
	})
	if err != nil {
		return nil, domain.AsInternal("interaction store failure", err)
	}

	observability.Interactions.WithLabelValues(string(status)).Inc()
	if cancelled != "" {
		observability.LedgerTransitions.WithLabelValues(string(domain.RecordAdoption), string(domain.StatusCancelled)).Inc()
		log.Printf("[interaction] %s set %s on %s, cancelled pending adoption %s", accountID, status, petID, cancelled)
	}
	return in, nil
}

// ListByAccount returns the account's non-viewed interactions with their
// pets. Deleted pets and pets adopted by someone else are left out.
func (t *Tracker) ListByAccount(ctx context.Context, accountID string) ([]domain.InteractionWithPet, error) {
	r := t.store.Repos()
	acct, err := r.Identity.GetAccount(ctx, accountID)
	if err != nil {
		return nil, domain.Internal("identity lookup failure", err)
	}
	if acct == nil {
		return nil, domain.ErrAccountNotFound
	}

	rows, err := r.Interactions.ListInteractions(ctx, accountID, domain.InteractionViewed)
	if err != nil {
		return nil, domain.Internal("interaction store failure", err)
	}

	out := make([]domain.InteractionWithPet, 0, len(rows))
	for _, in := range rows {
		pet, err := r.Identity.GetPet(ctx, in.PetID)
		if err != nil {
			return nil, domain.Internal("identity lookup failure", err)
		}
		if pet == nil || !pet.VisibleTo(accountID) {
			continue
		}
		out = append(out, domain.InteractionWithPet{Interaction: in, Pet: *pet})
	}
	return out, nil
}

// checkParticipants resolves both sides and rejects self-interaction.
func checkParticipants(ctx context.Context, r domain.Repos, accountID, petID string) error {
	acct, err := r.Identity.GetAccount(ctx, accountID)
	if err != nil {
		return domain.Internal("identity lookup failure", err)
	}
	if acct == nil {
		return domain.ErrAccountNotFound
	}
	pet, err := r.Identity.GetPet(ctx, petID)
	if err != nil {
		return domain.Internal("identity lookup failure", err)
	}
	if pet == nil || pet.Deleted {
		return domain.ErrPetNotFound
	}
	if pet.OwnedBy(accountID) {
		return domain.ErrSelfInteraction
	}
	return nil
}
