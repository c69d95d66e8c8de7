package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.
// Lookups return (nil, nil) when the row does not exist.

// InteractionStore persists one Interaction per (account, pet).
type InteractionStore interface {
	UpsertInteraction(ctx context.Context, accountID, petID string, status InteractionStatus) (*Interaction, error)
	GetInteraction(ctx context.Context, accountID, petID string) (*Interaction, error)
	ListInteractions(ctx context.Context, accountID string, exclude InteractionStatus) ([]Interaction, error)
}

// LedgerStore persists HistoryRecords. Status only changes through
// Transition, which is a compare-and-swap on the current status.
type LedgerStore interface {
	CreateRecord(ctx context.Context, rec *HistoryRecord) error
	GetRecord(ctx context.Context, id string) (*HistoryRecord, error)
	RecordByReference(ctx context.Context, ref string) (*HistoryRecord, error)

	// LatestAdoption returns the newest adoption record for (pet, account) in any status.
	LatestAdoption(ctx context.Context, petID, accountID string) (*HistoryRecord, error)
	PendingAdoption(ctx context.Context, petID, accountID string) (*HistoryRecord, error)
	PendingAdoptions(ctx context.Context, petID string) ([]HistoryRecord, error)
	AdoptionsForPet(ctx context.Context, petID string) ([]HistoryRecord, error)
	RecordsByAccount(ctx context.Context, accountID string) ([]HistoryRecord, error)

	// ExpiredPending returns pending payment records whose expiry is before now.
	ExpiredPending(ctx context.Context, now time.Time, limit int) ([]HistoryRecord, error)

	// Transition moves a record from → to only if it is still in from.
	// Returns false when the record was not in from (another writer won).
	Transition(ctx context.Context, id string, from, to Status) (bool, error)
}

// AchievementStore is the achievement catalog plus the account join table.
type AchievementStore interface {
	AchievementByType(ctx context.Context, t RecordType) (*Achievement, error)
	// GrantAchievement inserts the join row; false means it already existed.
	GrantAchievement(ctx context.Context, accountID, achievementID string) (bool, error)
	AccountAchievements(ctx context.Context, accountID string) ([]AccountAchievement, error)
}

// Awarder grants the achievement for a completed record type.
type Awarder interface {
	Award(ctx context.Context, accountID string, t RecordType) (bool, error)
}

// Identity is the account/pet collaborator.
type Identity interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetPet(ctx context.Context, id string) (*Pet, error)
	UpdatePet(ctx context.Context, id string, patch PetPatch) error
}

// Repos groups the stores bound to one connection or transaction.
type Repos struct {
	Interactions InteractionStore
	Ledger       LedgerStore
	Achievements AchievementStore
	Identity     Identity
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repos() Repos
	// Atomic runs fn inside a transaction. Returning an error rolls back.
	Atomic(ctx context.Context, fn func(r Repos) error) error
}

// ─── Payment Gateway ────────────────────────────────────────────────────────

// PaymentGateway creates checkout preferences at the external provider.
type PaymentGateway interface {
	CreatePreference(ctx context.Context, idempotencyKey string, req PreferenceRequest) (*Preference, error)
}

// PreferenceItem is one checkout line.
type PreferenceItem struct {
	Title      string
	Quantity   int
	UnitPrice  decimal.Decimal
	CurrencyID string
}

// PreferenceRequest is the body of a create-preference call.
type PreferenceRequest struct {
	Items                []PreferenceItem
	PayerEmail           string
	ExcludedPaymentTypes []string
	Installments         int
	ExternalReference    string
	NotificationURL      string
}

// Preference is the provider's checkout session.
type Preference struct {
	ID          string
	CheckoutURL string
}
