package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Ledger Types ───────────────────────────────────────────────────────────
// A HistoryRecord is one adoption, sponsorship or donation attempt. The
// variant-specific fields live in a sealed Subject so an adoption can never be
// built without a pet, nor a payment without an amount.

// RecordType identifies the ledger entry variant.
type RecordType string

const (
	RecordAdoption    RecordType = "adoption"
	RecordSponsorship RecordType = "sponsorship"
	RecordDonation    RecordType = "donation"
)

// Valid reports whether t is a known record type.
func (t RecordType) Valid() bool {
	switch t {
	case RecordAdoption, RecordSponsorship, RecordDonation:
		return true
	}
	return false
}

// IsPayment reports whether records of this type go through the payment gateway.
func (t RecordType) IsPayment() bool {
	return t == RecordSponsorship || t == RecordDonation
}

// Status is the lifecycle state of a HistoryRecord.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

// CanTransition reports whether s → to is a legal ledger transition.
// Only pending records move, and only to a terminal state.
func (s Status) CanTransition(to Status) bool {
	return s == StatusPending && to.Terminal()
}

// ─── Subjects ───────────────────────────────────────────────────────────────

// Subject carries the variant-specific part of a HistoryRecord.
type Subject interface {
	Type() RecordType
	validate() error
}

// AdoptionSubject is the variant for adoption requests.
type AdoptionSubject struct {
	PetID         string
	InstitutionID string // pet owner at request time
}

func (AdoptionSubject) Type() RecordType { return RecordAdoption }

func (s AdoptionSubject) validate() error {
	if s.PetID == "" {
		return BadRequest("adoption record requires a pet")
	}
	return nil
}

// DonationSubject is the variant for platform donations.
type DonationSubject struct {
	Amount decimal.Decimal
}

func (DonationSubject) Type() RecordType { return RecordDonation }

func (s DonationSubject) validate() error {
	if !s.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// SponsorshipSubject is the variant for sponsoring an institution.
type SponsorshipSubject struct {
	InstitutionID string
	Amount        decimal.Decimal
}

func (SponsorshipSubject) Type() RecordType { return RecordSponsorship }

func (s SponsorshipSubject) validate() error {
	if s.InstitutionID == "" {
		return BadRequest("sponsorship record requires an institution")
	}
	if !s.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ─── HistoryRecord ──────────────────────────────────────────────────────────

// HistoryRecord is a single ledger entry.
type HistoryRecord struct {
	ID                string
	Status            Status
	AccountID         string
	Subject           Subject
	ExternalReference string
	URLPayment        string
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewAdoption builds a pending adoption record.
func NewAdoption(requesterID, petID, institutionID string) *HistoryRecord {
	return newRecord(requesterID, AdoptionSubject{PetID: petID, InstitutionID: institutionID})
}

// NewDonation builds a pending donation record.
func NewDonation(payerID string, amount decimal.Decimal) *HistoryRecord {
	return newRecord(payerID, DonationSubject{Amount: amount})
}

// NewSponsorship builds a pending sponsorship record.
func NewSponsorship(payerID, institutionID string, amount decimal.Decimal) *HistoryRecord {
	return newRecord(payerID, SponsorshipSubject{InstitutionID: institutionID, Amount: amount})
}

func newRecord(accountID string, subject Subject) *HistoryRecord {
	now := time.Now().UTC()
	return &HistoryRecord{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		AccountID: accountID,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Type returns the record variant.
func (r *HistoryRecord) Type() RecordType {
	if r.Subject == nil {
		return ""
	}
	return r.Subject.Type()
}

// PetID returns the adopted pet, or "" for payment records.
func (r *HistoryRecord) PetID() string {
	if s, ok := r.Subject.(AdoptionSubject); ok {
		return s.PetID
	}
	return ""
}

// InstitutionID returns the receiving institution, if any.
func (r *HistoryRecord) InstitutionID() string {
	switch s := r.Subject.(type) {
	case AdoptionSubject:
		return s.InstitutionID
	case SponsorshipSubject:
		return s.InstitutionID
	}
	return ""
}

// Amount returns the payment amount and whether the record carries one.
func (r *HistoryRecord) Amount() (decimal.Decimal, bool) {
	switch s := r.Subject.(type) {
	case DonationSubject:
		return s.Amount, true
	case SponsorshipSubject:
		return s.Amount, true
	}
	return decimal.Zero, false
}

// Expired reports whether the record has an expiry that is at or before now.
func (r *HistoryRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Validate checks the per-variant invariants before persistence.
func (r *HistoryRecord) Validate() error {
	if r.Subject == nil {
		return BadRequest("history record has no subject")
	}
	if r.AccountID == "" {
		return BadRequest("history record requires an account")
	}
	switch r.Status {
	case StatusPending, StatusCompleted, StatusCancelled, StatusRefunded:
	default:
		return BadRequest("unknown status %q", r.Status)
	}
	return r.Subject.validate()
}

// FormatAmount renders an amount the way it is stored and returned.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(amountPlaces)
}

// amountPlaces is the precision amounts are stored and charged at.
const amountPlaces = 2

// ParseAmount parses a positive decimal amount with at most two decimal
// places. Anything finer would be rounded before it reaches the ledger or
// the gateway, so it is rejected rather than silently changed.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() || !d.Equal(d.Round(amountPlaces)) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// historyRecordJSON is the flattened wire form.
type historyRecordJSON struct {
	ID                string     `json:"id"`
	Type              RecordType `json:"type"`
	Status            Status     `json:"status"`
	Account           string     `json:"account"`
	Pet               string     `json:"pet,omitempty"`
	Institution       string     `json:"institution,omitempty"`
	Amount            string     `json:"amount,omitempty"`
	ExternalReference string     `json:"externalReference,omitempty"`
	URLPayment        string     `json:"urlPayment,omitempty"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// MarshalJSON flattens the subject into the record.
func (r HistoryRecord) MarshalJSON() ([]byte, error) {
	out := historyRecordJSON{
		ID:                r.ID,
		Type:              r.Type(),
		Status:            r.Status,
		Account:           r.AccountID,
		Pet:               r.PetID(),
		Institution:       r.InstitutionID(),
		ExternalReference: r.ExternalReference,
		URLPayment:        r.URLPayment,
		ExpiresAt:         r.ExpiresAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if amt, ok := r.Amount(); ok {
		out.Amount = FormatAmount(amt)
	}
	return json.Marshal(out)
}
