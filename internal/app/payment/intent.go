// Package payment issues payment intents (donations and sponsorships)
// against the external payment gateway. A ledger entry is written only
// after the gateway acknowledges the preference, so the ledger never holds
// an intent the provider has not seen.
package payment

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/petlink-network/petlink/internal/domain"
	"github.com/petlink-network/petlink/internal/infra/observability"
)

// Config controls how intents are issued.
type Config struct {
	TTL                  time.Duration // pending intents expire after this
	Currency             string
	Installments         int
	ExcludedPaymentTypes []string
	NotificationURL      string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TTL:                  30 * time.Minute,
		Currency:             "BRL",
		Installments:         1,
		ExcludedPaymentTypes: []string{"ticket"},
	}
}

// Intent is what the client needs to complete a payment.
type Intent struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Factory creates payment intents.
type Factory struct {
	gateway domain.PaymentGateway
	store   domain.Store
	config  Config
	now     func() time.Time
	newKey  func() string
}

// NewFactory creates a Factory. A zero TTL falls back to the default.
func NewFactory(gateway domain.PaymentGateway, store domain.Store, cfg Config) *Factory {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.Installments <= 0 {
		cfg.Installments = 1
	}
	return &Factory{
		gateway: gateway,
		store:   store,
		config:  cfg,
		now:     time.Now,
		newKey:  uuid.NewString,
	}
}

// ─── Operations ─────────────────────────────────────────────────────────────

// Donate creates a donation intent for payerID.
func (f *Factory) Donate(ctx context.Context, payerID, amount string) (*Intent, error) {
	amt, err := domain.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	payer, err := f.account(ctx, payerID)
	if err != nil {
		return nil, err
	}

	key := f.newKey()
	rec := domain.NewDonation(payer.ID, amt)
	rec.ExternalReference = DonationReference(payer.ID, key)
	return f.issue(ctx, key, payer, rec, "Donation to PetLink", amt)
}

// Sponsor creates a sponsorship intent from payerID to institutionID.
func (f *Factory) Sponsor(ctx context.Context, payerID, institutionID, amount string) (*Intent, error) {
	amt, err := domain.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	if institutionID == "" {
		return nil, domain.BadRequest("institutionId is required")
	}
	payer, err := f.account(ctx, payerID)
	if err != nil {
		return nil, err
	}
	inst, err := f.account(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	if inst.ID == payer.ID {
		return nil, domain.ErrSelfSponsorship
	}

	key := f.newKey()
	rec := domain.NewSponsorship(payer.ID, inst.ID, amt)
	rec.ExternalReference = SponsorshipReference(payer.ID, inst.ID, key)
	return f.issue(ctx, key, payer, rec, "Sponsorship for "+inst.Name, amt)
}

// DonationReference encodes a donation attempt. Ids are escaped so a
// separator inside an id survives the round trip through ParseReference.
func DonationReference(payerID, key string) string {
	return joinReference(domain.RecordDonation, payerID, key)
}

// SponsorshipReference encodes a sponsorship attempt.
func SponsorshipReference(payerID, institutionID, key string) string {
	return joinReference(domain.RecordSponsorship, payerID, institutionID, key)
}

// ParseReference decodes an external reference into the record type and
// payer it was issued for.
func ParseReference(ref string) (domain.RecordType, string, bool) {
	parts := strings.Split(ref, refSeparator)
	var want int
	switch domain.RecordType(parts[0]) {
	case domain.RecordDonation:
		want = 3
	case domain.RecordSponsorship:
		want = 4
	default:
		return "", "", false
	}
	if len(parts) != want {
		return "", "", false
	}
	ids := make([]string, 0, want-1)
	for _, p := range parts[1:] {
		id, err := url.QueryUnescape(p)
		if err != nil || id == "" {
			return "", "", false
		}
		ids = append(ids, id)
	}
	return domain.RecordType(parts[0]), ids[0], true
}

const refSeparator = ":"

func joinReference(t domain.RecordType, ids ...string) string {
	parts := []string{string(t)}
	for _, id := range ids {
		parts = append(parts, url.QueryEscape(id))
	}
	return strings.Join(parts, refSeparator)
}

// ─── Internals ──────────────────────────────────────────────────────────────

func (f *Factory) account(ctx context.Context, id string) (*domain.Account, error) {
	acct, err := f.store.Repos().Identity.GetAccount(ctx, id)
	if err != nil {
		return nil, domain.Internal("identity lookup failure", err)
	}
	if acct == nil {
		return nil, domain.ErrAccountNotFound
	}
	return acct, nil
}

// issue calls the gateway and, only on success, persists the pending record.
func (f *Factory) issue(ctx context.Context, key string, payer *domain.Account, rec *domain.HistoryRecord, title string, amt decimal.Decimal) (*Intent, error) {
	typ := string(rec.Type())
	req := domain.PreferenceRequest{
		Items: []domain.PreferenceItem{{
			Title:      title,
			Quantity:   1,
			UnitPrice:  amt,
			CurrencyID: f.config.Currency,
		}},
		PayerEmail:           payer.Email,
		ExcludedPaymentTypes: f.config.ExcludedPaymentTypes,
		Installments:         f.config.Installments,
		ExternalReference:    rec.ExternalReference,
		NotificationURL:      f.config.NotificationURL,
	}

	start := time.Now()
	pref, err := f.gateway.CreatePreference(ctx, key, req)
	observability.GatewayLatency.Observe(float64(time.Since(start).Milliseconds()))
	if err == nil && (pref == nil || pref.CheckoutURL == "") {
		err = errors.New("empty preference response")
	}
	if err != nil {
		observability.PaymentIntents.WithLabelValues(typ, "gateway_error").Inc()
		log.Printf("[payment] create preference for %s failed: %v", rec.ExternalReference, err)
		return nil, domain.Internal("payment gateway failure", err)
	}

	now := f.now().UTC()
	expires := now.Add(f.config.TTL)
	rec.URLPayment = pref.CheckoutURL
	rec.ExpiresAt = &expires
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := f.store.Repos().Ledger.CreateRecord(ctx, rec); err != nil {
		observability.PaymentIntents.WithLabelValues(typ, "store_error").Inc()
		log.Printf("[payment] persist %s intent %s failed: %v", typ, rec.ExternalReference, err)
		return nil, domain.AsInternal("payment ledger failure", err)
	}

	observability.PaymentIntents.WithLabelValues(typ, "created").Inc()
	log.Printf("[payment] %s intent %s for %s (%s) expires %s",
		typ, pref.ID, payer.ID, domain.FormatAmount(amt), expires.Format(time.RFC3339))
	return &Intent{ID: pref.ID, URL: pref.CheckoutURL}, nil
}
