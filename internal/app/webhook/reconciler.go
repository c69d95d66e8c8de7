// Package webhook reconciles payment provider notifications against the
// ledger. A notification is trusted only after its HMAC signature checks
// out; it then moves the matching pending record to the terminal state the
// provider reports, at most once.
package webhook

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/petlink-network/petlink/internal/app/payment"
	"github.com/petlink-network/petlink/internal/domain"
	"github.com/petlink-network/petlink/internal/infra/observability"
)

// Notification is one inbound provider callback.
type Notification struct {
	Signature         string // x-signature header
	RequestID         string // x-request-id header
	DataID            string // data.id
	Status            string // provider payment status
	ExternalReference string
}

// Result is the outcome of a successful reconciliation.
type Result struct {
	Record    *domain.HistoryRecord `json:"record"`
	Duplicate bool                  `json:"duplicate"` // redelivery of an already applied status
}

// Reconciler applies verified notifications to the ledger.
type Reconciler struct {
	store   domain.Store
	awarder domain.Awarder
	secret  string
	now     func() time.Time
}

// NewReconciler creates a Reconciler. With an empty secret every
// notification is rejected.
func NewReconciler(store domain.Store, awarder domain.Awarder, secret string) *Reconciler {
	if secret == "" {
		log.Printf("[webhook] no webhook secret configured, all notifications will be rejected")
	}
	return &Reconciler{store: store, awarder: awarder, secret: secret, now: time.Now}
}

// targetStatus maps a provider payment status to a ledger status.
func targetStatus(providerStatus string) (domain.Status, bool) {
	switch providerStatus {
	case "approved":
		return domain.StatusCompleted, true
	case "rejected", "cancelled":
		return domain.StatusCancelled, true
	case "refunded", "charged_back":
		return domain.StatusRefunded, true
	}
	return "", false
}

// ─── Reconcile ──────────────────────────────────────────────────────────────

// Reconcile verifies n and applies it. Rejected notifications never touch
// the ledger.
func (rc *Reconciler) Reconcile(ctx context.Context, n Notification) (*Result, error) {
	res, err := rc.reconcile(ctx, n)
	observability.WebhookDeliveries.WithLabelValues(outcome(res, err)).Inc()
	return res, err
}

func (rc *Reconciler) reconcile(ctx context.Context, n Notification) (*Result, error) {
	if err := Verify(rc.secret, n.Signature, n.DataID, n.RequestID); err != nil {
		log.Printf("[webhook] rejected notification %s (request %s): %v", n.DataID, n.RequestID, err)
		return nil, domain.ErrInvalidSignature
	}
	if n.ExternalReference == "" {
		return nil, domain.BadRequest("notification has no external reference")
	}

	ledger := rc.store.Repos().Ledger
	rec, err := ledger.RecordByReference(ctx, n.ExternalReference)
	if err != nil {
		return nil, domain.Internal("ledger lookup failed", err)
	}
	if rec == nil {
		return nil, domain.ErrHistoryNotFound
	}
	if typ, payer, ok := payment.ParseReference(n.ExternalReference); !ok || typ != rec.Type() || payer != rec.AccountID {
		return nil, domain.ErrReferenceMismatch
	}

	// A lost CAS means another delivery or the sweeper moved the record;
	// re-read once and judge the new state.
	for attempt := 0; attempt < 2; attempt++ {
		res, retry, err := rc.apply(ctx, rec, n.Status)
		if !retry {
			return res, err
		}
		if rec, err = ledger.GetRecord(ctx, rec.ID); err != nil {
			return nil, domain.Internal("ledger lookup failed", err)
		}
		if rec == nil {
			return nil, domain.ErrHistoryNotFound
		}
	}
	return nil, domain.ErrAlreadyProcessed
}

// apply judges rec against the claimed status. retry reports a lost CAS.
func (rc *Reconciler) apply(ctx context.Context, rec *domain.HistoryRecord, claimed string) (*Result, bool, error) {
	ledger := rc.store.Repos().Ledger
	typ := string(rec.Type())

	// Expiry is judged only while pending. Transitions are forward-only, so
	// a terminal record cannot be cancelled and falls through to the
	// redelivery rule below.
	if rec.Status == domain.StatusPending && rec.Expired(rc.now()) {
		ok, err := ledger.Transition(ctx, rec.ID, domain.StatusPending, domain.StatusCancelled)
		if err != nil {
			return nil, false, domain.Internal("ledger transition failed", err)
		}
		if !ok {
			return nil, true, nil
		}
		observability.LedgerTransitions.WithLabelValues(typ, string(domain.StatusCancelled)).Inc()
		log.Printf("[webhook] %s %s expired at %s, cancelled (claimed %q)",
			typ, rec.ID, rec.ExpiresAt.Format(time.RFC3339), claimed)
		return nil, false, domain.ErrIntentExpired
	}

	target, known := targetStatus(claimed)
	if rec.Status.Terminal() {
		if known && target == rec.Status {
			return &Result{Record: rec, Duplicate: true}, false, nil
		}
		return nil, false, domain.ErrAlreadyProcessed
	}
	if !known {
		return nil, false, domain.ErrStatusMismatch
	}

	ok, err := ledger.Transition(ctx, rec.ID, domain.StatusPending, target)
	if err != nil {
		return nil, false, domain.AsInternal("ledger transition failed", err)
	}
	if !ok {
		observability.LedgerConflicts.WithLabelValues(typ).Inc()
		return nil, true, nil
	}
	observability.LedgerTransitions.WithLabelValues(typ, string(target)).Inc()
	log.Printf("[webhook] %s %s %s -> %s", typ, rec.ID, domain.StatusPending, target)

	if target == domain.StatusCompleted && rc.awarder != nil {
		if _, err := rc.awarder.Award(ctx, rec.AccountID, rec.Type()); err != nil {
			log.Printf("[webhook] award %s to %s failed: %v", typ, rec.AccountID, err)
		}
	}

	updated, err := ledger.GetRecord(ctx, rec.ID)
	if err != nil {
		return nil, false, domain.Internal("ledger lookup failed", err)
	}
	if updated == nil {
		return nil, false, domain.ErrHistoryNotFound
	}
	return &Result{Record: updated}, false, nil
}

func outcome(res *Result, err error) string {
	switch {
	case err == nil && res.Duplicate:
		return "duplicate"
	case err == nil:
		return "applied"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "rejected_signature"
	case errors.Is(err, domain.ErrIntentExpired):
		return "expired"
	case errors.Is(err, domain.ErrHistoryNotFound):
		return "not_found"
	case domain.KindOf(err) == domain.KindConflict, domain.KindOf(err) == domain.KindBadRequest:
		return "conflict"
	}
	return "error"
}
