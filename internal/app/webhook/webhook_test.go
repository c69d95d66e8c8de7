package webhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/petlink-network/petlink/internal/app/achievement"
	"github.com/petlink-network/petlink/internal/app/payment"
	"github.com/petlink-network/petlink/internal/domain"
	"github.com/petlink-network/petlink/internal/testutil"
)

const secret = "whsec-test"

// ─── Signature Tests ────────────────────────────────────────────────────────

func TestParseSignature(t *testing.T) {
	tests := []struct {
		header string
		ok     bool
	}{
		{"ts=1704908010,v1=abc", true},
		{" ts = 1 , v1 = ff ", true},
		{"v1=abc,ts=1,extra=x", true},
		{"ts=1", false},
		{"v1=abc", false},
		{"", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			_, err := ParseSignature(tt.header)
			if (err == nil) != tt.ok {
				t.Errorf("ParseSignature(%q) error = %v, want ok=%v", tt.header, err, tt.ok)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	valid := Header(secret, "pay-1", "req-1", "1704908010")
	tests := []struct {
		name   string
		secret string
		header string
		dataID string
		ok     bool
	}{
		{"valid", secret, valid, "pay-1", true},
		{"wrong secret", "other", valid, "pay-1", false},
		{"different data id", secret, valid, "pay-2", false},
		{"tampered ts", secret, "ts=1704908011,v1=" + Sign(secret, "pay-1", "req-1", "1704908010"), "pay-1", false},
		{"non-hex digest", secret, "ts=1,v1=zz", "pay-1", false},
		{"no secret", "", valid, "pay-1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.secret, tt.header, tt.dataID, "req-1")
			if (err == nil) != tt.ok {
				t.Errorf("Verify() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestManifest(t *testing.T) {
	if got := Manifest("123", "abc", "99"); got != "id:123;request-id:abc;ts:99;" {
		t.Errorf("Manifest() = %q", got)
	}
}

// ─── Reconcile Tests ────────────────────────────────────────────────────────

type fixture struct {
	rc  *Reconciler
	env *testutil.Env
	now time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	env := testutil.NewEnv(t)
	env.Account("A")
	env.Institution("shelter")
	rc := NewReconciler(env.DB, achievement.NewAwarder(env.DB.Repos().Achievements), secret)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rc.now = func() time.Time { return now }
	return &fixture{rc: rc, env: env, now: now}
}

// intent creates a pending payment record expiring at expires.
func (f *fixture) intent(t *testing.T, typ domain.RecordType, expires time.Time) *domain.HistoryRecord {
	t.Helper()
	amt := decimal.RequireFromString("100")
	var rec *domain.HistoryRecord
	if typ == domain.RecordSponsorship {
		rec = domain.NewSponsorship("A", "shelter", amt)
		rec.ExternalReference = payment.SponsorshipReference("A", "shelter", rec.ID)
	} else {
		rec = domain.NewDonation("A", amt)
		rec.ExternalReference = payment.DonationReference("A", rec.ID)
	}
	rec.URLPayment = "https://pay/" + rec.ID
	rec.ExpiresAt = &expires
	f.env.CreateRecord(rec)
	return rec
}

func notify(rec *domain.HistoryRecord, status string) Notification {
	return Notification{
		Signature:         Header(secret, "pay-1", "req-1", "1704908010"),
		RequestID:         "req-1",
		DataID:            "pay-1",
		Status:            status,
		ExternalReference: rec.ExternalReference,
	}
}

func (f *fixture) achievements(t *testing.T) []domain.AccountAchievement {
	t.Helper()
	held, err := f.env.DB.Repos().Achievements.AccountAchievements(context.Background(), "A")
	if err != nil {
		t.Fatalf("AccountAchievements() error: %v", err)
	}
	return held
}

func TestReconcile_ForgeryRejected(t *testing.T) {
	f := setup(t)
	rec := f.intent(t, domain.RecordSponsorship, f.now.Add(time.Hour))

	n := notify(rec, "approved")
	n.Signature = "ts=1704908010,v1=" + Sign("attacker", "pay-1", "req-1", "1704908010")
	_, err := f.rc.Reconcile(context.Background(), n)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("Reconcile() error = %v, want ErrInvalidSignature", err)
	}
	if got := f.env.Record(rec.ID).Status; got != domain.StatusPending {
		t.Errorf("status = %q, want pending", got)
	}
	if len(f.achievements(t)) != 0 {
		t.Error("forged callback must not award achievements")
	}
}

func TestReconcile_ExpiryPrecedence(t *testing.T) {
	for _, claimed := range []string{"approved", "rejected", "in_process"} {
		t.Run(claimed, func(t *testing.T) {
			f := setup(t)
			rec := f.intent(t, domain.RecordSponsorship, f.now.Add(-time.Minute))

			_, err := f.rc.Reconcile(context.Background(), notify(rec, claimed))
			if !errors.Is(err, domain.ErrIntentExpired) {
				t.Fatalf("Reconcile() error = %v, want ErrIntentExpired", err)
			}
			if domain.MessageOf(err) != "payment intent expired" {
				t.Errorf("message = %q", domain.MessageOf(err))
			}
			if got := f.env.Record(rec.ID).Status; got != domain.StatusCancelled {
				t.Errorf("status = %q, want cancelled", got)
			}
		})
	}
}

func TestReconcile_CompletesAndAwards(t *testing.T) {
	for _, typ := range []domain.RecordType{domain.RecordDonation, domain.RecordSponsorship} {
		t.Run(string(typ), func(t *testing.T) {
			f := setup(t)
			rec := f.intent(t, typ, f.now.Add(time.Hour))

			res, err := f.rc.Reconcile(context.Background(), notify(rec, "approved"))
			if err != nil {
				t.Fatalf("Reconcile() error: %v", err)
			}
			if res.Duplicate || res.Record.Status != domain.StatusCompleted {
				t.Errorf("Result = %+v", res)
			}
			held := f.achievements(t)
			if len(held) != 1 || held[0].Type != typ {
				t.Errorf("achievements = %+v, want one %s", held, typ)
			}
		})
	}
}

func TestReconcile_StatusMapping(t *testing.T) {
	tests := []struct {
		claimed string
		want    domain.Status
		err     error
	}{
		{"approved", domain.StatusCompleted, nil},
		{"rejected", domain.StatusCancelled, nil},
		{"cancelled", domain.StatusCancelled, nil},
		{"refunded", domain.StatusRefunded, nil},
		{"charged_back", domain.StatusRefunded, nil},
		{"in_process", domain.StatusPending, domain.ErrStatusMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.claimed, func(t *testing.T) {
			f := setup(t)
			rec := f.intent(t, domain.RecordDonation, f.now.Add(time.Hour))
			_, err := f.rc.Reconcile(context.Background(), notify(rec, tt.claimed))
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Fatalf("Reconcile() error = %v, want %v", err, tt.err)
			}
			if tt.err == nil && err != nil {
				t.Fatalf("Reconcile() error: %v", err)
			}
			if got := f.env.Record(rec.ID).Status; got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReconcile_Redelivery(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rec := f.intent(t, domain.RecordDonation, f.now.Add(time.Hour))

	if _, err := f.rc.Reconcile(ctx, notify(rec, "approved")); err != nil {
		t.Fatalf("first Reconcile() error: %v", err)
	}
	res, err := f.rc.Reconcile(ctx, notify(rec, "approved"))
	if err != nil {
		t.Fatalf("redelivery error: %v", err)
	}
	if !res.Duplicate || res.Record.Status != domain.StatusCompleted {
		t.Errorf("redelivery Result = %+v, want duplicate completed", res)
	}
	if _, err := f.rc.Reconcile(ctx, notify(rec, "refunded")); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Errorf("conflicting status error = %v, want ErrAlreadyProcessed", err)
	}
	if n := len(f.achievements(t)); n != 1 {
		t.Errorf("achievements = %d, want 1", n)
	}
}

func TestReconcile_LookupFailures(t *testing.T) {
	f := setup(t)
	rec := f.intent(t, domain.RecordDonation, f.now.Add(time.Hour))

	unknown := notify(rec, "approved")
	unknown.ExternalReference = payment.DonationReference("A", "missing")
	if _, err := f.rc.Reconcile(context.Background(), unknown); !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Errorf("unknown reference error = %v, want ErrHistoryNotFound", err)
	}

	empty := notify(rec, "approved")
	empty.ExternalReference = ""
	if _, err := f.rc.Reconcile(context.Background(), empty); domain.KindOf(err) != domain.KindBadRequest {
		t.Errorf("empty reference kind = %v, want bad request", domain.KindOf(err))
	}
}

func TestReconcile_ReferenceMismatch(t *testing.T) {
	f := setup(t)
	// A record whose stored reference claims a different payer.
	rec := domain.NewDonation("A", decimal.RequireFromString("5"))
	rec.ExternalReference = payment.DonationReference("B", rec.ID)
	f.env.CreateRecord(rec)

	if _, err := f.rc.Reconcile(context.Background(), notify(rec, "approved")); !errors.Is(err, domain.ErrReferenceMismatch) {
		t.Errorf("Reconcile() error = %v, want ErrReferenceMismatch", err)
	}
	if got := f.env.Record(rec.ID).Status; got != domain.StatusPending {
		t.Errorf("status = %q, want pending", got)
	}
}

func TestReconcile_PayerIDWithSeparator(t *testing.T) {
	f := setup(t)
	f.env.Account("org:42")
	rec := domain.NewDonation("org:42", decimal.RequireFromString("10"))
	rec.ExternalReference = payment.DonationReference("org:42", rec.ID)
	expires := f.now.Add(time.Hour)
	rec.ExpiresAt = &expires
	f.env.CreateRecord(rec)

	res, err := f.rc.Reconcile(context.Background(), notify(rec, "approved"))
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if res.Record.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want completed", res.Record.Status)
	}
}
