package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/petlink-network/petlink/internal/app/achievement"
	"github.com/petlink-network/petlink/internal/app/adoption"
	"github.com/petlink-network/petlink/internal/app/interaction"
	"github.com/petlink-network/petlink/internal/app/payment"
	"github.com/petlink-network/petlink/internal/app/webhook"
	"github.com/petlink-network/petlink/internal/domain"
)

// ─── Lifecycle API ──────────────────────────────────────────────────────────
// REST endpoints for interactions, adoptions, payments and the provider
// webhook. The acting account comes from X-Account-ID, set by the auth
// gateway in front of this service.
//
// POST /api/interactions              record interaction {petId, status}
// PUT  /api/interactions              change interaction, cancels pending adoption
// GET  /api/interactions              acting account's interactions
// POST /api/adoptions/request         {petId}
// POST /api/adoptions/accept          {petId, adopterId}
// POST /api/adoptions/reject          {petId, adopterId}
// GET  /api/pets/{petId}/adoptions    requests, for the owner or addressed institution
// POST /api/payments/donate           {amount}
// POST /api/payments/sponsor          {institutionId, amount}
// POST /api/payments/webhook          provider notification
// GET  /api/history                   acting account's ledger entries
// GET  /api/achievements              acting account's achievements

// AccountHeader carries the authenticated account id.
const AccountHeader = "X-Account-ID"

const maxBodyBytes = 1 << 20

// LifecycleAPI holds the lifecycle services.
type LifecycleAPI struct {
	Interactions *interaction.Tracker
	Adoptions    *adoption.Arbiter
	Payments     *payment.Factory
	Webhooks     *webhook.Reconciler
	Achievements *achievement.Awarder
	Ledger       domain.LedgerStore
}

var errNoAccount = &domain.Error{Kind: domain.KindUnauthorized, Message: "missing " + AccountHeader + " header"}

func actor(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(AccountHeader))
	if id == "" {
		return "", errNoAccount
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.BadRequest("request body is required")
		}
		return domain.BadRequest("invalid JSON body: %v", err)
	}
	return nil
}

func require(fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			return domain.BadRequest("%s is required", fields[i])
		}
	}
	return nil
}

// ─── Interactions ───────────────────────────────────────────────────────────

type interactionRequest struct {
	PetID  string `json:"petId"`
	Status string `json:"status"`
}

// HandleRecordInteraction upserts an interaction.
// POST /api/interactions
func (l *LifecycleAPI) HandleRecordInteraction(w http.ResponseWriter, r *http.Request) {
	l.handleInteraction(w, r, l.Interactions.Record)
}

// HandleSetInteraction changes an interaction and withdraws a pending
// adoption request for the same pet.
// PUT /api/interactions
func (l *LifecycleAPI) HandleSetInteraction(w http.ResponseWriter, r *http.Request) {
	l.handleInteraction(w, r, l.Interactions.SetStatus)
}

type interactionFunc func(ctx context.Context, accountID, petID string, status domain.InteractionStatus) (*domain.Interaction, error)

func (l *LifecycleAPI) handleInteraction(w http.ResponseWriter, r *http.Request, apply interactionFunc) {
	account, err := actor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req interactionRequest
	if err := decode(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := require("petId", req.PetID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	status, err := domain.ParseInteractionStatus(req.Status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	in, err := apply(r.Context(), account, req.PetID, status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// HandleListInteractions lists the acting account's interactions.
// GET /api/interactions
func (l *LifecycleAPI) HandleListInteractions(w http.ResponseWriter, r *http.Request) {
	account, err := actor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	list, err := l.Interactions.ListByAccount(r.Context(), account)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interactions": list,
		"count":        len(list),
	})
}

// ─── Adoptions ──────────────────────────────────────────────────────────────

type adoptionRequest struct {
	PetID     string `json:"petId"`
	AdopterID string `json:"adopterId"`
}

// HandleAdoptionRequest files an adoption request for the acting account.
// POST /api/adoptions/request
func (l *LifecycleAPI) HandleAdoptionRequest(w http.ResponseWriter, r *http.Request) {
	account, err := actor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req adoptionRequest
	if err := decode(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := require("petId", req.PetID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	rec, err := l.Adoptions.Request(r.Context(), req.PetID, account)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// HandleAdoptionAccept accepts a request; the acting account must own the pet.
// POST /api/adoptions/accept
func (l *LifecycleAPI) HandleAdoptionAccept(w http.ResponseWriter, r *http.Request) {
	l.handleDecision(w, r, l.Adoptions.Accept)
}

// HandleAdoptionReject rejects a request; the acting account must own the pet.
// POST /api/adoptions/reject
func (l *LifecycleAPI) HandleAdoptionReject(w http.ResponseWriter, r *http.Request) {
	l.handleDecision(w, r, l.Adoptions.Reject)
}

type decisionFunc func(ctx context.Context, petID, adopterID, institutionID string) (*domain.HistoryRecord, error)

func (l *LifecycleAPI) handleDecision(w http.ResponseWriter, r *http.Request, decide decisionFunc) {
	account, err := actor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req adoptionRequest
	if err := decode(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := require("petId", req.PetID, "adopterId", req.AdopterID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	rec, err := decide(r.Context(), req.PetID, req.AdopterID, account)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandlePetAdoptions lists adoption requests for a pet.
// GET /api/pets/{petId}/adoptions
func (l *LifecycleAPI) HandlePetAdoptions(w http.ResponseWriter, r *http.Request) {
	account, err := actor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	recs, err := l.Adoptions.ListRequests(r.Context(), chi.URLParam(r, "petId"), account)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"adoptions": recs,
		"count":     len(recs),
	})
}

// ─── Payments ───────────────────────────────────────────────────────────────

type paymentRequest struct {
	InstitutionID string `json:"institutionId"`
	Amount        string `json:"amount"`
}

// HandleDonate creates a donation intent.
// POST /api/payments/donate
func (l *LifecycleAPI) HandleDonate(w http.ResponseWriter, r *http.Request) {
	account, err := actor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	intent, err := l.Payments.Donate(r.Context(), account, req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

// HandleSponsor creates a sponsorship intent.
// POST /api/payments/sponsor
func (l *LifecycleAPI) HandleSponsor(w http.ResponseWriter, r *http.Request) {
	account, err := actor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	intent, err := l.Payments.Sponsor(r.Context(), account, req.InstitutionID, req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

// ─── Webhook ────────────────────────────────────────────────────────────────

type webhookBody struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

// HandleWebhook reconciles a provider notification. No account header is
// needed; authenticity comes from the x-signature HMAC.
// POST /api/payments/webhook
func (l *LifecycleAPI) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var body webhookBody
	if err := decode(r, &body); err != nil {
		writeDomainError(w, r, err)
		return
	}
	// The provider signs the data.id it puts in the query string.
	dataID := r.URL.Query().Get("data.id")
	if dataID == "" {
		dataID = body.Data.ID
	}

	res, err := l.Webhooks.Reconcile(r.Context(), webhook.Notification{
		Signature:         r.Header.Get("x-signature"),
		RequestID:         r.Header.Get("x-request-id"),
		DataID:            dataID,
		Status:            body.Status,
		ExternalReference: body.ExternalReference,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── History & Achievements ─────────────────────────────────────────────────

// HandleHistory lists the acting account's ledger entries, newest first.
// GET /api/history
func (l *LifecycleAPI) HandleHistory(w http.ResponseWriter, r *http.Request) {
	account, err := actor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	recs, err := l.Ledger.RecordsByAccount(r.Context(), account)
	if err != nil {
		writeDomainError(w, r, domain.Internal("ledger listing failed", err))
		return
	}
	if recs == nil {
		recs = []domain.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": recs,
		"count":   len(recs),
	})
}

// HandleAchievements lists the acting account's achievements.
// GET /api/achievements
func (l *LifecycleAPI) HandleAchievements(w http.ResponseWriter, r *http.Request) {
	account, err := actor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	held, err := l.Achievements.List(r.Context(), account)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"achievements": held,
		"count":        len(held),
	})
}
