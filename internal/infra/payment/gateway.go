// Package payment is the HTTP client for the payment provider's checkout
// preferences API. Retries reuse the caller's idempotency key so the
// provider can collapse them into one preference.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/petlink-network/petlink/internal/domain"
)

const (
	DefaultBaseURL   = "https://api.mercadopago.com"
	preferencesPath  = "/checkout/preferences"
	maxRetries       = 3
	initialDelay     = 500 * time.Millisecond
	defaultHTTPLimit = 15 * time.Second
)

// Client implements domain.PaymentGateway over HTTP.
type Client struct {
	baseURL     string
	accessToken string
	sandbox     bool
	client      *http.Client
	delay       time.Duration
}

// NewClient creates a Client. An empty baseURL uses DefaultBaseURL.
// Sandbox selects the provider's sandbox checkout URL.
func NewClient(baseURL, accessToken string, sandbox bool) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		sandbox:     sandbox,
		client:      &http.Client{Timeout: defaultHTTPLimit},
		delay:       initialDelay,
	}
}

// ─── Wire Types ─────────────────────────────────────────────────────────────

type preferenceItem struct {
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"` // the provider wants a number, not a string
	CurrencyID string      `json:"currency_id,omitempty"`
}

type payer struct {
	Email string `json:"email,omitempty"`
}

type excludedType struct {
	ID string `json:"id"`
}

type paymentMethods struct {
	ExcludedPaymentTypes []excludedType `json:"excluded_payment_types,omitempty"`
	Installments         int            `json:"installments,omitempty"`
}

type preferenceRequest struct {
	Items             []preferenceItem `json:"items"`
	Payer             payer            `json:"payer"`
	PaymentMethods    paymentMethods   `json:"payment_methods"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

func toWire(req domain.PreferenceRequest) preferenceRequest {
	var out preferenceRequest
	for _, it := range req.Items {
		out.Items = append(out.Items, preferenceItem{
			Title:      it.Title,
			Quantity:   it.Quantity,
			UnitPrice:  json.Number(domain.FormatAmount(it.UnitPrice)),
			CurrencyID: it.CurrencyID,
		})
	}
	out.Payer.Email = req.PayerEmail
	for _, id := range req.ExcludedPaymentTypes {
		out.PaymentMethods.ExcludedPaymentTypes = append(out.PaymentMethods.ExcludedPaymentTypes, excludedType{ID: id})
	}
	out.PaymentMethods.Installments = req.Installments
	out.ExternalReference = req.ExternalReference
	out.NotificationURL = req.NotificationURL
	return out
}

// ─── CreatePreference ───────────────────────────────────────────────────────

// CreatePreference creates a checkout preference. 429 and 5xx responses
// are retried with exponential backoff under the same idempotency key.
func (c *Client) CreatePreference(ctx context.Context, idempotencyKey string, req domain.PreferenceRequest) (*domain.Preference, error) {
	if c.accessToken == "" {
		return nil, fmt.Errorf("payment access token not configured")
	}
	if idempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}
	body, err := json.Marshal(toWire(req))
	if err != nil {
		return nil, fmt.Errorf("marshal preference: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// 1x, 2x, 4x the initial delay
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * c.delay
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		pref, retry, err := c.post(ctx, idempotencyKey, body)
		if err == nil {
			return pref, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

// post performs one attempt and reports whether a failure is retryable.
func (c *Client) post(ctx context.Context, key string, body []byte) (*domain.Preference, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+preferencesPath, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Idempotency-Key", key)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("preference request failed: %w", err)
	}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &ae) == nil && ae.Message != "" {
			msg = ae.Message
		}
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("payment provider error (%d): %s", resp.StatusCode, msg)
	}

	var pr preferenceResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return nil, false, fmt.Errorf("decode preference: %w", err)
	}
	url := pr.InitPoint
	if c.sandbox && pr.SandboxInitPoint != "" {
		url = pr.SandboxInitPoint
	}
	if pr.ID == "" || url == "" {
		return nil, false, fmt.Errorf("preference response missing id or checkout url")
	}
	return &domain.Preference{ID: pr.ID, CheckoutURL: url}, false, nil
}
