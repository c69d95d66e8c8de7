// Package observability holds the Prometheus metrics for the adoption,
// sponsorship and donation lifecycle. Metrics are registered on the default
// registry and served by the API's /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// LedgerTransitions counts successful status transitions.
var LedgerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "petlink",
	Subsystem: "ledger",
	Name:      "transitions_total",
	Help:      "Ledger status transitions by record type and target status.",
}, []string{"type", "to"})

// LedgerConflicts counts transitions lost to a concurrent writer.
var LedgerConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "petlink",
	Subsystem: "ledger",
	Name:      "transition_conflicts_total",
	Help:      "Compare-and-swap transitions that found the record no longer pending.",
}, []string{"type"})

// ─── Adoption Metrics ───────────────────────────────────────────────────────

// AdoptionSiblingsCancelled counts competing requests cancelled on acceptance.
var AdoptionSiblingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "petlink",
	Subsystem: "adoption",
	Name:      "siblings_cancelled_total",
	Help:      "Competing pending adoption requests cancelled when another was accepted.",
})

// ─── Payment Metrics ────────────────────────────────────────────────────────

// PaymentIntents counts payment intent attempts by type and outcome.
var PaymentIntents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "petlink",
	Subsystem: "payment",
	Name:      "intents_total",
	Help:      "Payment intents by record type and outcome (created, gateway_error, store_error).",
}, []string{"type", "outcome"})

// GatewayLatency tracks create-preference round trips.
var GatewayLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "petlink",
	Subsystem: "payment",
	Name:      "gateway_latency_ms",
	Help:      "Payment gateway create-preference latency in milliseconds.",
	Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
})

// ─── Webhook Metrics ────────────────────────────────────────────────────────

// WebhookDeliveries counts inbound provider callbacks by outcome.
var WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "petlink",
	Subsystem: "webhook",
	Name:      "deliveries_total",
	Help:      "Provider callbacks by outcome (applied, duplicate, rejected_signature, expired, conflict, not_found, error).",
}, []string{"outcome"})

// ─── Achievement & Interaction Metrics ──────────────────────────────────────

// AchievementsAwarded counts newly granted achievements.
var AchievementsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "petlink",
	Subsystem: "achievements",
	Name:      "awarded_total",
	Help:      "Achievements granted by type. Repeat awards are not counted.",
}, []string{"type"})

// Interactions counts interaction upserts by status.
var Interactions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "petlink",
	Subsystem: "interactions",
	Name:      "upserts_total",
	Help:      "Interaction upserts by status.",
}, []string{"status"})

// ─── Sweeper Metrics ────────────────────────────────────────────────────────

// SweeperCancelled counts expired intents cancelled by the background sweeper.
var SweeperCancelled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "petlink",
	Subsystem: "sweeper",
	Name:      "cancelled_total",
	Help:      "Expired pending payment intents cancelled by the sweeper.",
})
