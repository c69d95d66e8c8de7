// Package api provides the HTTP surface for the adoption, sponsorship and
// donation lifecycle.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/petlink-network/petlink/internal/domain"
)

// Version is reported by /api/version and `petlink version`.
const Version = "0.1.0"

// Server is the petlink HTTP API server.
type Server struct {
	lifecycle      *LifecycleAPI
	metricsEnabled bool
	corsOrigins    []string
}

// NewServer creates a new API server.
func NewServer(lifecycle *LifecycleAPI) *Server {
	return &Server{lifecycle: lifecycle, corsOrigins: []string{"*"}}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetCORSOrigins restricts browser origins. Empty keeps the wildcard.
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", AccountHeader},
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	if s.lifecycle != nil {
		l := s.lifecycle
		r.Route("/api", func(r chi.Router) {
			r.Post("/interactions", l.HandleRecordInteraction)
			r.Put("/interactions", l.HandleSetInteraction)
			r.Get("/interactions", l.HandleListInteractions)

			r.Post("/adoptions/request", l.HandleAdoptionRequest)
			r.Post("/adoptions/accept", l.HandleAdoptionAccept)
			r.Post("/adoptions/reject", l.HandleAdoptionReject)
			r.Get("/pets/{petId}/adoptions", l.HandlePetAdoptions)

			r.Post("/payments/donate", l.HandleDonate)
			r.Post("/payments/sponsor", l.HandleSponsor)
			r.Post("/payments/webhook", l.HandleWebhook)

			r.Get("/history", l.HandleHistory)
			r.Get("/achievements", l.HandleAchievements)
		})
	}

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg, errType string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    errType,
		},
	})
}

// writeDomainError maps a classified error to its status. Internal causes
// are logged, never returned.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		log.Printf("[api] %s %s (request %s): %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
	}
	writeError(w, statusFor(kind), domain.MessageOf(err), kind.String())
}

func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
