/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/v0.1/claim/*      Claim operations
  /api/v0.1/agencies     Reference data (dev)
  /api/v0.1/coverages    Reference data (dev)
  /api/v0.1/scenarios/*  Demo scenarios
  /metrics               Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultAllowedOrigins are the dev frontends allowed by CORS.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// RouterConfig tunes NewRouter. The zero value is usable.
type RouterConfig struct {
	AllowedOrigins []string
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api/v0.1", func(r chi.Router) {
		// Claim routes
		r.Route("/claim", func(r chi.Router) {
			r.Post("/CreateClaim", h.CreateClaim)
			r.Get("/GetClaimDetails/{claimId}", h.GetClaimDetails)
			r.Put("/UpdateClaim/{claimId}", h.UpdateClaim)
			r.Put("/UpdateStatus/{claimId}", h.UpdateStatus)
			r.Post("/AddInvolvedPartyToClaim/{claimNumber}", h.AddInvolvedParty)
			r.Post("/AddInvolvedCarToClaim/{claimNumber}", h.AddInvolvedCar)
			r.Post("/AddInvolvedPolicyToClaim/{claimNumber}", h.AddInvolvedPolicy)
			r.Put("/AddAffectedCoverage/{claimId}", h.AddAffectedCoverage)
			r.Put("/UpdateAffectedCoverage/{claimId}", h.UpdateAffectedCoverage)
			r.Post("/FilterClaim", h.FilterClaims)
		})

		// Reference data routes
		r.Route("/agencies", func(r chi.Router) {
			r.Get("/", h.ListAgencies)
			r.Post("/", h.CreateAgency)
		})
		r.Route("/coverages", func(r chi.Router) {
			r.Get("/", h.ListCoverages)
			r.Post("/", h.CreateCoverage)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	return r
}
