/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/login            Agent lookup
  /api/customers/*      Customer enrollment and family views
  /api/policies/*       Policy lifecycle
  /api/premiums/*       Payments and upcoming view
  /api/dashboard        Per-agent summary
  /api/export/*         CSV export
  /api/admin/*          Manual sweep
  /api/demo/*           Demo data seed
  /metrics              Prometheus

SECURITY NOTE:
  No authentication middleware. The login endpoint is a lookup, not an
  authorization gate, matching the system this replaces.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		// Customer routes
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.EnrollCustomer)
			r.Get("/{id}", h.GetCustomer)
			r.Get("/{id}/family", h.GetFamily)
			r.Get("/{id}/holders", h.GetEligibleHolders)
		})

		// Policy routes
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
			r.Get("/{id}", h.GetPolicy)
			r.Get("/{id}/premiums", h.GetPolicyPremiums)
			r.Post("/{id}/cancel", h.CancelPolicy)
		})

		// Premium routes
		r.Route("/premiums", func(r chi.Router) {
			r.Get("/upcoming", h.UpcomingPremiums)
			r.Post("/{id}/pay", h.PayPremium)
		})

		// Views
		r.Get("/dashboard", h.Dashboard)
		r.Get("/export/{table}", h.ExportTable)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", h.TriggerSweep)
		})

		// Demo routes
		r.Route("/demo", func(r chi.Router) {
			r.Post("/load", h.LoadDemoData)
		})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}
