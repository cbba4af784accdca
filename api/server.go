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
  4. CORS:       Cross-origin requests for operator dashboards

ROUTE GROUPS:
  /api/filings/*    Filing lifecycle (calculate, submit, status, amend)
  /api/payroll/*    Payroll transaction feed
  /api/employers/*  Employer account configuration

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public; deploy
  behind a trusted gateway that injects tenancy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
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
		// Filing routes
		r.Route("/filings", func(r chi.Router) {
			r.Get("/", h.ListFilings)
			r.Post("/calculate", h.CalculateFiling)
			r.Get("/{id}", h.GetFiling)
			r.Post("/{id}/submit", h.SubmitFiling)
			r.Get("/{id}/status", h.CheckFilingStatus)
			r.Post("/{id}/amend", h.AmendFiling)
			r.Get("/{id}/attempts", h.ListAttempts)
			r.Get("/{id}/amendments", h.ListAmendments)
		})

		// Payroll routes
		r.Route("/payroll/{tenant}", func(r chi.Router) {
			r.Post("/transactions", h.AddTransactions)
			r.Get("/transactions", h.GetTransactions)
		})

		// Employer routes
		r.Route("/employers/{tenant}", func(r chi.Router) {
			r.Get("/", h.GetEmployer)
			r.Put("/", h.PutEmployer)
		})
	})

	return r
}
