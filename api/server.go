/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (slog)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request count and latency per route
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/periods/*        Billing period resolution
  /api/tax/*            Tax report, reconciliation, payments
  /api/sharing/*        Settlement, statement split, sharing modes
  /api/budget/*         Variance grid and targets
  /api/invoices, /api/entries, /api/purchases, /api/cards, /api/tags
  /api/config/*         Rates and configuration documents
  /api/scenarios/*      Demo scenarios
  /api/admin/*          Admin operations
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(h.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/periods/billing", h.GetBillingPeriod)

		// Tax routes
		r.Route("/tax", func(r chi.Router) {
			r.Get("/report", h.GetTaxReport)
			r.Get("/reconciliation", h.GetTaxReconciliation)
			r.Get("/payments", h.ListTaxPayments)
			r.Put("/payments", h.PutTaxPayment)
		})

		// Sharing routes
		r.Route("/sharing", func(r chi.Router) {
			r.Get("/settlement", h.GetSettlement)
			r.Post("/statements/split", h.SplitStatement)
			r.Get("/modes", h.ListSharingModes)
			r.Post("/modes", h.CreateSharingMode)
		})

		// Budget routes
		r.Route("/budget", func(r chi.Router) {
			r.Get("/variance", h.GetBudgetVariance)
			r.Get("/targets", h.ListBudgetTargets)
			r.Put("/targets", h.PutBudgetTarget)
		})

		// Record routes
		r.Get("/invoices", h.ListInvoices)
		r.Post("/invoices", h.CreateInvoice)
		r.Get("/entries", h.ListEntries)
		r.Post("/entries", h.CreateEntry)
		r.Get("/purchases", h.ListPurchases)
		r.Post("/purchases", h.CreatePurchase)
		r.Get("/cards", h.ListCards)
		r.Post("/cards", h.CreateCard)
		r.Get("/tags", h.ListTags)
		r.Post("/tags", h.CreateTag)

		// Config routes
		r.Get("/config/rates", h.GetRates)
		r.Post("/config", h.ApplyConfig)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/migrate-payments", h.MigratePayments)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
