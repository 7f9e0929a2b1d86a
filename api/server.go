/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through logrus
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/dashboard        Home screen aggregate
  /api/obligations/*    Obligation management and lifecycle
  /api/reports/*        Category totals and trend
  /api/utilities/*      Services, measurements, insights
  /api/reminders/*      Planned reminders
  /api/scenarios/*      Demo households

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultCORSOrigins are the local frontend dev servers.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured. Empty origins
// fall back to DefaultCORSOrigins.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  h.Log.WithField("component", "http"),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.GetDashboard)

		// Obligation routes
		r.Route("/obligations", func(r chi.Router) {
			r.Get("/", h.ListObligations)
			r.Post("/", h.CreateObligation)
			r.Get("/{id}", h.GetObligation)
			r.Delete("/{id}", h.DeleteObligation)
			r.Post("/{id}/pay", h.PayObligation)
			r.Post("/{id}/postpone", h.PostponeObligation)
			r.Post("/{id}/status", h.SetObligationStatus)
			r.Post("/{id}/archive", h.ArchiveObligation)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/categories", h.GetCategories)
			r.Get("/trend", h.GetTrend)
		})

		// Utility routes
		r.Route("/utilities", func(r chi.Router) {
			r.Get("/services", h.ListServices)
			r.Post("/services", h.SaveService)
			r.Get("/measurements", h.ListMeasurements)
			r.Post("/measurements", h.CreateMeasurement)
			r.Get("/insights", h.GetInsights)
		})

		// Reminder routes
		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", h.ListReminders)
			r.Post("/plan", h.PlanReminders)
			r.Post("/{id}/delivered", h.MarkReminderDelivered)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
