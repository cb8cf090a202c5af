/*
server.go - HTTP router and middleware configuration

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Timeout
  6. CORS:       Cross-origin requests for the HR frontend

ROUTE GROUPS:
  /healthz
  /api/leave-types
  /api/employees/*
  /api/holidays
  /api/leave/*
  /api/paid-absences/*

SECURITY NOTE:
  No authentication middleware. The actor on approve/reject/cancel is taken
  from the request body and must be enforced by the gateway in front.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions tunes NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/leave-types", h.ListLeaveTypes)

		r.Route("/employees", func(r chi.Router) {
			r.Post("/", h.UpsertEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/balances/{code}", h.GetBalance)
			r.Get("/{id}/applications", h.ListApplications)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
		})

		r.Route("/leave", func(r chi.Router) {
			r.Post("/validate", h.ValidateLeave)
			r.Post("/applications", h.SubmitLeave)
			r.Post("/applications/{id}/approve", h.ApproveLeave)
			r.Post("/applications/{id}/reject", h.RejectLeave)
			r.Post("/applications/{id}/cancel", h.CancelLeave)
		})

		r.Post("/paid-absences/validate", h.ValidatePaidAbsence)
	})

	return r
}
