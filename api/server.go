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
  /api/farmers/*        Farmer management
  /api/bookings/*       Booking lifecycle (create, pay, promote)
  /api/schedules/*      Schedule window retrieval and progress updates
  /api/nutrients/*      Nutrient stock
  /api/scenarios/*      Demo scenarios
  /api/reset            Database reset (dev only)

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
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Farmer routes
		r.Route("/farmers", func(r chi.Router) {
			r.Get("/", h.ListFarmers)
			r.Post("/", h.CreateFarmer)
			r.Get("/{id}", h.GetFarmer)
			r.Put("/{id}", h.UpdateFarmer)
			r.Put("/{id}/status", h.UpdateFarmerStatus)
			r.Delete("/{id}", h.DeleteFarmer)
		})

		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.ListBookings)
			r.Post("/", h.CreateBooking)
			r.Get("/{id}", h.GetBooking)
			r.Post("/{id}/pay", h.PayBooking)
			r.Post("/{id}/promote", h.PromoteBooking)
			r.Delete("/{id}", h.DeleteBooking)
		})

		// Schedule routes
		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.GetSchedules)
			r.Patch("/update", h.UpdateSchedule)
		})

		// Nutrient stock routes
		r.Route("/nutrients", func(r chi.Router) {
			r.Get("/", h.ListNutrients)
			r.Post("/", h.SaveNutrient)
			r.Delete("/{id}", h.DeleteNutrient)
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
