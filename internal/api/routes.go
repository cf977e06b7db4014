package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the ops API router.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)
	r.Get("/healthz", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/surveys", h.ListSurveys)
		r.Get("/surveys/{id}", h.GetSurvey)
		r.Get("/surveys/{id}/responses", h.GetResponses)
		r.Get("/surveys/{id}/unanswered", h.GetUnanswered)
		r.Get("/lists", h.ListAudienceLists)
	})

	return r
}
