package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/renzo-dev/accounts/internal/handler"
	"github.com/renzo-dev/accounts/shared/config"
	"github.com/renzo-dev/accounts/shared/middleware/metrics"
)

// New configures the router with all routes.
func New(h *handler.Handler, cfg *config.Public) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))
	r.Use(metrics.Middleware)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Get("/activate", h.Activate)
		r.Post("/authenticate", h.Authenticate)
	})

	return r
}
