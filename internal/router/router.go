package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samims/hitcounter/internal/handler"
	customMiddleware "github.com/samims/hitcounter/internal/middleware"
)

func NewRouter(h *handler.CounterHandler, healthHandler *handler.HealthHandler) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(customMiddleware.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/count", func(r chi.Router) {
		r.Get("/", h.Count)
		r.Post("/", h.Count)
		r.Get("/current", h.Current)
	})

	mountOps(r, healthHandler)
	return r
}

// NewOpsRouter serves only health and metrics, for processes without a public API.
func NewOpsRouter(healthHandler *handler.HealthHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	mountOps(r, healthHandler)
	return r
}

func mountOps(r chi.Router, healthHandler *handler.HealthHandler) {
	r.Get("/healthz", healthHandler.Liveness)
	r.Get("/readyz", healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())
}
