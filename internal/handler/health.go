package handler

import (
	"log/slog"
	"net/http"

	"github.com/samims/hitcounter/internal/service"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	service service.HealthService
	logger  *slog.Logger
}

func NewHealthHandler(svc service.HealthService, l *slog.Logger) *HealthHandler {
	return &HealthHandler{service: svc, logger: l.With("layer", "handler", "component", "healthHandler")}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Liveness(r.Context()); err != nil {
		h.logger.Error("Liveness probe failed", slog.Any("error", err))
		http.Error(w, "unhealthy", http.StatusInternalServerError)
		return
	}
	writeProbe(w, "ok")
}

// Readiness answers 503 so orchestrators hold traffic while a backend is down.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Readiness(r.Context()); err != nil {
		h.logger.Warn("Readiness probe failed", slog.Any("error", err))
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	writeProbe(w, "ready")
}

func writeProbe(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
