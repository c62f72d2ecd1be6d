package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samims/hitcounter/internal/service"
	"github.com/samims/hitcounter/pkg/tracing"
)

const internalErrorBody = "internal server error"

type CounterHandler struct {
	svc    service.CounterService
	logger *slog.Logger
}

func NewCounterHandler(s service.CounterService, logger *slog.Logger) *CounterHandler {
	return &CounterHandler{svc: s, logger: logger.With("layer", "handler", "component", "counterHandler")}
}

// Count increments the counter and writes the new value as plain text.
func (h *CounterHandler) Count(w http.ResponseWriter, r *http.Request) {
	tracer := tracing.NewTracer(tracing.GetTracer("counter-handler"))
	ctx, span := tracer.StartServerSpan(r.Context(), "Count",
		attribute.String(tracing.AttrHTTPMethod, r.Method),
		attribute.String(tracing.AttrHTTPRoute, "/count"),
	)
	defer span.End()

	count, err := h.svc.Handle(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		h.logger.Error("Count failed", slog.Any("error", err))
		http.Error(w, internalErrorBody, http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatusCode, http.StatusOK))
	writeCount(w, count)
}

func (h *CounterHandler) Current(w http.ResponseWriter, r *http.Request) {
	tracer := tracing.NewTracer(tracing.GetTracer("counter-handler"))
	ctx, span := tracer.StartServerSpan(r.Context(), "Current",
		attribute.String(tracing.AttrHTTPMethod, r.Method),
		attribute.String(tracing.AttrHTTPRoute, "/count/current"),
	)
	defer span.End()

	count, err := h.svc.Current(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		h.logger.Error("Current failed", slog.Any("error", err))
		http.Error(w, internalErrorBody, http.StatusInternalServerError)
		return
	}
	writeCount(w, count)
}

func writeCount(w http.ResponseWriter, count int64) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(strconv.FormatInt(count, 10)))
}
