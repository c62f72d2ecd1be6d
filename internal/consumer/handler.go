package consumer

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samims/hitcounter/internal/metrics"
	"github.com/samims/hitcounter/internal/queue"
	"github.com/samims/hitcounter/internal/service"
	"github.com/samims/hitcounter/pkg/tracing"
)

// Consumer pulls counter notifications from a broker until ctx is cancelled.
type Consumer interface {
	Start(ctx context.Context) error
	// Ping reports whether the consumer is attached to its broker.
	Ping(ctx context.Context) error
}

// Handler turns one raw payload into a processed notification. It is shared
// by every broker backend.
type Handler struct {
	processor service.NotificationProcessor
	tracer    *tracing.Tracer
	log       *slog.Logger
}

func NewHandler(processor service.NotificationProcessor, log *slog.Logger) *Handler {
	return &Handler{
		processor: processor,
		tracer:    tracing.NewTracer(tracing.GetTracer("counterlog-consumer")),
		log:       log.With("layer", "consumer", "component", "handler"),
	}
}

// Handle returns nil for malformed payloads so the broker drops them. A
// processing error is returned and the message is left for redelivery.
func (h *Handler) Handle(ctx context.Context, data []byte, meta service.MessageMeta) error {
	ctx, span := h.tracer.StartConsumerSpan(ctx, "ConsumeNotification",
		attribute.String(tracing.AttrMessagingSystem, meta.Source),
		attribute.String(tracing.AttrMessagingOperation, "process"),
		attribute.String(tracing.AttrCounterKey, meta.CounterKey),
	)
	defer span.End()

	msg, err := queue.Decode(data)
	if err != nil {
		h.tracer.RecordError(span, err)
		h.log.Error("Failed to decode message",
			slog.String("message_id", meta.ID),
			slog.Any("error", err))
		metrics.MessagesConsumed.WithLabelValues(metrics.ResultSkipped).Inc()
		return nil
	}

	if err := h.processor.Process(ctx, msg, meta); err != nil {
		h.tracer.RecordError(span, err)
		h.log.Error("Notification handling failed",
			slog.String("message_id", meta.ID),
			slog.Any("error", err))
		metrics.MessagesConsumed.WithLabelValues(metrics.ResultFailure).Inc()
		return err
	}

	metrics.MessagesConsumed.WithLabelValues(metrics.ResultSuccess).Inc()
	return nil
}
