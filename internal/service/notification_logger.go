package service

import (
	"context"
	"log/slog"

	"github.com/samims/hitcounter/internal/model"
)

// NotificationProcessor handles one consumed counter notification.
type NotificationProcessor interface {
	Process(ctx context.Context, msg model.NotificationMessage, meta MessageMeta) error
}

// MessageMeta is the transport metadata that travels alongside a notification.
type MessageMeta struct {
	ID         string
	CounterKey string
	Source     string
}

type notificationLogger struct {
	l *slog.Logger
}

// NewNotificationLogger returns the processor used by counterlog: it records
// each update and has no other side effect.
func NewNotificationLogger(logger *slog.Logger) NotificationProcessor {
	return &notificationLogger{l: logger.With("layer", "service", "component", "notificationLogger")}
}

func (p *notificationLogger) Process(ctx context.Context, msg model.NotificationMessage, meta MessageMeta) error {
	p.l.InfoContext(ctx, "Counter updated",
		slog.Int64("count", msg.Count),
		slog.String("counter_key", meta.CounterKey),
		slog.String("message_id", meta.ID),
		slog.String("source", meta.Source))
	return nil
}
