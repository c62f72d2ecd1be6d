package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appErr "github.com/samims/hitcounter/internal/errors"
	"github.com/samims/hitcounter/internal/metrics"
	"github.com/samims/hitcounter/internal/model"
	"github.com/samims/hitcounter/internal/queue"
	"github.com/samims/hitcounter/internal/storage"
	"github.com/samims/hitcounter/pkg/tracing"
)

type CounterService interface {
	// Handle counts one request and returns the updated value.
	Handle(ctx context.Context) (int64, error)
	// Current returns the stored value without changing it.
	Current(ctx context.Context) (int64, error)
}

type counterService struct {
	store  storage.CounterStore
	queue  queue.NotificationQueue
	key    string
	logger *slog.Logger
	tracer trace.Tracer
}

// NewCounterService wires the counter for key. A nil queue disables publishing.
func NewCounterService(store storage.CounterStore, q queue.NotificationQueue, key string, logger *slog.Logger) CounterService {
	if q == nil {
		q = queue.NewNoop()
	}
	if key == "" {
		key = model.DefaultCounterKey
	}
	l := logger.With("layer", "service", "component", "counterService")
	return &counterService{
		store:  store,
		queue:  q,
		key:    key,
		logger: l,
		tracer: otel.Tracer("counter-service"),
	}
}

func (s *counterService) Handle(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "Handle")
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrCounterKey, s.key))

	updated, err := s.increment(ctx)
	if err != nil {
		err = appErr.NewCounterUpdateFailed(err)
		s.logger.Error("counter update failed", slog.String("key", s.key), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CounterUpdates.WithLabelValues(metrics.ResultFailure).Inc()
		return 0, err
	}

	metrics.CounterUpdates.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.CounterValue.Set(float64(updated))
	span.SetAttributes(attribute.Int64(tracing.AttrCounterValue, updated))

	// queue delivery is not part of the update: failures are logged only
	if err := s.queue.Publish(ctx, model.NotificationMessage{Count: updated}); err != nil {
		metrics.QueuePublishes.WithLabelValues(metrics.ResultFailure).Inc()
		span.AddEvent("notification publish failed")
		s.logger.Warn("failed to publish counter update",
			slog.String("key", s.key),
			slog.Int64("count", updated),
			slog.Any("error", err))
	} else {
		metrics.QueuePublishes.WithLabelValues(metrics.ResultSuccess).Inc()
	}

	s.logger.Info("counter updated", slog.String("key", s.key), slog.Int64("count", updated))
	return updated, nil
}

// increment uses the store's atomic increment when it has one. The
// read-then-write fallback can lose updates under concurrent requests.
func (s *counterService) increment(ctx context.Context) (int64, error) {
	store, err := storage.Resolve(ctx, s.store)
	if err != nil {
		return 0, err
	}

	if inc, ok := store.(storage.Incrementer); ok {
		return inc.Increment(ctx, s.key)
	}

	current, err := store.Read(ctx, s.key)
	if err != nil {
		return 0, err
	}
	updated := current + 1
	if err := store.Write(ctx, s.key, updated); err != nil {
		return 0, err
	}
	return updated, nil
}

func (s *counterService) Current(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "Current")
	defer span.End()

	v, err := s.store.Read(ctx, s.key)
	if err != nil {
		s.logger.Error("failed to read counter", slog.String("key", s.key), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return v, nil
}
