package queue

import (
	"context"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/streadway/amqp"

	"github.com/samims/hitcounter/internal/config"
	appErr "github.com/samims/hitcounter/internal/errors"
	"github.com/samims/hitcounter/internal/lazy"
	"github.com/samims/hitcounter/internal/secret"
	"github.com/samims/hitcounter/pkg/tracing"
)

const producerClientID = "hitcounter-producer"

// NewBuilder returns the constructor for the configured queue backend.
func NewBuilder(cfg config.QueueConfig, counterKey string, secrets secret.Provider, tracer *tracing.Tracer, logger *slog.Logger) lazy.Builder[NotificationQueue] {
	l := logger.With("layer", "queue", "backend", cfg.Backend)

	return func(ctx context.Context) (NotificationQueue, error) {
		if cfg.Backend == config.QueueNone {
			return NewNoop(), nil
		}

		url, err := secret.Resolve(ctx, secrets, cfg.URLSecret, cfg.URL)
		if err != nil {
			l.Error("Failed to resolve queue credentials", slog.Any("error", err))
			return nil, err
		}

		switch cfg.Backend {
		case config.QueueKafka:
			producer, err := sarama.NewAsyncProducer(config.Brokers(url), NewSaramaConfig(producerClientID))
			if err != nil {
				l.Error("Failed to create sarama producer", slog.Any("error", err))
				return nil, appErr.NewQueuePublishFailed("create producer: %v", err)
			}
			l.Info("Kafka producer ready", slog.String("topic", cfg.Name))
			return NewKafkaProducer(producer, cfg.Name, counterKey, logger, tracer), nil

		case config.QueueRabbitMQ:
			conn, err := amqp.Dial(url)
			if err != nil {
				l.Error("Failed to connect to RabbitMQ", slog.Any("error", err))
				return nil, appErr.NewQueuePublishFailed("dial: %v", err)
			}
			pub, err := NewRabbitPublisher(conn, cfg.Name, counterKey, logger)
			if err != nil {
				_ = conn.Close()
				return nil, appErr.NewQueuePublishFailed("%v", err)
			}
			l.Info("RabbitMQ publisher ready", slog.String("queue", cfg.Name))
			return pub, nil

		default:
			return nil, appErr.NewQueuePublishFailed("unsupported backend %q", cfg.Backend)
		}
	}
}
