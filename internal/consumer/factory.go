package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/streadway/amqp"

	"github.com/samims/hitcounter/internal/config"
	"github.com/samims/hitcounter/pkg/retry"
)

const consumerClientID = "counterlog-consumer"

// dialRetry bounds how long counterlog waits for its broker at startup.
var dialRetry = retry.Config{
	MaxAttempts:    8,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     15 * time.Second,
	JitterFactor:   0.2,
}

// New connects to the configured broker, retrying while it comes up.
func New(ctx context.Context, cfg config.QueueConfig, url string, handler *Handler, log *slog.Logger) (Consumer, error) {
	l := log.With("layer", "consumer", "backend", cfg.Backend)

	switch cfg.Backend {
	case config.QueueKafka:
		var group sarama.ConsumerGroup
		err := retry.Do(ctx, dialRetry, func() error {
			var err error
			group, err = sarama.NewConsumerGroup(config.Brokers(url), cfg.ConsumerGroup, NewConsumerGroupConfig(consumerClientID))
			if err != nil {
				l.Warn("Kafka not reachable yet", slog.Any("error", err))
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("create consumer group: %w", err)
		}
		return NewKafkaConsumer(cfg.Name, group, handler, log), nil

	case config.QueueRabbitMQ:
		var conn *amqp.Connection
		err := retry.Do(ctx, dialRetry, func() error {
			var err error
			conn, err = amqp.Dial(url)
			if err != nil {
				l.Warn("RabbitMQ not reachable yet", slog.Any("error", err))
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		return NewRabbitConsumer(conn, cfg.Name, cfg.Workers, handler, log), nil

	default:
		return nil, fmt.Errorf("counterlog needs a queue backend, got %q", cfg.Backend)
	}
}
