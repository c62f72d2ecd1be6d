package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"github.com/samims/hitcounter/internal/queue"
	"github.com/samims/hitcounter/internal/service"
	"github.com/samims/hitcounter/pkg/tracing"
)

var errNoSession = errors.New("kafka consumer has no active session")

// KafkaConsumer reads notifications from a topic as part of a consumer group.
type KafkaConsumer struct {
	topic         string
	consumerGroup sarama.ConsumerGroup
	handler       *Handler
	log           *slog.Logger
	active        atomic.Bool
	retryDelay    time.Duration
}

// NewKafkaConsumer receives its consumer group via dependency injection.
func NewKafkaConsumer(topic string, consumerGroup sarama.ConsumerGroup, handler *Handler, log *slog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		topic:         topic,
		consumerGroup: consumerGroup,
		handler:       handler,
		log:           log.With("layer", "consumer", "component", "kafkaConsumer"),
		retryDelay:    time.Second,
	}
}

// NewConsumerGroupConfig returns the sarama settings used by counterlog.
func NewConsumerGroupConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.ClientID = clientID
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	return cfg
}

// Start blocks until ctx is cancelled or the consumer group is closed.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	defer func() {
		if err := c.consumerGroup.Close(); err != nil {
			c.log.Warn("Failed to close consumer group", slog.Any("error", err))
		}
	}()

	go func() {
		for err := range c.consumerGroup.Errors() {
			c.log.Error("Consumer group error", slog.Any("error", err))
		}
	}()

	c.log.Info("Kafka consumer started", slog.String("topic", c.topic))

	backoff := 1 * time.Second
	for {
		err := c.consumerGroup.Consume(ctx, []string{c.topic}, c)
		if err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return err
			}
			c.log.Error("Error consuming messages", slog.Any("error", err))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = 1 * time.Second

		if ctx.Err() != nil {
			c.log.Info("Context cancelled, stopping consumer")
			return ctx.Err()
		}
	}
}

func (c *KafkaConsumer) Ping(context.Context) error {
	if !c.active.Load() {
		return errNoSession
	}
	return nil
}

// Setup is called once when a new consumer session starts.
func (c *KafkaConsumer) Setup(session sarama.ConsumerGroupSession) error {
	for topic, partitions := range session.Claims() {
		c.log.Info("Partition assignment",
			slog.String("topic", topic),
			slog.Any("partitions", partitions),
		)
	}
	c.active.Store(true)
	return nil
}

// Cleanup is called once when the session ends (rebalance, shutdown).
func (c *KafkaConsumer) Cleanup(_ sarama.ConsumerGroupSession) error {
	c.active.Store(false)
	c.log.Info("Kafka session cleanup complete")
	return nil
}

// ConsumeClaim runs once per assigned partition.
func (c *KafkaConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		c.log.Debug("Message received",
			slog.String("topic", message.Topic),
			slog.Int("partition", int(message.Partition)),
			slog.Int64("offset", message.Offset),
		)

		ctx := tracing.ExtractTraceContext(session.Context(), message.Headers)
		meta := service.MessageMeta{
			ID:         tracing.HeaderValue(message.Headers, queue.HeaderMessageID),
			CounterKey: tracing.HeaderValue(message.Headers, queue.HeaderCounterKey),
			Source:     "kafka",
		}

		// Offsets commit by position, so marking anything after a failed
		// message would skip it. End the claim instead; the next session
		// resumes from the last marked offset.
		if err := c.handler.Handle(ctx, message.Value, meta); err != nil {
			c.pause(session.Context())
			return fmt.Errorf("process %s/%d offset %d: %w", message.Topic, message.Partition, message.Offset, err)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// pause delays redelivery of a failing message.
func (c *KafkaConsumer) pause(ctx context.Context) {
	if c.retryDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.retryDelay):
	}
}
