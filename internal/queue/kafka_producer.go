package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	appErr "github.com/samims/hitcounter/internal/errors"
	"github.com/samims/hitcounter/internal/model"
	"github.com/samims/hitcounter/pkg/tracing"
)

type kafkaProducer struct {
	asyncProducer sarama.AsyncProducer
	topic         string
	key           string
	log           *slog.Logger
	wg            sync.WaitGroup
	closeOnce     sync.Once
	tracer        *tracing.Tracer
}

// NewKafkaProducer wraps an AsyncProducer and starts its delivery handlers.
// Messages are keyed by the counter key so updates of one counter stay on one partition.
func NewKafkaProducer(asyncProducer sarama.AsyncProducer, topic, counterKey string, log *slog.Logger, tracer *tracing.Tracer) NotificationQueue {
	if asyncProducer == nil || log == nil || tracer == nil {
		panic("NewKafkaProducer: nil dependencies provided")
	}
	if topic == "" {
		panic("NewKafkaProducer: topic must not be empty")
	}
	p := &kafkaProducer{
		asyncProducer: asyncProducer,
		topic:         topic,
		key:           counterKey,
		log:           log.With("layer", "queue", "component", "kafkaProducer"),
		tracer:        tracer,
	}
	p.start()
	return p
}

// NewSaramaConfig is the producer configuration used in production.
func NewSaramaConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	return cfg
}

func (p *kafkaProducer) start() {
	p.wg.Add(2)
	go p.handleSuccess()
	go p.handleErrors()
}

// handleSuccess logs deliveries until the producer is closed
func (p *kafkaProducer) handleSuccess() {
	defer p.wg.Done()
	for msg := range p.asyncProducer.Successes() {
		p.log.Debug("Message delivered",
			slog.String("topic", msg.Topic),
			slog.Int("partition", int(msg.Partition)),
			slog.Int64("offset", msg.Offset))
	}
}

// handleErrors logs failed deliveries; the request that produced them has already returned
func (p *kafkaProducer) handleErrors() {
	defer p.wg.Done()
	for err := range p.asyncProducer.Errors() {
		p.log.Error("Message delivery failed",
			slog.String("topic", err.Msg.Topic),
			slog.Any("error", err.Err))
	}
}

func (p *kafkaProducer) Publish(ctx context.Context, msg model.NotificationMessage) error {
	ctx, span := p.tracer.StartClientSpan(ctx, "KafkaPublish",
		attribute.String(tracing.AttrMessagingSystem, "kafka"),
		attribute.String(tracing.AttrMessagingDestination, p.topic),
	)
	defer span.End()

	data, err := Encode(msg)
	if err != nil {
		p.tracer.RecordError(span, err)
		return appErr.NewQueuePublishFailed("%v", err)
	}

	headers := tracing.InjectTraceContext(ctx, []sarama.RecordHeader{
		{Key: []byte(HeaderMessageID), Value: []byte(uuid.NewString())},
		{Key: []byte(HeaderCounterKey), Value: []byte(p.key)},
	})

	pm := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(p.key),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
		Headers:   headers,
	}

	select {
	case p.asyncProducer.Input() <- pm:
		p.log.Debug("Message queued to Kafka",
			slog.String("topic", p.topic),
			slog.Int64("count", msg.Count))
		span.SetAttributes(attribute.Int64("counter.value", msg.Count))
		return nil
	case <-ctx.Done():
		p.log.Warn("Publish cancelled by context", slog.Int64("count", msg.Count))
		p.tracer.RecordError(span, ctx.Err())
		return appErr.NewQueuePublishFailed("cancelled: %v", ctx.Err())
	}
}

// Close flushes buffered messages and waits for the delivery handlers.
func (p *kafkaProducer) Close() error {
	p.closeOnce.Do(func() {
		p.log.Info("Closing Kafka producer...")
		p.asyncProducer.AsyncClose()
		p.wg.Wait()
		p.log.Info("Kafka producer closed")
	})
	return nil
}
