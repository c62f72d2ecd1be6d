package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	appErr "github.com/samims/hitcounter/internal/errors"
	"github.com/samims/hitcounter/internal/model"
)

// rabbitPublisher sends to the default exchange with the queue name as routing key.
type rabbitPublisher struct {
	conn  *amqp.Connection
	queue string
	key   string
	log   *slog.Logger

	mu sync.Mutex // amqp channels are not safe for concurrent publishing
	ch *amqp.Channel

	// amqp does not reconnect; once set the publisher must be replaced
	closed atomic.Bool
}

// NewRabbitPublisher opens a channel on conn and declares the durable queue.
func NewRabbitPublisher(conn *amqp.Connection, queue, counterKey string, log *slog.Logger) (NotificationQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := DeclareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p := &rabbitPublisher{
		conn:  conn,
		ch:    ch,
		queue: queue,
		key:   counterKey,
		log:   log.With("layer", "queue", "component", "rabbitPublisher"),
	}
	go p.watch(ch.NotifyClose(make(chan *amqp.Error, 1)))
	return p, nil
}

// watch flags the publisher as broken when the channel or its connection closes.
func (p *rabbitPublisher) watch(notify <-chan *amqp.Error) {
	if amqpErr, ok := <-notify; ok && amqpErr != nil {
		p.log.Warn("RabbitMQ channel closed", slog.Any("error", amqpErr))
	}
	p.closed.Store(true)
}

// Broken reports whether the channel is gone and the publisher needs rebuilding.
func (p *rabbitPublisher) Broken() bool {
	return p.closed.Load()
}

// DeclareQueue is shared with the consumer so both sides agree on the queue shape.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return q, nil
}

func (p *rabbitPublisher) Publish(ctx context.Context, msg model.NotificationMessage) error {
	if err := ctx.Err(); err != nil {
		return appErr.NewQueuePublishFailed("cancelled: %v", err)
	}

	data, err := Encode(msg)
	if err != nil {
		return appErr.NewQueuePublishFailed("%v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  ContentTypeJSON,
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Headers:      amqp.Table{HeaderCounterKey: p.key},
			Body:         data,
		},
	)
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			p.closed.Store(true)
		}
		p.log.Error("Message publish failed", slog.String("queue", p.queue), slog.Any("error", err))
		return appErr.NewQueuePublishFailed("publish to %s: %v", p.queue, err)
	}

	p.log.Debug("Message published", slog.String("queue", p.queue), slog.Int64("count", msg.Count))
	return nil
}

func (p *rabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil && err != amqp.ErrClosed {
		return err
	}
	if err := p.conn.Close(); err != nil && err != amqp.ErrClosed {
		return err
	}
	return nil
}
