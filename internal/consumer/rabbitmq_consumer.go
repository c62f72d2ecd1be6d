package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/samims/hitcounter/internal/queue"
	"github.com/samims/hitcounter/internal/service"
)

var errConnClosed = errors.New("amqp connection is closed")

// RabbitConsumer fans deliveries from one queue out to a fixed worker pool.
type RabbitConsumer struct {
	conn        *amqp.Connection
	queue       string
	prefetch    int
	workerCount int
	handler     *Handler
	log         *slog.Logger
}

func NewRabbitConsumer(conn *amqp.Connection, queueName string, workerCount int, handler *Handler, log *slog.Logger) *RabbitConsumer {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &RabbitConsumer{
		conn:        conn,
		queue:       queueName,
		prefetch:    workerCount * 10,
		workerCount: workerCount,
		handler:     handler,
		log:         log.With("layer", "consumer", "component", "rabbitConsumer"),
	}
}

func (c *RabbitConsumer) Start(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := queue.DeclareQueue(ch, c.queue); err != nil {
		return err
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("qos configuration failed: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue,
		"",
		false, // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.log.Info("RabbitMQ consumer started", slog.String("queue", c.queue), slog.Int("workers", c.workerCount))
	return c.run(ctx, deliveries, ch.NotifyClose(make(chan *amqp.Error, 1)))
}

// run feeds deliveries to the workers until ctx is cancelled or the broker
// side goes away. Losing the broker is an error so the process can exit and
// be restarted instead of idling with no consumer attached.
func (c *RabbitConsumer) run(ctx context.Context, deliveries <-chan amqp.Delivery, closed <-chan *amqp.Error) error {
	var wg sync.WaitGroup
	for i := 0; i < c.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					c.deliver(ctx, d)
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		<-done
		return ctx.Err()
	case amqpErr := <-closed:
		<-done
		c.log.Error("RabbitMQ channel closed", slog.Any("error", amqpErr))
		return fmt.Errorf("%w: %v", errConnClosed, amqpErr)
	case <-done:
		if err := ctx.Err(); err != nil {
			return err
		}
		c.log.Error("RabbitMQ delivery channel closed")
		return fmt.Errorf("%w: delivery channel closed", errConnClosed)
	}
}

func (c *RabbitConsumer) deliver(ctx context.Context, d amqp.Delivery) {
	if err := c.handler.Handle(ctx, d.Body, deliveryMeta(d)); err != nil {
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.log.Error("Nack failed", slog.Any("error", nackErr))
		}
		return
	}
	if err := d.Ack(false); err != nil {
		c.log.Error("Ack failed", slog.Any("error", err))
	}
}

func (c *RabbitConsumer) Ping(context.Context) error {
	if c.conn == nil || c.conn.IsClosed() {
		return errConnClosed
	}
	return nil
}

func deliveryMeta(d amqp.Delivery) service.MessageMeta {
	key, _ := d.Headers[queue.HeaderCounterKey].(string)
	return service.MessageMeta{
		ID:         d.MessageId,
		CounterKey: key,
		Source:     "rabbitmq",
	}
}
