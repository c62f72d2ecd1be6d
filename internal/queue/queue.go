package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samims/hitcounter/internal/model"
)

// Header names attached to every published message.
const (
	HeaderMessageID  = "message-id"
	HeaderCounterKey = "counter-key"
	ContentTypeJSON  = "application/json"
)

// NotificationQueue publishes counter updates for asynchronous consumers.
// Delivery is at-least-once and unordered.
type NotificationQueue interface {
	Publish(ctx context.Context, msg model.NotificationMessage) error
	Close() error
}

// Encode is the wire format shared by every backend and by the consumer.
func Encode(msg model.NotificationMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (model.NotificationMessage, error) {
	var msg model.NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return model.NotificationMessage{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	return msg, nil
}

type noopQueue struct{}

// NewNoop returns a queue that drops every message.
func NewNoop() NotificationQueue { return noopQueue{} }

func (noopQueue) Publish(context.Context, model.NotificationMessage) error { return nil }
func (noopQueue) Close() error                                            { return nil }
