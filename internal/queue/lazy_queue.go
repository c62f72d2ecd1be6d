package queue

import (
	"context"

	appErr "github.com/samims/hitcounter/internal/errors"
	"github.com/samims/hitcounter/internal/lazy"
	"github.com/samims/hitcounter/internal/model"
)

// breakable is implemented by backends that cannot recover a lost broker
// connection by themselves.
type breakable interface {
	Broken() bool
}

// LazyQueue connects to the broker on the first publish and reconnects when
// the backend reports its connection lost.
type LazyQueue struct {
	backend *lazy.Value[NotificationQueue]
}

func NewLazyQueue(build lazy.Builder[NotificationQueue]) *LazyQueue {
	return &LazyQueue{backend: lazy.New(build)}
}

func (l *LazyQueue) Publish(ctx context.Context, msg model.NotificationMessage) error {
	q, err := l.current(ctx)
	if err != nil {
		return appErr.NewQueuePublishFailed("connect: %v", err)
	}
	return q.Publish(ctx, msg)
}

// current returns a usable backend, replacing one whose connection is gone.
func (l *LazyQueue) current(ctx context.Context) (NotificationQueue, error) {
	q, err := l.backend.Get(ctx)
	if err != nil {
		return nil, err
	}
	if b, ok := q.(breakable); !ok || !b.Broken() {
		return q, nil
	}

	if old, dropped := l.backend.ResetIf(func(cur NotificationQueue) bool { return cur == q }); dropped {
		_ = old.Close()
	}
	return l.backend.Get(ctx)
}

func (l *LazyQueue) Close() error {
	if q, ok := l.backend.Peek(); ok {
		return q.Close()
	}
	return nil
}
