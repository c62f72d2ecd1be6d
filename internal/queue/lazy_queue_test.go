package queue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samims/hitcounter/internal/model"
)

// flakyBroker stands in for a publisher whose connection can drop.
type flakyBroker struct {
	id        int32
	broken    atomic.Bool
	closed    atomic.Bool
	published []int64
}

func (f *flakyBroker) Publish(_ context.Context, msg model.NotificationMessage) error {
	f.published = append(f.published, msg.Count)
	return nil
}

func (f *flakyBroker) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *flakyBroker) Broken() bool { return f.broken.Load() }

func TestLazyQueue_RebuildsBrokenBackend(t *testing.T) {
	ctx := context.Background()
	var builds atomic.Int32
	var built []*flakyBroker

	l := NewLazyQueue(func(ctx context.Context) (NotificationQueue, error) {
		b := &flakyBroker{id: builds.Add(1)}
		built = append(built, b)
		return b, nil
	})

	require.NoError(t, l.Publish(ctx, model.NotificationMessage{Count: 1}))
	require.NoError(t, l.Publish(ctx, model.NotificationMessage{Count: 2}))
	require.Len(t, built, 1)

	// broker restart
	built[0].broken.Store(true)

	require.NoError(t, l.Publish(ctx, model.NotificationMessage{Count: 3}))
	require.Len(t, built, 2)
	assert.True(t, built[0].closed.Load(), "stale connection released")
	assert.Equal(t, []int64{1, 2}, built[0].published)
	assert.Equal(t, []int64{3}, built[1].published)

	require.NoError(t, l.Publish(ctx, model.NotificationMessage{Count: 4}))
	assert.Equal(t, int32(2), builds.Load())

	require.NoError(t, l.Close())
	assert.True(t, built[1].closed.Load())
}

func TestRabbitPublisher_BrokenAfterChannelClose(t *testing.T) {
	tests := []struct {
		name   string
		notify func(ch chan *amqp.Error)
	}{
		{
			name: "broker closes the connection",
			notify: func(ch chan *amqp.Error) {
				ch <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
			},
		},
		{
			name:   "channel closed cleanly",
			notify: func(ch chan *amqp.Error) { close(ch) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &rabbitPublisher{queue: "counter-updates", log: slog.Default()}
			notify := make(chan *amqp.Error, 1)
			go p.watch(notify)

			assert.False(t, p.Broken())
			tt.notify(notify)
			assert.Eventually(t, p.Broken, time.Second, 5*time.Millisecond)
		})
	}
}
