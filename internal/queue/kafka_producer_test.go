package queue

import (
	"context"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	appErr "github.com/samims/hitcounter/internal/errors"
	"github.com/samims/hitcounter/internal/model"
	"github.com/samims/hitcounter/pkg/tracing"
)

func newTestTracer() *tracing.Tracer {
	return tracing.NewTracer(noop.NewTracerProvider().Tracer("test"))
}

func TestKafkaProducer_Publish(t *testing.T) {
	cfg := NewSaramaConfig("test")
	mp := mocks.NewAsyncProducer(t, cfg)

	var sent *sarama.ProducerMessage
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})

	p := NewKafkaProducer(mp, "counter-updates", "requests", slog.Default(), newTestTracer())
	require.NoError(t, p.Publish(context.Background(), model.NotificationMessage{Count: 3}))
	require.NoError(t, p.Close())

	require.NotNil(t, sent)
	assert.Equal(t, "counter-updates", sent.Topic)

	key, err := sent.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "requests", string(key))

	value, err := sent.Value.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":3}`, string(value))

	headers := map[string]string{}
	for _, h := range sent.Headers {
		headers[string(h.Key)] = string(h.Value)
	}
	assert.Equal(t, "requests", headers[HeaderCounterKey])
	assert.NotEmpty(t, headers[HeaderMessageID])
}

func TestKafkaProducer_DeliveryFailureIsNotReturned(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, NewSaramaConfig("test"))
	mp.ExpectInputAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaProducer(mp, "counter-updates", "requests", slog.Default(), newTestTracer())
	assert.NoError(t, p.Publish(context.Background(), model.NotificationMessage{Count: 1}))
	require.NoError(t, p.Close())
}

func TestKafkaProducer_CloseIsIdempotent(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, NewSaramaConfig("test"))
	p := NewKafkaProducer(mp, "counter-updates", "requests", slog.Default(), newTestTracer())

	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}

func TestNewKafkaProducer_PanicsOnBadInput(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, NewSaramaConfig("test"))
	defer mp.Close()

	assert.Panics(t, func() { NewKafkaProducer(mp, "", "requests", slog.Default(), newTestTracer()) })
	assert.Panics(t, func() { NewKafkaProducer(nil, "t", "requests", slog.Default(), newTestTracer()) })
}

func TestLazyQueue(t *testing.T) {
	ctx := context.Background()
	msg := model.NotificationMessage{Count: 8}

	failing := NewLazyQueue(func(ctx context.Context) (NotificationQueue, error) {
		return nil, appErr.NewSecretRetrievalFailed("no broker url")
	})
	err := failing.Publish(ctx, msg)
	assert.True(t, appErr.IsQueuePublishFailed(err))
	assert.NoError(t, failing.Close())

	inner := NewMockNotificationQueue(t)
	inner.On("Publish", ctx, msg).Return(nil).Once()
	inner.On("Close").Return(nil).Once()

	l := NewLazyQueue(func(ctx context.Context) (NotificationQueue, error) { return inner, nil })
	require.NoError(t, l.Publish(ctx, msg))
	require.NoError(t, l.Close())
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(model.NotificationMessage{Count: 42})
	require.NoError(t, err)
	assert.Equal(t, `{"count":42}`, string(data))

	_, err = Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	q := NewNoop()
	assert.NoError(t, q.Publish(context.Background(), model.NotificationMessage{Count: 1}))
	assert.NoError(t, q.Close())
}
