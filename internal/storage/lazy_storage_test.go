package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/samims/hitcounter/internal/errors"
)

func TestLazyStorage_SecretFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	attempts := 0
	mem := NewMemoryStorage()

	l := NewLazyStorage(func(ctx context.Context) (CounterStore, error) {
		attempts++
		if attempts == 1 {
			return nil, appErr.NewSecretRetrievalFailed("vault sealed")
		}
		return mem, nil
	})

	_, err := l.Read(ctx, "requests")
	require.Error(t, err)
	assert.True(t, appErr.IsSecretRetrievalFailed(err))

	require.NoError(t, l.Write(ctx, "requests", 5))
	got, err := l.Read(ctx, "requests")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
	assert.NoError(t, l.Ping(ctx))
	assert.Equal(t, 2, attempts)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStorage()

	got, err := Resolve(ctx, mem)
	require.NoError(t, err)
	assert.Same(t, mem, got)

	l := NewLazyStorage(func(ctx context.Context) (CounterStore, error) { return mem, nil })
	got, err = Resolve(ctx, l)
	require.NoError(t, err)
	assert.Same(t, mem, got)
	assert.NoError(t, l.Close())
}

func TestLazyStorage_CloseBeforeBuild(t *testing.T) {
	l := NewLazyStorage(func(ctx context.Context) (CounterStore, error) {
		t.Fatal("must not build on Close")
		return nil, nil
	})
	assert.NoError(t, l.Close())
}
