package lazy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_BuildsOnceUnderConcurrency(t *testing.T) {
	var builds atomic.Int32
	v := New(func(ctx context.Context) (string, error) {
		builds.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "client", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := v.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "client", got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
}

func TestValue_RetriesAfterFailure(t *testing.T) {
	calls := 0
	v := New(func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("handshake failed")
		}
		return 42, nil
	})

	_, err := v.Get(context.Background())
	require.Error(t, err)
	_, ok := v.Peek()
	assert.False(t, ok)

	got, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestValue_BuildOutlivesCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	v := New(func(ctx context.Context) (string, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			return "", errors.New("build has no deadline")
		}
		return "client", nil
	}).WithTimeout(time.Second)

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := v.Get(first)
		firstDone <- err
	}()

	// the second caller joins the build started by the first
	time.Sleep(10 * time.Millisecond)
	secondDone := make(chan error, 1)
	go func() {
		_, err := v.Get(context.Background())
		secondDone <- err
	}()

	cancel()
	time.Sleep(10 * time.Millisecond)
	close(release)

	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)
	got, ok := v.Peek()
	assert.True(t, ok)
	assert.Equal(t, "client", got)
}

func TestValue_BuildTimeout(t *testing.T) {
	v := New(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}).WithTimeout(20 * time.Millisecond)

	_, err := v.Get(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValue_ResetIf(t *testing.T) {
	var builds atomic.Int32
	v := New(func(ctx context.Context) (int32, error) {
		return builds.Add(1), nil
	})

	_, dropped := v.ResetIf(func(int32) bool { return true })
	assert.False(t, dropped, "nothing built yet")

	got, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), got)

	_, dropped = v.ResetIf(func(cur int32) bool { return cur == 99 })
	assert.False(t, dropped)

	old, dropped := v.ResetIf(func(cur int32) bool { return cur == 1 })
	assert.True(t, dropped)
	assert.Equal(t, int32(1), old)

	got, err = v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), got)
}
