package lazy

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultBuildTimeout bounds a single build when none is configured.
const DefaultBuildTimeout = 15 * time.Second

// Builder constructs the wrapped value. It may be slow (network handshakes,
// secret lookups) and may fail.
type Builder[T any] func(ctx context.Context) (T, error)

// Value builds a shared handle on first use. Concurrent first callers share a
// single build. A failed build is not remembered, so the next Get tries again.
type Value[T any] struct {
	build   Builder[T]
	timeout time.Duration
	group   singleflight.Group

	mu    sync.RWMutex
	val   T
	ready bool
}

func New[T any](build Builder[T]) *Value[T] {
	return &Value[T]{build: build, timeout: DefaultBuildTimeout}
}

// WithTimeout sets how long one build may take.
func (v *Value[T]) WithTimeout(d time.Duration) *Value[T] {
	v.timeout = d
	return v
}

// Get returns the built value. The build is shared by every waiting caller,
// so it runs detached from the caller's cancellation and is bounded by the
// build timeout instead.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	if val, ok := v.Peek(); ok {
		return val, nil
	}

	res, err, _ := v.group.Do("build", func() (interface{}, error) {
		if val, ok := v.Peek(); ok {
			return val, nil
		}
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.timeout)
		defer cancel()

		val, err := v.build(buildCtx)
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		v.val, v.ready = val, true
		v.mu.Unlock()
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Peek returns the value only if it has been built.
func (v *Value[T]) Peek() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.val, v.ready
}

// ResetIf forgets the built value when stale reports true for it, so the
// next Get builds a fresh one. The dropped value is returned for cleanup.
// Checking under the lock keeps a value built by another caller in the
// meantime from being dropped.
func (v *Value[T]) ResetIf(stale func(T) bool) (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var zero T
	if !v.ready || !stale(v.val) {
		return zero, false
	}
	old := v.val
	v.val, v.ready = zero, false
	return old, true
}
