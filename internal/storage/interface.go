package storage

import (
	"context"
)

// CounterStore persists one integer per counter key.
// A key that was never written reads as 0 without error.
type CounterStore interface {
	Read(ctx context.Context, key string) (int64, error)
	Write(ctx context.Context, key string, value int64) error
	Ping(ctx context.Context) error
}

// Incrementer is implemented by stores that can bump a counter atomically.
// It returns the value after the increment.
type Incrementer interface {
	Increment(ctx context.Context, key string) (int64, error)
}
