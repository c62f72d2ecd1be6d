package storage

import (
	"context"
	"io"

	"github.com/samims/hitcounter/internal/lazy"
)

// LazyStorage defers building the backend until the first request needs it.
type LazyStorage struct {
	backend *lazy.Value[CounterStore]
}

func NewLazyStorage(build lazy.Builder[CounterStore]) *LazyStorage {
	return &LazyStorage{backend: lazy.New(build)}
}

// Get returns the backend, building it on first use.
func (l *LazyStorage) Get(ctx context.Context) (CounterStore, error) {
	return l.backend.Get(ctx)
}

func (l *LazyStorage) Read(ctx context.Context, key string) (int64, error) {
	s, err := l.Get(ctx)
	if err != nil {
		return 0, err
	}
	return s.Read(ctx, key)
}

func (l *LazyStorage) Write(ctx context.Context, key string, value int64) error {
	s, err := l.Get(ctx)
	if err != nil {
		return err
	}
	return s.Write(ctx, key, value)
}

func (l *LazyStorage) Ping(ctx context.Context) error {
	s, err := l.Get(ctx)
	if err != nil {
		return err
	}
	return s.Ping(ctx)
}

// Close releases the backend if it was ever built.
func (l *LazyStorage) Close() error {
	s, ok := l.backend.Peek()
	if !ok {
		return nil
	}
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Resolve unwraps a LazyStorage so callers can type-check the real backend.
// Any other store is returned unchanged.
func Resolve(ctx context.Context, s CounterStore) (CounterStore, error) {
	if l, ok := s.(*LazyStorage); ok {
		return l.Get(ctx)
	}
	return s, nil
}
