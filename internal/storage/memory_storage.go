package storage

import (
	"context"
	"sync"
)

type MemoryStorage struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{counts: make(map[string]int64)}
}

func (m *MemoryStorage) Read(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key], nil
}

func (m *MemoryStorage) Write(_ context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key] = value
	return nil
}

func (m *MemoryStorage) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *MemoryStorage) Ping(_ context.Context) error {
	return nil
}
