// Package memory is an in-process store backend, used in tests and when no
// persistent backend is configured.
package memory

import (
	"context"
	"sync"
)

type Backend struct {
	mu   sync.RWMutex
	data map[string]string
}

func New() *Backend {
	return &Backend{data: make(map[string]string)}
}

func (b *Backend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *Backend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

// Keys returns the number of stored keys.
func (b *Backend) Keys() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}
