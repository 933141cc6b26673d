// Package session holds the per-device client state that survives restarts:
// selected branches, the add-booking draft, the auth flag, Telegram defaults,
// the time override and the happy-hour dedup markers.
package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Store.Get for a missing key.
var ErrNotFound = errors.New("session key not found")

// Store is a string key-value store with local-storage semantics.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// MemoryStore keeps values in process memory. Used in tests and when no
// persistent backend is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
