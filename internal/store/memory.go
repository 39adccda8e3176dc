package store

import (
	"context"
	"sync"
)

// Memory is a blob backend held entirely in memory. Used in tests and as a
// scratch store for tooling; it honors the same contract as the real
// backends.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotExist
	}
	copied := make([]byte, len(body))
	copy(copied, body)
	return copied, nil
}

func (m *Memory) Put(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]byte, len(body))
	copy(copied, body)
	m.blobs[key] = copied
	return nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}
