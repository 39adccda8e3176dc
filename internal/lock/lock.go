// Package lock serializes reconciliation per (project, analysis) key.
// Whole-document persistence makes overlapping read-modify-write cycles
// lose updates, so every reconciliation call runs under one of these locks.
package lock

import (
	"context"
	"sync"
)

// Memory is the in-process locker: one mutex per key, created on demand.
// Sufficient when a single API process owns the data directory.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{locks: make(map[string]*sync.Mutex)}
}

func (m *Memory) Acquire(_ context.Context, key string) (func(), error) {
	m.mu.Lock()
	keyLock, ok := m.locks[key]
	if !ok {
		keyLock = &sync.Mutex{}
		m.locks[key] = keyLock
	}
	m.mu.Unlock()

	keyLock.Lock()
	return keyLock.Unlock, nil
}
