package storage

import (
	"context"
	"sync"
)

// Memory is a process-local key-value store. It backs ephemeral CLI runs and
// tests, and lets tests plant partial or corrupted values with Set.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: map[string]string{}}
}

func (m *Memory) Load(_ context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := Record{Token: m.data[KeyToken]}
	if u, ok := m.data[KeyUser]; ok {
		rec.User = []byte(u)
	}
	return rec, nil
}

func (m *Memory) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[KeyToken] = rec.Token
	m.data[KeyUser] = string(rec.User)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, KeyToken)
	delete(m.data, KeyUser)
	return nil
}

// Get returns the raw value stored under key.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Set writes a raw value under key, bypassing the record shape.
func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}
