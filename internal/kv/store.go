// Package kv is the durable key-value persistence used for the stored
// credential and the pending-mutation list.
package kv

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("kv: key not found")

// Store is the persistence abstraction injected into the auth and offline packages.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// MemoryStore is an in-process Store. ReadErr and WriteErr, when set, are
// returned by every read or write to simulate unavailable storage.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	ReadErr  error
	WriteErr error
}

// Compile-time check: *MemoryStore satisfies Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	delete(m.data, key)
	return nil
}

// SetFailures toggles simulated storage failures under the store lock.
func (m *MemoryStore) SetFailures(readErr, writeErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadErr = readErr
	m.WriteErr = writeErr
}
