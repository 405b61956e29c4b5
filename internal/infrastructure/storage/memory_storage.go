package storage

import (
	"context"
	"sync"
)

// MemoryObjectStorage keeps uploads in memory. Dry runs use it in place of S3.
type MemoryObjectStorage struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// Object is a stored upload
type Object struct {
	Data        []byte
	ContentType string
}

// NewMemoryObjectStorage creates an empty store
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{objects: make(map[string]Object)}
}

// Upload stores a copy of data under key
func (m *MemoryObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return key, nil
}

// Get returns the object stored under key
func (m *MemoryObjectStorage) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len returns the number of stored objects
func (m *MemoryObjectStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
