// Package storage implements the storage areas behind shelf backends: an
// in-memory area, a SQLite-backed area, and a cookie jar.
package storage

import (
	"slices"
	"sync"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// MemoryArea is an in-memory types.Area. It backs session storage and the
// persistent area of the "memory" store.
type MemoryArea struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryArea creates an empty in-memory area.
func NewMemoryArea() *MemoryArea {
	return &MemoryArea{items: make(map[string]string)}
}

// GetItem returns the value stored for key.
func (m *MemoryArea) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// SetItem stores value under key.
func (m *MemoryArea) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

// RemoveItem deletes key. Removing a missing key is a no-op.
func (m *MemoryArea) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Clear removes every key.
func (m *MemoryArea) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]string)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryArea) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *MemoryArea) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

var _ types.Area = (*MemoryArea)(nil)
