// Package safe provides small concurrency safe containers shared across the module.
package safe

import "sync"

// Map is a mutex guarded map keyed by string. The zero value is not usable;
// construct with NewMap.
type Map[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewMap returns a map seeded with the given entries. The seed is copied, so later
// mutations of it do not reach the map. A nil seed starts empty.
func NewMap[T any](seed map[string]T) *Map[T] {
	entries := make(map[string]T, len(seed))
	for key, value := range seed {
		entries[key] = value
	}
	return &Map[T]{entries: entries}
}

// Get returns the value for the key, or the zero value when absent
func (m *Map[T]) Get(key string) T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[key]
}

// Exists reports whether the key has a value
func (m *Map[T]) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok
}

// Set stores the value under the key
func (m *Map[T]) Set(key string, value T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}

// Del removes the key
func (m *Map[T]) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len returns the number of entries
func (m *Map[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Range calls fn for each entry until fn returns false. The map stays read locked
// for the duration of the walk.
func (m *Map[T]) Range(fn func(key string, value T) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for key, value := range m.entries {
		if !fn(key, value) {
			return
		}
	}
}

// AsMap returns a copy of the entries
func (m *Map[T]) AsMap() map[string]T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]T, len(m.entries))
	for key, value := range m.entries {
		out[key] = value
	}
	return out
}
