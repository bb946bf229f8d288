package docstore

import (
	"sort"

	"github.com/autom8ter/docstore/internal/safe"
)

// Cache is a concurrency safe cache of keyed state
type Cache[T any] interface {
	// Get gets a value; it returns the zero value if no value was found
	Get(key string) T
	// Exists returns true if the key has a value
	Exists(key string) bool
	// Set sets the key value pair
	Set(key string, value T)
	// Del deletes a key if it exists
	Del(key string)
	// Len returns the number of cached entries
	Len() int
	// Range iterates the entries until fn returns false
	Range(fn func(key string, t T) bool)
}

// NewInMemCache returns a Cache backed by an in process mutex guarded map
func NewInMemCache[T any](data map[string]T) Cache[T] {
	return safe.NewMap(data)
}

// SessionIDs is the set of document identifiers observed while reading through
// one session. It is a write-through record of what was seen, not authoritative
// storage: ids are added on every successful read and never pruned here. Safe
// for concurrent writers.
type SessionIDs struct {
	cache Cache[bool]
}

// NewSessionIDs returns an empty id set backed by the given cache. A nil cache
// falls back to the in process implementation.
func NewSessionIDs(cache Cache[bool]) *SessionIDs {
	if cache == nil {
		cache = NewInMemCache[bool](nil)
	}
	return &SessionIDs{cache: cache}
}

// Add records the ids. Empty ids are ignored.
func (s *SessionIDs) Add(ids ...string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.cache.Set(id, true)
	}
}

// Has reports whether the id has been observed
func (s *SessionIDs) Has(id string) bool {
	return s.cache.Exists(id)
}

// Len returns the number of observed ids
func (s *SessionIDs) Len() int {
	return s.cache.Len()
}

// Values returns the observed ids in lexical order
func (s *SessionIDs) Values() []string {
	var ids []string
	s.cache.Range(func(key string, _ bool) bool {
		ids = append(ids, key)
		return true
	})
	sort.Strings(ids)
	return ids
}
