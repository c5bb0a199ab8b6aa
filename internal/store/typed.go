package store

import "sync"

// TypedStore is a concurrency-safe map keyed by string. The hub keeps its
// viewers in one.
type TypedStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewTypedStore creates a new, empty TypedStore.
func NewTypedStore[T any]() *TypedStore[T] {
	return &TypedStore[T]{items: make(map[string]T)}
}

// Set inserts or replaces the value for key.
func (s *TypedStore[T]) Set(key string, value T) {
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// Delete removes key and reports whether it was present.
func (s *TypedStore[T]) Delete(key string) bool {
	s.mu.Lock()
	_, ok := s.items[key]
	delete(s.items, key)
	s.mu.Unlock()
	return ok
}

// Len returns the number of items in the store.
func (s *TypedStore[T]) Len() int {
	s.mu.RLock()
	n := len(s.items)
	s.mu.RUnlock()
	return n
}

// Values returns all values as a slice. Order is not guaranteed.
func (s *TypedStore[T]) Values() []T {
	s.mu.RLock()
	vals := make([]T, 0, len(s.items))
	for _, v := range s.items {
		vals = append(vals, v)
	}
	s.mu.RUnlock()
	return vals
}

// Drain removes and returns every value.
func (s *TypedStore[T]) Drain() []T {
	s.mu.Lock()
	vals := make([]T, 0, len(s.items))
	for _, v := range s.items {
		vals = append(vals, v)
	}
	s.items = make(map[string]T)
	s.mu.Unlock()
	return vals
}
