package store

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Latest holds the most recent value of T together with the time it was
// stored. The poller keeps the last graph in one; the server keeps the
// last namespace list in another.
type Latest[T any] struct {
	mu      sync.RWMutex
	clock   clock.PassiveClock
	value   T
	set     bool
	updated time.Time
}

// NewLatest creates an empty Latest using clk for timestamps.
func NewLatest[T any](clk clock.PassiveClock) *Latest[T] {
	return &Latest[T]{clock: clk}
}

// Store replaces the held value.
func (l *Latest[T]) Store(v T) {
	l.mu.Lock()
	l.value = v
	l.set = true
	l.updated = l.clock.Now()
	l.mu.Unlock()
}

// Load returns the held value and whether anything was ever stored.
func (l *Latest[T]) Load() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.set
}

// Updated returns when the value was last stored, or the zero time.
func (l *Latest[T]) Updated() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.updated
}

// Age returns how long ago the value was stored. It is zero when empty.
func (l *Latest[T]) Age() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.set {
		return 0
	}
	return l.clock.Since(l.updated)
}
