// Package namespace holds the namespace every viewer is currently looking at.
package namespace

import (
	"log/slog"
	"sync/atomic"
)

// Registry is the single process-wide namespace selector. Any viewer may
// change it; the change is picked up by the next poll cycle.
type Registry struct {
	current atomic.Pointer[string]
}

// NewRegistry creates a Registry pointing at def.
func NewRegistry(def string) *Registry {
	r := &Registry{}
	r.current.Store(&def)
	return r
}

// Current returns the selected namespace.
func (r *Registry) Current() string {
	return *r.current.Load()
}

// Set selects ns and reports whether the selection changed.
// Empty names are ignored.
func (r *Registry) Set(ns string) bool {
	if ns == "" {
		return false
	}
	prev := r.current.Swap(&ns)
	if *prev == ns {
		return false
	}
	slog.Info("namespace changed", "from", *prev, "to", ns)
	return true
}
