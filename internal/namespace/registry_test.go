package namespace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Default(t *testing.T) {
	r := NewRegistry("default")
	assert.Equal(t, "default", r.Current())
}

func TestRegistry_Set(t *testing.T) {
	r := NewRegistry("default")

	assert.True(t, r.Set("kube-system"))
	assert.Equal(t, "kube-system", r.Current())

	assert.False(t, r.Set("kube-system"), "same namespace is not a change")
	assert.False(t, r.Set(""), "empty names are ignored")
	assert.Equal(t, "kube-system", r.Current())
}

func TestRegistry_ConcurrentSet(t *testing.T) {
	r := NewRegistry("default")

	var wg sync.WaitGroup
	for _, ns := range []string{"a", "b", "c", "d"} {
		wg.Add(2)
		go func(ns string) {
			defer wg.Done()
			r.Set(ns)
		}(ns)
		go func() {
			defer wg.Done()
			_ = r.Current()
		}()
	}
	wg.Wait()

	assert.Contains(t, []string{"a", "b", "c", "d"}, r.Current())
}
