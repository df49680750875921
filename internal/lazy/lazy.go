// Package lazy provides a deferred-evaluation handle for expensive results.
package lazy

import "sync"

// Handle captures a computation and runs it on first observation. A handle
// that is never observed never runs its computation. Safe for concurrent
// use; all observers see the single cached result.
type Handle[T any] struct {
	once  sync.Once
	fn    func() (T, error)
	value T
	err   error
}

// Defer captures fn without running it.
func Defer[T any](fn func() (T, error)) *Handle[T] {
	return &Handle[T]{fn: fn}
}

// Value runs the captured computation on the first call and returns the
// cached result on every call after that.
func (h *Handle[T]) Value() (T, error) {
	h.once.Do(func() {
		h.value, h.err = h.fn()
		h.fn = nil
	})
	return h.value, h.err
}
