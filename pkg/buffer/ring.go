// Package buffer provides a bounded recency buffer used for the debug
// endpoints. Entries are volatile process state and reset on restart.
package buffer

import "sync"

// Ring keeps the most recent entries up to a fixed capacity, newest first.
// Appends from concurrent requests are safe; reads return copies.
type Ring[T any] struct {
	mu       sync.Mutex
	capacity int
	items    []T
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		capacity: capacity,
		items:    make([]T, 0, capacity),
	}
}

// Append inserts item at the front, evicting the oldest entry when the buffer
// is full.
func (r *Ring[T]) Append(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append([]T{item}, r.items...)
	if len(r.items) > r.capacity {
		r.items = r.items[:r.capacity]
	}
}

// Last returns up to n entries, most recent first.
func (r *Ring[T]) Last(n int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n > len(r.items) {
		n = len(r.items)
	}
	out := make([]T, n)
	copy(out, r.items[:n])
	return out
}

func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Ring[T]) Capacity() int {
	return r.capacity
}
