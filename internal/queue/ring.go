package queue

import (
	"context"
	"sync"
)

// RingQueue is a fixed-capacity circular buffer guarded by a mutex.
// Waiters are woken through one-slot signal channels; each woken waiter
// passes the signal on while the condition still holds.
type RingQueue[E any] struct {
	mu       sync.Mutex
	entries  []E
	head     int // next read position
	count    int // current number of entries
	capacity int

	notEmpty chan struct{}
	notFull  chan struct{}
}

// NewRing creates a ring queue with the given capacity.
func NewRing[E any](capacity int) *RingQueue[E] {
	if capacity <= 0 {
		capacity = 1024
	}
	return &RingQueue[E]{
		entries:  make([]E, capacity),
		capacity: capacity,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
	}
}

// Offer adds an entry if the queue is not full.
func (r *RingQueue[E]) Offer(e E) bool {
	r.mu.Lock()
	if r.count == r.capacity {
		r.mu.Unlock()
		return false
	}
	r.entries[(r.head+r.count)%r.capacity] = e
	r.count++
	spare := r.count < r.capacity
	r.mu.Unlock()

	notify(r.notEmpty)
	if spare {
		notify(r.notFull)
	}
	return true
}

// Put adds an entry, waiting while the queue is full.
func (r *RingQueue[E]) Put(ctx context.Context, e E) error {
	for {
		if r.Offer(e) {
			return nil
		}
		select {
		case <-r.notFull:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Poll removes the oldest entry if there is one.
func (r *RingQueue[E]) Poll() (E, bool) {
	var zero E
	r.mu.Lock()
	if r.count == 0 {
		r.mu.Unlock()
		return zero, false
	}
	e := r.entries[r.head]
	r.entries[r.head] = zero
	r.head = (r.head + 1) % r.capacity
	r.count--
	remaining := r.count > 0
	r.mu.Unlock()

	notify(r.notFull)
	if remaining {
		notify(r.notEmpty)
	}
	return e, true
}

// Take removes the oldest entry, waiting while the queue is empty.
func (r *RingQueue[E]) Take(ctx context.Context) (E, error) {
	for {
		if e, ok := r.Poll(); ok {
			return e, nil
		}
		select {
		case <-r.notEmpty:
		case <-ctx.Done():
			var zero E
			return zero, ctx.Err()
		}
	}
}

// Len returns the current number of entries in the queue.
func (r *RingQueue[E]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the queue capacity.
func (r *RingQueue[E]) Cap() int {
	return r.capacity
}
