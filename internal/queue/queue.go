// Package queue provides the bounded FIFO queues that connect producers to
// the pipeline consumer, plus a name-based factory so implementations can be
// swapped without touching pipeline code.
package queue

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Queue is a bounded FIFO. Offer and Poll never block; Put and Take block
// until they can proceed or ctx is done. Implementations registered here are
// safe for concurrent use by multiple producers and consumers.
type Queue[E any] interface {
	// Offer inserts e if space is available and reports whether it did.
	Offer(e E) bool

	// Put inserts e, waiting for space.
	Put(ctx context.Context, e E) error

	// Poll removes the head element if there is one.
	Poll() (E, bool)

	// Take removes the head element, waiting for one to arrive.
	Take(ctx context.Context) (E, error)

	// Len returns the number of queued elements.
	Len() int

	// Cap returns the fixed capacity.
	Cap() int
}

// Built-in implementation names.
const (
	Ring    = "ring"
	Channel = "channel"
)

// Factory creates untyped queues for implementations registered by name.
type Factory func(capacity int) Queue[any]

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a custom implementation available under name.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = f
}

// Names returns every available implementation name, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := []string{Channel, Ring}
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New creates a queue of the named implementation. An empty name means Ring.
func New[E any](name string, capacity int) (Queue[E], error) {
	if capacity <= 0 {
		return nil, errors.Errorf("queue: capacity must be positive, got %d", capacity)
	}
	switch strings.ToLower(name) {
	case "", Ring:
		return NewRing[E](capacity), nil
	case Channel:
		return NewChannel[E](capacity), nil
	}
	registryMu.RLock()
	f, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("queue: unknown implementation %q", name)
	}
	q := f(capacity)
	if q == nil {
		return nil, errors.Errorf("queue: implementation %q returned nil", name)
	}
	return typed[E]{q}, nil
}

// typed adapts an untyped queue to a typed one.
type typed[E any] struct {
	q Queue[any]
}

func (t typed[E]) Offer(e E) bool                     { return t.q.Offer(e) }
func (t typed[E]) Put(ctx context.Context, e E) error { return t.q.Put(ctx, e) }
func (t typed[E]) Len() int                           { return t.q.Len() }
func (t typed[E]) Cap() int                           { return t.q.Cap() }

func (t typed[E]) Poll() (E, bool) {
	v, ok := t.q.Poll()
	if !ok {
		var zero E
		return zero, false
	}
	return v.(E), true
}

func (t typed[E]) Take(ctx context.Context) (E, error) {
	v, err := t.q.Take(ctx)
	if err != nil {
		var zero E
		return zero, err
	}
	return v.(E), nil
}

// notify performs a non-blocking send on a one-slot signal channel.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
