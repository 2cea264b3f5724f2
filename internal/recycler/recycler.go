// Package recycler pools reusable values so that producers and the pipeline
// consumer can build text without a heap allocation per event.
//
// Owners are goroutines. A value acquired on one goroutine must be released
// on the same goroutine for the per-owner strategies to reuse it; releasing
// elsewhere is safe but only feeds that other goroutine's slot.
package recycler

import (
	"sync"

	"github.com/Geun-Oh/lxpipe/internal/queue"
	"github.com/petermattis/goid"
	"github.com/pkg/errors"
)

// Recycler hands out values and takes them back for reuse.
type Recycler[T any] interface {
	Acquire() T
	Release(T)
}

// New builds a recycler for strategy s. supplier allocates a fresh value and
// cleaner resets a value before it is made available again; cleaner may be
// nil when values carry no state.
func New[T any](s Strategy, supplier func() T, cleaner func(T)) (Recycler[T], error) {
	if supplier == nil {
		return nil, errors.New("recycler: supplier is required")
	}
	if cleaner == nil {
		cleaner = func(T) {}
	}
	switch s.Kind {
	case KindDummy:
		return dummy[T]{supplier: supplier}, nil
	case KindThreadLocal:
		if s.Capacity <= 1 {
			return newSingleSlot(supplier, cleaner), nil
		}
		return newQueueing(s.Capacity, supplier, cleaner), nil
	case KindQueue:
		capacity := s.Capacity
		if capacity <= 0 {
			capacity = DefaultQueueCapacity()
		}
		q, err := queue.New[T](s.Supplier, capacity)
		if err != nil {
			return nil, errors.Wrap(err, "recycler: queue supplier")
		}
		return &shared[T]{q: q, supplier: supplier, cleaner: cleaner}, nil
	default:
		return nil, errors.Errorf("recycler: unknown strategy %s", s.Kind)
	}
}

// dummy allocates on every Acquire and ignores Release.
type dummy[T any] struct {
	supplier func() T
}

func (d dummy[T]) Acquire() T { return d.supplier() }
func (d dummy[T]) Release(T)  {}

// maxOwners bounds the per-owner tables. Goroutines do not announce their
// exit, so entries for dead owners are evicted once a shard is full.
const maxOwners = 4096

// ownerShards splits the table so owners rarely share a lock.
const ownerShards = 64

// owners maps goroutine ids to per-owner state.
type owners[S any] struct {
	shards   [ownerShards]ownerShard[S]
	newState func() S
}

type ownerShard[S any] struct {
	mu    sync.Mutex
	table map[int64]S
}

func newOwners[S any](newState func() S) *owners[S] {
	o := &owners[S]{newState: newState}
	for i := range o.shards {
		o.shards[i].table = map[int64]S{}
	}
	return o
}

func (o *owners[S]) shard(id int64) *ownerShard[S] {
	return &o.shards[uint64(id)%ownerShards]
}

func (o *owners[S]) get(id int64) S {
	sh := o.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.table[id]
	if !ok {
		if len(sh.table) >= maxOwners/ownerShards {
			for k := range sh.table {
				delete(sh.table, k)
				break
			}
		}
		s = o.newState()
		sh.table[id] = s
	}
	return s
}

// len counts tracked owners.
func (o *owners[S]) len() int {
	n := 0
	for i := range o.shards {
		sh := &o.shards[i]
		sh.mu.Lock()
		n += len(sh.table)
		sh.mu.Unlock()
	}
	return n
}

// singleSlot keeps at most one idle value per owner.
type singleSlot[T any] struct {
	supplier func() T
	cleaner  func(T)
	slots    *owners[*slot[T]]
}

type slot[T any] struct {
	value T
	full  bool
}

func newSingleSlot[T any](supplier func() T, cleaner func(T)) *singleSlot[T] {
	return &singleSlot[T]{
		supplier: supplier,
		cleaner:  cleaner,
		slots:    newOwners(func() *slot[T] { return &slot[T]{} }),
	}
}

func (r *singleSlot[T]) Acquire() T {
	s := r.slots.get(goid.Get())
	if !s.full {
		return r.supplier()
	}
	v := s.value
	var zero T
	s.value, s.full = zero, false
	return v
}

func (r *singleSlot[T]) Release(v T) {
	r.cleaner(v)
	s := r.slots.get(goid.Get())
	s.value, s.full = v, true
}

// queueing keeps up to depth idle values per owner so nested
// Acquire/Release pairs on one goroutine are served without allocating.
type queueing[T any] struct {
	supplier func() T
	cleaner  func(T)
	queues   *owners[*queue.RingQueue[T]]
}

func newQueueing[T any](depth int, supplier func() T, cleaner func(T)) *queueing[T] {
	return &queueing[T]{
		supplier: supplier,
		cleaner:  cleaner,
		queues:   newOwners(func() *queue.RingQueue[T] { return queue.NewRing[T](depth) }),
	}
}

func (r *queueing[T]) Acquire() T {
	if v, ok := r.queues.get(goid.Get()).Poll(); ok {
		return v
	}
	return r.supplier()
}

func (r *queueing[T]) Release(v T) {
	r.cleaner(v)
	r.queues.get(goid.Get()).Offer(v)
}

// shared serves every owner from one bounded queue. Values released while
// the queue is full are dropped.
type shared[T any] struct {
	q        queue.Queue[T]
	supplier func() T
	cleaner  func(T)
}

func (r *shared[T]) Acquire() T {
	if v, ok := r.q.Poll(); ok {
		return v
	}
	return r.supplier()
}

func (r *shared[T]) Release(v T) {
	r.cleaner(v)
	r.q.Offer(v)
}
