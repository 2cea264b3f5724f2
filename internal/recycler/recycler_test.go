package recycler

import (
	"sync"
	"testing"

	"github.com/Geun-Oh/lxpipe/internal/buffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectors(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"", Strategy{Kind: KindThreadLocal, Capacity: 1}},
		{"dummy", Strategy{Kind: KindDummy}},
		{"threadLocal", Strategy{Kind: KindThreadLocal, Capacity: 1}},
		{"threadLocal:capacity=4", Strategy{Kind: KindThreadLocal, Capacity: 4}},
		{"queue:supplier=channel,capacity=16", Strategy{Kind: KindQueue, Capacity: 16, Supplier: "channel"}},
		{"queue:capacity=3", Strategy{Kind: KindQueue, Capacity: 3, Supplier: "ring"}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	q, err := Parse("queue")
	require.NoError(t, err)
	assert.Equal(t, DefaultQueueCapacity(), q.Capacity)
	assert.GreaterOrEqual(t, q.Capacity, 8)
}

func TestParseRejectsMalformedSelectors(t *testing.T) {
	for _, in := range []string{
		"pool",
		"dummy:capacity=2",
		"threadLocal:capacity=0",
		"threadLocal:capacity=x",
		"threadLocal:supplier=ring",
		"queue:capacity",
		"queue:depth=3",
	} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func textRecycler(t *testing.T, selector string) Recycler[*buffer.Text] {
	t.Helper()
	s, err := Parse(selector)
	require.NoError(t, err)
	r, err := New(s, buffer.New, buffer.Cleaner(buffer.DefaultMaxRetained))
	require.NoError(t, err)
	return r
}

func TestReleasedValuesComeBackEmpty(t *testing.T) {
	for _, selector := range []string{"threadLocal", "threadLocal:capacity=3", "queue:capacity=4"} {
		t.Run(selector, func(t *testing.T) {
			r := textRecycler(t, selector)
			b := r.Acquire()
			_, _ = b.WriteString("leftover content")
			r.Release(b)

			got := r.Acquire()
			assert.Same(t, b, got, "released value should be reused")
			assert.Equal(t, 0, got.Len())
		})
	}
}

func TestDummyAlwaysAllocates(t *testing.T) {
	r := textRecycler(t, "dummy")
	b := r.Acquire()
	r.Release(b)
	assert.NotSame(t, b, r.Acquire())
}

func TestSingleSlotNestedAcquireAllocates(t *testing.T) {
	r := textRecycler(t, "threadLocal")
	outer := r.Acquire()
	inner := r.Acquire()
	assert.NotSame(t, outer, inner)
	r.Release(inner)
	r.Release(outer)

	// only the last release survives in the slot
	assert.Same(t, outer, r.Acquire())
	assert.NotSame(t, inner, r.Acquire())
}

func TestQueueingServesNestedPairs(t *testing.T) {
	r := textRecycler(t, "threadLocal:capacity=2")
	a, b := r.Acquire(), r.Acquire()
	r.Release(a)
	r.Release(b)

	got := []*buffer.Text{r.Acquire(), r.Acquire()}
	assert.ElementsMatch(t, []*buffer.Text{a, b}, got)
}

func TestOwnersAreSeparate(t *testing.T) {
	r := textRecycler(t, "threadLocal")
	b := r.Acquire()
	r.Release(b)

	other := make(chan *buffer.Text)
	go func() { other <- r.Acquire() }()
	assert.NotSame(t, b, <-other, "another goroutine must not see this owner's slot")
	assert.Same(t, b, r.Acquire())
}

func TestOwnersTableIsBounded(t *testing.T) {
	created := 0
	o := newOwners(func() *int { created++; v := created; return &v })

	first := o.get(1)
	assert.Same(t, first, o.get(1))
	assert.Same(t, o.get(1+ownerShards), o.get(1+ownerShards), "ids sharing a shard keep their own state")
	assert.NotSame(t, first, o.get(1+ownerShards))

	for id := int64(0); id < 3*maxOwners; id++ {
		o.get(id)
	}
	assert.Equal(t, maxOwners, o.len())
}

func TestOwnersConcurrentGoroutines(t *testing.T) {
	r := textRecycler(t, "threadLocal")
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := r.Acquire()
			for j := 0; j < 100; j++ {
				r.Release(b)
				again := r.Acquire()
				assert.Same(t, b, again)
				b = again
			}
		}()
	}
	wg.Wait()
}

func TestSharedQueueDropsWhenFull(t *testing.T) {
	r := textRecycler(t, "queue:capacity=1")
	a, b := r.Acquire(), r.Acquire()
	r.Release(a)
	r.Release(b) // dropped

	assert.Same(t, a, r.Acquire())
	assert.NotSame(t, b, r.Acquire())
}

func TestReleaseTrimsOversizedBuffers(t *testing.T) {
	s, err := Parse("threadLocal")
	require.NoError(t, err)
	r, err := New(s, buffer.New, buffer.Cleaner(64))
	require.NoError(t, err)

	b := r.Acquire()
	_, _ = b.Write(make([]byte, 1024))
	r.Release(b)
	assert.LessOrEqual(t, r.Acquire().Cap(), 64)
}

func TestNewRejectsUnknownSupplier(t *testing.T) {
	_, err := New(Strategy{Kind: KindQueue, Capacity: 2, Supplier: "nope"}, buffer.New, nil)
	assert.Error(t, err)
	_, err = New[*buffer.Text](Strategy{Kind: KindDummy}, nil, nil)
	assert.Error(t, err)
}
