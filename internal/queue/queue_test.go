package queue

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func implementations(t *testing.T, capacity int) map[string]Queue[int] {
	t.Helper()
	out := map[string]Queue[int]{}
	for _, name := range []string{Ring, Channel} {
		q, err := New[int](name, capacity)
		require.NoError(t, err)
		out[name] = q
	}
	return out
}

func TestOfferPollFIFO(t *testing.T) {
	for name, q := range implementations(t, 3) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, 3, q.Cap())
			assert.True(t, q.Offer(1))
			assert.True(t, q.Offer(2))
			assert.True(t, q.Offer(3))
			assert.False(t, q.Offer(4), "full queue must refuse")
			assert.Equal(t, 3, q.Len())

			for _, want := range []int{1, 2, 3} {
				got, ok := q.Poll()
				require.True(t, ok)
				assert.Equal(t, want, got)
			}
			_, ok := q.Poll()
			assert.False(t, ok)
		})
	}
}

func TestRingWrapsAround(t *testing.T) {
	q := NewRing[int](2)
	for i := 0; i < 10; i++ {
		require.True(t, q.Offer(i))
		got, ok := q.Poll()
		require.True(t, ok)
		assert.Equal(t, i, got)
	}
	assert.Equal(t, 0, q.Len())
}

func TestPutHonorsContext(t *testing.T) {
	for name, q := range implementations(t, 1) {
		t.Run(name, func(t *testing.T) {
			require.True(t, q.Offer(1))
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			assert.ErrorIs(t, q.Put(ctx, 2), context.DeadlineExceeded)
		})
	}
}

func TestTakeHonorsContext(t *testing.T) {
	for name, q := range implementations(t, 1) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := q.Take(ctx)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestPutUnblocksWhenSpaceFrees(t *testing.T) {
	for name, q := range implementations(t, 1) {
		t.Run(name, func(t *testing.T) {
			require.True(t, q.Offer(1))
			done := make(chan error, 1)
			go func() { done <- q.Put(context.Background(), 2) }()

			select {
			case <-done:
				t.Fatal("put returned while queue was full")
			case <-time.After(20 * time.Millisecond):
			}

			got, ok := q.Poll()
			require.True(t, ok)
			assert.Equal(t, 1, got)
			require.NoError(t, <-done)

			got, err := q.Take(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 2, got)
		})
	}
}

func TestManyProducersOneConsumer(t *testing.T) {
	const producers, perProducer = 8, 500
	for name, q := range implementations(t, 16) {
		t.Run(name, func(t *testing.T) {
			var g errgroup.Group
			for p := 0; p < producers; p++ {
				p := p
				g.Go(func() error {
					for i := 0; i < perProducer; i++ {
						if err := q.Put(context.Background(), p*perProducer+i); err != nil {
							return err
						}
					}
					return nil
				})
			}

			got := make([]int, 0, producers*perProducer)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			lastPerProducer := map[int]int{}
			for len(got) < producers*perProducer {
				v, err := q.Take(ctx)
				require.NoError(t, err)
				p := v / perProducer
				if last, ok := lastPerProducer[p]; ok {
					require.Greater(t, v, last, "per-producer order must be preserved")
				}
				lastPerProducer[p] = v
				got = append(got, v)
			}
			require.NoError(t, g.Wait())

			sort.Ints(got)
			for i, v := range got {
				require.Equal(t, i, v)
			}
		})
	}
}

type sliceQueue struct {
	*ChannelQueue[any]
}

func TestCustomImplementation(t *testing.T) {
	Register("Custom", func(capacity int) Queue[any] {
		return sliceQueue{NewChannel[any](capacity)}
	})
	assert.Contains(t, Names(), "custom")

	q, err := New[string]("custom", 2)
	require.NoError(t, err)
	require.True(t, q.Offer("a"))
	v, ok := q.Poll()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	_, err = New[string]("missing", 2)
	assert.Error(t, err)
	_, err = New[string](Ring, 0)
	assert.Error(t, err)
}
