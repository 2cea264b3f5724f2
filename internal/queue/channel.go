package queue

import "context"

// ChannelQueue is a bounded queue backed by a buffered channel.
type ChannelQueue[E any] struct {
	ch chan E
}

// NewChannel creates a channel-backed queue.
func NewChannel[E any](capacity int) *ChannelQueue[E] {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ChannelQueue[E]{ch: make(chan E, capacity)}
}

func (c *ChannelQueue[E]) Offer(e E) bool {
	select {
	case c.ch <- e:
		return true
	default:
		return false
	}
}

func (c *ChannelQueue[E]) Put(ctx context.Context, e E) error {
	select {
	case c.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ChannelQueue[E]) Poll() (E, bool) {
	select {
	case e := <-c.ch:
		return e, true
	default:
		var zero E
		return zero, false
	}
}

func (c *ChannelQueue[E]) Take(ctx context.Context) (E, error) {
	select {
	case e := <-c.ch:
		return e, nil
	case <-ctx.Done():
		var zero E
		return zero, ctx.Err()
	}
}

func (c *ChannelQueue[E]) Len() int { return len(c.ch) }
func (c *ChannelQueue[E]) Cap() int { return cap(c.ch) }
