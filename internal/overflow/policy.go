// Package overflow decides what a producer does when the pipeline queue is
// full: wait for space, drop the event, or deliver it synchronously.
package overflow

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/pkg/errors"
)

// Decision is the outcome of routing one enqueue attempt on a full queue.
type Decision int

const (
	// EnqueueBlocking waits for space and then enqueues.
	EnqueueBlocking Decision = iota
	// EnqueueDrop discards the event.
	EnqueueDrop
	// BypassSynchronous delivers the event on the calling goroutine without
	// entering the queue.
	BypassSynchronous
)

func (d Decision) String() string {
	switch d {
	case EnqueueBlocking:
		return "ENQUEUE_BLOCKING"
	case EnqueueDrop:
		return "ENQUEUE_DROP"
	case BypassSynchronous:
		return "BYPASS_SYNCHRONOUS"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Policy routes an event that found the queue full. reentrant reports
// whether the caller is the goroutine running the pipeline consumer.
type Policy interface {
	Route(level event.Level, reentrant bool) Decision
	Name() string
}

// Default blocks, except for the consumer goroutine which bypasses the queue
// since waiting on itself would never return.
type Default struct{}

func (Default) Route(_ event.Level, reentrant bool) Decision {
	if reentrant {
		return BypassSynchronous
	}
	return EnqueueBlocking
}

func (Default) Name() string { return "default" }

// Discarding drops events at or below Threshold while the queue is full and
// otherwise behaves like Default.
type Discarding struct {
	threshold event.Level
	discarded atomic.Int64
}

// DefaultDiscardThreshold is used when no threshold is configured.
var DefaultDiscardThreshold = event.LevelInfo

// NewDiscarding creates a discarding policy. A zero threshold means
// DefaultDiscardThreshold.
func NewDiscarding(threshold event.Level) *Discarding {
	if threshold.IsZero() {
		threshold = DefaultDiscardThreshold
	}
	return &Discarding{threshold: threshold}
}

func (d *Discarding) Route(level event.Level, reentrant bool) Decision {
	if level.IsLessSpecific(d.threshold) {
		d.discarded.Add(1)
		return EnqueueDrop
	}
	return Default{}.Route(level, reentrant)
}

func (d *Discarding) Name() string { return "discard" }

// Threshold returns the least specific level that is still kept.
func (d *Discarding) Threshold() event.Level { return d.threshold }

// DiscardCount returns how many events this policy has dropped.
func (d *Discarding) DiscardCount() int64 { return d.discarded.Load() }

// Counter is implemented by policies that count the events they drop.
type Counter interface {
	DiscardCount() int64
}

// Constructor builds a policy from the configured discard threshold.
type Constructor func(threshold event.Level) (Policy, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

func init() {
	Register("default", func(event.Level) (Policy, error) { return Default{}, nil })
	Register("discard", func(l event.Level) (Policy, error) { return NewDiscarding(l), nil })
}

// Register makes a policy constructor available by name.
func Register(name string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = c
}

// Names lists the registered policy names.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup builds the named policy. An empty name means "default".
func Lookup(name string, threshold event.Level) (Policy, error) {
	if name == "" {
		name = "default"
	}
	registryMu.RLock()
	c, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("overflow: unknown policy %q", name)
	}
	p, err := c(threshold)
	if err != nil {
		return nil, errors.Wrapf(err, "overflow: policy %q", name)
	}
	return p, nil
}
