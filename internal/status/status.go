// Package status is the diagnostic channel of the pipeline. Overflow
// outcomes, shutdown losses and rendering or sink failures are reported here
// instead of being written to the sink itself.
package status

import (
	"sync"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Reporter receives pipeline diagnostics. Implementations must be safe for
// concurrent use; calls may come from producers and from the consumer.
type Reporter interface {
	// Discarded is called when the overflow policy drops an event.
	// total is the policy's running discard count.
	Discarded(pipeline string, level event.Level, total int64)

	// OutOfOrder is called the first time a pipeline delivers an event
	// synchronously to avoid deadlocking its own consumer.
	OutOfOrder(pipeline string)

	// DiscardTotal is called on stop with the number of events the overflow
	// policy discarded over the pipeline's lifetime, when there were any.
	DiscardTotal(pipeline string, total int64)

	// Lost is called on stop with the number of events left undelivered.
	Lost(pipeline string, n int)

	// RenderFailed is called when a message could not be rendered.
	RenderFailed(pipeline string, err error)

	// SinkFailed is called when the sink rejects an event.
	SinkFailed(pipeline string, err error)

	// QueueFull is called in non-blocking mode when an event is diverted
	// because the queue had no space.
	QueueFull(pipeline string)
}

// Logger reports through a zap logger.
type Logger struct {
	log *zap.Logger
}

// NewLogger wraps l. Repeated messages are sampled so that a saturated
// queue does not flood the status output.
func NewLogger(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	l = l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(c, time.Second, 1, 100)
	}))
	return &Logger{log: l.Named("status")}
}

func (l *Logger) Discarded(pipeline string, level event.Level, total int64) {
	l.log.Warn("queue is full, discarding event",
		zap.String("pipeline", pipeline),
		zap.Stringer("level", level),
		zap.Int64("discarded", total))
}

func (l *Logger) OutOfOrder(pipeline string) {
	l.log.Warn("queue is full and the consumer is logging; delivering synchronously and out of order to avoid deadlock",
		zap.String("pipeline", pipeline))
}

func (l *Logger) DiscardTotal(pipeline string, total int64) {
	l.log.Warn("events discarded while the queue was full",
		zap.String("pipeline", pipeline),
		zap.Int64("discarded", total))
}

func (l *Logger) Lost(pipeline string, n int) {
	l.log.Error("events not delivered before shutdown deadline",
		zap.String("pipeline", pipeline),
		zap.Int("lost", n))
}

func (l *Logger) RenderFailed(pipeline string, err error) {
	l.log.Error("message rendering failed", zap.String("pipeline", pipeline), zap.Error(err))
}

func (l *Logger) SinkFailed(pipeline string, err error) {
	l.log.Error("sink rejected event", zap.String("pipeline", pipeline), zap.Error(err))
}

func (l *Logger) QueueFull(pipeline string) {
	l.log.Warn("queue is full, routing event to error sink", zap.String("pipeline", pipeline))
}

// Nop returns a Reporter that discards everything.
func Nop() Reporter { return nop{} }

type nop struct{}

func (nop) Discarded(string, event.Level, int64) {}
func (nop) OutOfOrder(string)                    {}
func (nop) DiscardTotal(string, int64)           {}
func (nop) Lost(string, int)                     {}
func (nop) RenderFailed(string, error)           {}
func (nop) SinkFailed(string, error)             {}
func (nop) QueueFull(string)                     {}

// Kind identifies a recorded report.
type Kind string

const (
	KindDiscarded    Kind = "discarded"
	KindOutOfOrder   Kind = "outOfOrder"
	KindDiscardTotal Kind = "discardTotal"
	KindLost         Kind = "lost"
	KindRenderFailed Kind = "renderFailed"
	KindSinkFailed   Kind = "sinkFailed"
	KindQueueFull    Kind = "queueFull"
)

// Entry is one recorded report.
type Entry struct {
	Kind     Kind
	Pipeline string
	Level    event.Level
	N        int64
	Err      error
}

// Recorder keeps every report in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) add(e Entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func (r *Recorder) Discarded(p string, l event.Level, total int64) {
	r.add(Entry{Kind: KindDiscarded, Pipeline: p, Level: l, N: total})
}
func (r *Recorder) OutOfOrder(p string) { r.add(Entry{Kind: KindOutOfOrder, Pipeline: p}) }
func (r *Recorder) DiscardTotal(p string, total int64) {
	r.add(Entry{Kind: KindDiscardTotal, Pipeline: p, N: total})
}
func (r *Recorder) Lost(p string, n int) { r.add(Entry{Kind: KindLost, Pipeline: p, N: int64(n)}) }
func (r *Recorder) RenderFailed(p string, e error) {
	r.add(Entry{Kind: KindRenderFailed, Pipeline: p, Err: e})
}
func (r *Recorder) SinkFailed(p string, e error) {
	r.add(Entry{Kind: KindSinkFailed, Pipeline: p, Err: e})
}
func (r *Recorder) QueueFull(p string) { r.add(Entry{Kind: KindQueueFull, Pipeline: p}) }

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns the number of recorded entries of kind k.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Kind == k {
			n++
		}
	}
	return n
}
