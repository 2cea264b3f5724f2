// Package pipeline moves admitted events from producer goroutines to a
// single consumer goroutine that renders them and hands them to a sink.
//
// Producers enqueue into a bounded queue. When the queue is full an
// overflow policy decides whether the producer waits, drops the event, or,
// when the producer is the consumer itself, delivers the event synchronously
// so that the consumer never waits on its own queue.
package pipeline

import (
	"context"
	"runtime"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/buffer"
	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/monitor"
	"github.com/Geun-Oh/lxpipe/internal/overflow"
	"github.com/Geun-Oh/lxpipe/internal/queue"
	"github.com/Geun-Oh/lxpipe/internal/recycler"
	"github.com/Geun-Oh/lxpipe/internal/sink"
	"github.com/Geun-Oh/lxpipe/internal/status"
	"github.com/petermattis/goid"
	"github.com/pkg/errors"
)

var (
	// ErrNotStarted is returned by Submit and Stop before Start.
	ErrNotStarted = errors.New("pipeline: not started")
	// ErrStopped is returned once Stop has begun.
	ErrStopped = errors.New("pipeline: stopped")
	// ErrQueueFull is returned in non-blocking mode when the queue has no space.
	ErrQueueFull = errors.New("pipeline: queue full")
)

// Defaults applied by New.
const (
	DefaultCapacity        = 1024
	DefaultShutdownTimeout = 5 * time.Second
)

// Config holds pipeline configuration.
type Config struct {
	// Name identifies the pipeline in diagnostics and metrics.
	Name string

	// Capacity is the queue size.
	Capacity int

	// Queue names the queue implementation; empty means the ring queue.
	Queue string

	// Policy routes events that find the queue full; nil means overflow.Default.
	Policy overflow.Policy

	// Recycler selects how consumer-side text buffers are pooled.
	Recycler recycler.Strategy

	// MaxRetained caps the capacity a recycled text buffer keeps.
	MaxRetained int

	// Sink receives every delivered event. Required.
	Sink sink.Sink

	// NonBlocking skips the overflow policy: events that find the queue full
	// go to ErrorSink, or are dropped when it is nil.
	NonBlocking bool

	// ErrorSink receives events diverted in non-blocking mode. It is called
	// from producer goroutines and must be safe for concurrent use.
	ErrorSink sink.Sink

	// Status receives diagnostics; nil means status.Nop.
	Status status.Reporter

	// ShutdownTimeout bounds the drain performed by Stop when it is called
	// with a non-positive timeout.
	ShutdownTimeout time.Duration

	// ConsumerName labels the consumer goroutine in profiles.
	ConsumerName string
}

const (
	stateNew int32 = iota
	stateRunning
	stateStopping
	stateStopped
)

// Pipeline is an asynchronous delivery pipeline with one consumer.
type Pipeline struct {
	cfg    Config
	q      queue.Queue[*event.Event]
	text   recycler.Recycler[*buffer.Text]
	policy overflow.Policy
	report status.Reporter
	stats  *monitor.Stats

	state atomic.Int32

	// admission is read-locked by producers while they enqueue and
	// write-locked once by Stop to wait them out.
	admission sync.RWMutex

	stopProducers  context.CancelFunc
	producersCtx   context.Context
	stopConsumer   context.CancelFunc
	consumerCtx    context.Context
	drainDeadline  atomic.Int64
	consumerID     atomic.Int64
	done           chan struct{}
	outOfOrderOnce sync.Once
}

// New validates cfg and creates a pipeline. Call Start before Submit.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Sink == nil {
		return nil, errors.New("pipeline: sink is required")
	}
	if cfg.Name == "" {
		cfg.Name = "async"
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Capacity < 0 {
		return nil, errors.Errorf("pipeline: capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.Policy == nil {
		cfg.Policy = overflow.Default{}
	}
	if cfg.Status == nil {
		cfg.Status = status.Nop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = cfg.Name + "-consumer"
	}

	q, err := queue.New[*event.Event](cfg.Queue, cfg.Capacity)
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline %s", cfg.Name)
	}
	text, err := recycler.New(cfg.Recycler, buffer.New, buffer.Cleaner(cfg.MaxRetained))
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline %s", cfg.Name)
	}

	p := &Pipeline{
		cfg:    cfg,
		q:      q,
		text:   text,
		policy: cfg.Policy,
		report: cfg.Status,
		done:   make(chan struct{}),
	}
	p.stats = monitor.NewStats(cfg.Name, q.Len)
	p.producersCtx, p.stopProducers = context.WithCancel(context.Background())
	p.consumerCtx, p.stopConsumer = context.WithCancel(context.Background())
	return p, nil
}

// Name returns the configured pipeline name.
func (p *Pipeline) Name() string { return p.cfg.Name }

// Capacity returns the queue capacity.
func (p *Pipeline) Capacity() int { return p.q.Cap() }

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() *monitor.Stats { return p.stats }

// Start launches the consumer goroutine and returns once it is running.
func (p *Pipeline) Start() error {
	if !p.state.CompareAndSwap(stateNew, stateRunning) {
		return errors.Errorf("pipeline %s: already started", p.cfg.Name)
	}
	ready := make(chan struct{})
	go pprof.Do(context.Background(),
		pprof.Labels("pipeline", p.cfg.Name, "consumer", p.cfg.ConsumerName),
		func(context.Context) { p.consume(ready) })
	<-ready
	return nil
}

// IsConsumer reports whether the calling goroutine is this pipeline's
// consumer.
func (p *Pipeline) IsConsumer() bool {
	id := p.consumerID.Load()
	return id != 0 && id == goid.Get()
}

// Submit hands an admitted event to the pipeline. It returns once the event
// is queued, dropped by the overflow policy, or delivered synchronously.
func (p *Pipeline) Submit(e *event.Event) error {
	if e == nil {
		return nil
	}
	p.admission.RLock()
	switch p.state.Load() {
	case stateRunning:
	case stateNew:
		p.admission.RUnlock()
		return ErrNotStarted
	default:
		p.admission.RUnlock()
		return ErrStopped
	}
	p.stats.RecordSubmitted()

	if p.q.Offer(e) {
		p.admission.RUnlock()
		return nil
	}

	if p.cfg.NonBlocking {
		p.admission.RUnlock()
		p.divert(e)
		return ErrQueueFull
	}

	reentrant := p.IsConsumer()
	decision := p.policy.Route(e.Level(), reentrant)
	switch {
	case decision == overflow.BypassSynchronous && !reentrant:
		// only the consumer may deliver outside the queue
		decision = overflow.EnqueueBlocking
	case decision == overflow.EnqueueBlocking && reentrant:
		decision = overflow.BypassSynchronous
	}

	switch decision {
	case overflow.EnqueueDrop:
		p.admission.RUnlock()
		p.stats.RecordDiscarded()
		p.report.Discarded(p.cfg.Name, e.Level(), p.discardTotal())
		return nil

	case overflow.BypassSynchronous:
		p.admission.RUnlock()
		p.stats.RecordBypassed()
		p.outOfOrderOnce.Do(func() { p.report.OutOfOrder(p.cfg.Name) })
		p.deliver(e)
		return nil

	default:
		err := p.q.Put(p.producersCtx, e)
		p.admission.RUnlock()
		if err != nil {
			return ErrStopped
		}
		return nil
	}
}

func (p *Pipeline) discardTotal() int64 {
	if c, ok := p.policy.(overflow.Counter); ok {
		return c.DiscardCount()
	}
	return int64(p.stats.Snapshot().Discarded)
}

// divert sends an event that found the queue full to the error sink.
func (p *Pipeline) divert(e *event.Event) {
	p.stats.RecordDiverted()
	p.report.QueueFull(p.cfg.Name)
	if p.cfg.ErrorSink == nil {
		return
	}
	buf := p.text.Acquire()
	defer p.text.Release(buf)
	buf.B = p.render(e, buf.B)
	if err := p.send(p.cfg.ErrorSink, &event.Rendered{Event: e, Text: buf.B}); err != nil {
		p.stats.RecordSinkFailed()
		p.report.SinkFailed(p.cfg.Name, errors.Wrapf(err, "error sink %s", p.cfg.ErrorSink.Name()))
	}
}

// consume runs on a goroutine locked to its OS thread until Stop.
func (p *Pipeline) consume(ready chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p.consumerID.Store(goid.Get())
	defer p.consumerID.Store(0)
	defer close(p.done)
	close(ready)

	for {
		e, err := p.q.Take(p.consumerCtx)
		if err != nil {
			break
		}
		p.deliver(e)
	}

	for time.Now().UnixNano() < p.drainDeadline.Load() {
		e, ok := p.q.Poll()
		if !ok {
			return
		}
		p.deliver(e)
	}
}

// deliver renders e with a recycled buffer and passes it to the sink.
func (p *Pipeline) deliver(e *event.Event) {
	buf := p.text.Acquire()
	defer p.text.Release(buf)

	buf.B = p.render(e, buf.B)
	if err := p.send(p.cfg.Sink, &event.Rendered{Event: e, Text: buf.B}); err != nil {
		p.stats.RecordSinkFailed()
		p.report.SinkFailed(p.cfg.Name, errors.Wrapf(err, "sink %s", p.cfg.Sink.Name()))
		return
	}
	p.stats.RecordDelivered()
}

// send calls s.Deliver, turning a panic into an error.
func (p *Pipeline) send(s sink.Sink, r *event.Rendered) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.Errorf("panic: %v", v)
		}
	}()
	return s.Deliver(r)
}

// render caches the message text of e and copies it into buf. A message that
// panicked, here or earlier on a producer, is reported and delivered as a
// failure marker.
func (p *Pipeline) render(e *event.Event, buf []byte) []byte {
	buf = e.Freeze(buf)
	if err := e.RenderErr(); err != nil {
		p.stats.RecordRenderFailed()
		p.report.RenderFailed(p.cfg.Name, err)
	}
	return buf
}

// Stop closes admission, lets the consumer drain for up to timeout and
// returns the number of queued events that were not delivered. A
// non-positive timeout means Config.ShutdownTimeout. The sink is flushed but
// not closed.
func (p *Pipeline) Stop(timeout time.Duration) (lost int, err error) {
	if !p.state.CompareAndSwap(stateRunning, stateStopping) {
		if p.state.Load() == stateNew {
			return 0, ErrNotStarted
		}
		return 0, ErrStopped
	}
	if timeout <= 0 {
		timeout = p.cfg.ShutdownTimeout
	}
	deadline := time.Now().Add(timeout)

	// Wake producers waiting for space, then wait for every producer that
	// passed the state check to leave.
	p.stopProducers()
	p.admission.Lock()
	p.admission.Unlock()

	p.drainDeadline.Store(deadline.UnixNano())
	p.stopConsumer()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	finished := true
	select {
	case <-p.done:
	case <-timer.C:
		finished = false
	}

	for {
		if _, ok := p.q.Poll(); !ok {
			break
		}
		lost++
	}
	if lost > 0 {
		p.stats.RecordLost(lost)
		p.report.Lost(p.cfg.Name, lost)
	}
	if discarded := p.discardTotal(); discarded > 0 {
		p.report.DiscardTotal(p.cfg.Name, discarded)
	}
	p.state.Store(stateStopped)

	if !finished {
		return lost, errors.Errorf("pipeline %s: consumer still busy after %s", p.cfg.Name, timeout)
	}
	if err := p.cfg.Sink.Flush(); err != nil {
		return lost, errors.Wrapf(err, "pipeline %s: flush sink", p.cfg.Name)
	}
	return lost, nil
}
