package event

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ContextMap is an immutable, key-sorted string map captured at admission.
type ContextMap struct {
	keys   []string
	values []string
}

// NewContextMap builds a ContextMap from a Go map.
func NewContextMap(m map[string]string) ContextMap {
	if len(m) == 0 {
		return ContextMap{}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = m[k]
	}
	return ContextMap{keys: keys, values: values}
}

// Get returns the value for key.
func (c ContextMap) Get(key string) (string, bool) {
	i := sort.SearchStrings(c.keys, key)
	if i < len(c.keys) && c.keys[i] == key {
		return c.values[i], true
	}
	return "", false
}

// Len returns the number of entries.
func (c ContextMap) Len() int { return len(c.keys) }

// Range calls fn for each entry in key order until fn returns false.
func (c ContextMap) Range(fn func(k, v string) bool) {
	for i, k := range c.keys {
		if !fn(k, c.values[i]) {
			return
		}
	}
}

// With returns a copy of c with key set to value.
func (c ContextMap) With(key, value string) ContextMap {
	i := sort.SearchStrings(c.keys, key)
	if i < len(c.keys) && c.keys[i] == key {
		values := make([]string, len(c.values))
		copy(values, c.values)
		values[i] = value
		return ContextMap{keys: c.keys, values: values}
	}
	keys := make([]string, 0, len(c.keys)+1)
	values := make([]string, 0, len(c.values)+1)
	keys = append(append(append(keys, c.keys[:i]...), key), c.keys[i:]...)
	values = append(append(append(values, c.values[:i]...), value), c.values[i:]...)
	return ContextMap{keys: keys, values: values}
}

// Without returns a copy of c with key removed.
func (c ContextMap) Without(key string) ContextMap {
	i := sort.SearchStrings(c.keys, key)
	if i >= len(c.keys) || c.keys[i] != key {
		return c
	}
	keys := make([]string, 0, len(c.keys)-1)
	values := make([]string, 0, len(c.values)-1)
	keys = append(append(keys, c.keys[:i]...), c.keys[i+1:]...)
	values = append(append(values, c.values[:i]...), c.values[i+1:]...)
	return ContextMap{keys: keys, values: values}
}

// Fields holds the values used to construct an Event.
type Fields struct {
	Level        Level
	Marker       Marker
	LoggerName   string
	Message      Message
	Err          error
	GoroutineID  int64
	ThreadName   string
	Time         time.Time
	ContextMap   ContextMap
	ContextStack []string
}

// Event is an immutable snapshot of a log call. Only the rendered text of its
// message is computed lazily, exactly once, whichever goroutine asks first.
type Event struct {
	f   Fields
	seq uint64

	once      sync.Once
	text      string
	renderErr error
	rendered  atomic.Bool
}

var seq atomic.Uint64

// New creates an Event. A zero Time is replaced with the current time and a nil
// Message with an empty Text. The context stack is copied.
func New(f Fields) *Event {
	if f.Time.IsZero() {
		f.Time = time.Now()
	}
	if f.Message == nil {
		f.Message = Text("")
	}
	if len(f.ContextStack) > 0 {
		stack := make([]string, len(f.ContextStack))
		copy(stack, f.ContextStack)
		f.ContextStack = stack
	}
	return &Event{f: f, seq: seq.Add(1)}
}

func (e *Event) Level() Level           { return e.f.Level }
func (e *Event) Marker() Marker         { return e.f.Marker }
func (e *Event) LoggerName() string     { return e.f.LoggerName }
func (e *Event) Message() Message       { return e.f.Message }
func (e *Event) Err() error             { return e.f.Err }
func (e *Event) GoroutineID() int64     { return e.f.GoroutineID }
func (e *Event) ThreadName() string     { return e.f.ThreadName }
func (e *Event) Time() time.Time        { return e.f.Time }
func (e *Event) ContextMap() ContextMap { return e.f.ContextMap }
func (e *Event) ContextStack() []string { return e.f.ContextStack }

// Seq returns the monotonic admission sequence number.
func (e *Event) Seq() uint64 { return e.seq }

// Text renders the message once and caches the result. A message that
// panics while rendering is cached as "[render failed: <reason>]" and the
// failure is kept for RenderErr.
func (e *Event) Text() string {
	e.render(nil)
	return e.text
}

// RenderErr returns the failure recorded while rendering, if any.
func (e *Event) RenderErr() error {
	if !e.rendered.Load() {
		return nil
	}
	return e.renderErr
}

// IsRendered reports whether the message text has already been cached.
func (e *Event) IsRendered() bool { return e.rendered.Load() }

// AppendText renders the message if needed and appends the cached text to dst.
func (e *Event) AppendText(dst []byte) []byte {
	e.render(nil)
	return append(dst, e.text...)
}

// Freeze renders the message using buf as scratch space and returns buf
// reset to hold the cached text. Producers use it to format messages before
// they are queued and consumers to render into recycled buffers.
func (e *Event) Freeze(buf []byte) []byte {
	buf = e.render(buf[:0])
	return append(buf[:0], e.text...)
}

// render runs the message at most once. scratch receives the rendered bytes
// on the call that performs the rendering.
func (e *Event) render(scratch []byte) []byte {
	e.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				reason := fmt.Sprint(r)
				e.renderErr = errors.Errorf("render %s: %s", e, reason)
				e.text = "[render failed: " + reason + "]"
				scratch = scratch[:0]
			}
			e.rendered.Store(true)
		}()
		scratch = e.f.Message.AppendText(scratch)
		e.text = string(scratch)
	})
	return scratch
}

// String returns a short description used in diagnostics.
func (e *Event) String() string {
	return fmt.Sprintf("event#%d[%s %s]", e.seq, e.f.Level, e.f.LoggerName)
}

// Rendered is an event together with its rendered text. Text is only valid
// for the duration of a Sink.Deliver call; sinks must copy it to retain it.
type Rendered struct {
	Event *Event
	Text  []byte
}
