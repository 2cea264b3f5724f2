package sink

import (
	"io"
	"os"
	"sync"

	"github.com/Geun-Oh/lxpipe/internal/event"
	jsoniter "github.com/json-iterator/go"
)

const jsonTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// fieldSource is implemented by structured messages.
type fieldSource interface {
	Keys() []string
	Get(key string) (string, bool)
}

// JSONSink writes events as JSON Lines (one JSON object per line):
//
//	{"timestamp":..,"level":..,"logger":..,"thread":..,"marker":..,
//	 "message":..,"fields":{..},"context":{..},"stack":[..],"error":..}
//
// Empty members are omitted. It is safe for concurrent use.
type JSONSink struct {
	mu     sync.Mutex
	stream *jsoniter.Stream
}

// NewJSONSink creates a JSON Lines sink writing to the given writer.
func NewJSONSink(w io.Writer) *JSONSink {
	if w == nil {
		w = os.Stdout
	}
	return &JSONSink{stream: jsoniter.NewStream(jsoniter.ConfigFastest, w, 512)}
}

// Deliver serializes an event as a single JSON line.
func (s *JSONSink) Deliver(r *event.Rendered) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := r.Event
	st := s.stream
	st.WriteObjectStart()
	st.WriteObjectField("timestamp")
	st.WriteString(e.Time().Format(jsonTimeLayout))
	if !e.Level().IsZero() {
		st.WriteMore()
		st.WriteObjectField("level")
		st.WriteString(e.Level().String())
	}
	writeOptional(st, "logger", e.LoggerName())
	writeOptional(st, "thread", e.ThreadName())
	if m := e.Marker(); !m.IsZero() {
		writeOptional(st, "marker", m.Name())
	}
	st.WriteMore()
	st.WriteObjectField("message")
	st.WriteString(string(r.Text))

	if fs, ok := e.Message().(fieldSource); ok && len(fs.Keys()) > 0 {
		st.WriteMore()
		st.WriteObjectField("fields")
		st.WriteObjectStart()
		for i, k := range fs.Keys() {
			if i > 0 {
				st.WriteMore()
			}
			v, _ := fs.Get(k)
			st.WriteObjectField(k)
			st.WriteString(v)
		}
		st.WriteObjectEnd()
	}
	if ctx := e.ContextMap(); ctx.Len() > 0 {
		st.WriteMore()
		st.WriteObjectField("context")
		st.WriteObjectStart()
		first := true
		ctx.Range(func(k, v string) bool {
			if !first {
				st.WriteMore()
			}
			first = false
			st.WriteObjectField(k)
			st.WriteString(v)
			return true
		})
		st.WriteObjectEnd()
	}
	if stack := e.ContextStack(); len(stack) > 0 {
		st.WriteMore()
		st.WriteObjectField("stack")
		st.WriteVal(stack)
	}
	if err := e.Err(); err != nil {
		writeOptional(st, "error", err.Error())
	}
	st.WriteObjectEnd()
	st.WriteRaw("\n")

	err := st.Flush()
	if err != nil {
		// drop the failed line so later events start clean
		st.Error = nil
		st.SetBuffer(st.Buffer()[:0])
	}
	return err
}

func writeOptional(st *jsoniter.Stream, field, v string) {
	if v == "" {
		return
	}
	st.WriteMore()
	st.WriteObjectField(field)
	st.WriteString(v)
}

// Flush writes any buffered bytes.
func (s *JSONSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.Flush()
}

// Close flushes the sink.
func (s *JSONSink) Close() error { return s.Flush() }

// Name returns the sink identifier.
func (s *JSONSink) Name() string { return "json" }
