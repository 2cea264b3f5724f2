package sink

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
)

// color ANSI escape codes.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// TerminalSink writes one line per event with optional ANSI color:
//
//	[time][logger][LEVEL] {marker} (k=v ...) message: error
//
// It is safe for concurrent use.
type TerminalSink struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
	line  []byte
}

// NewTerminalSink creates a sink that writes to the given writer.
// If color is true, output will include ANSI color codes based on log level.
func NewTerminalSink(w io.Writer, color bool) *TerminalSink {
	if w == nil {
		w = os.Stdout
	}
	return &TerminalSink{w: w, color: color}
}

// Deliver writes a formatted event line.
func (s *TerminalSink) Deliver(r *event.Rendered) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := r.Event
	b := s.line[:0]
	if s.color {
		b = append(b, colorGray...)
	}
	b = append(b, '[')
	b = e.Time().AppendFormat(b, time.RFC3339)
	b = append(b, ']')
	if s.color {
		b = append(b, colorReset...)
	}
	if name := e.LoggerName(); name != "" {
		b = append(b, '[')
		b = append(b, name...)
		b = append(b, ']')
	}
	if !e.Level().IsZero() {
		if s.color {
			b = append(b, levelColor(e.Level())...)
		}
		b = append(b, '[')
		b = append(b, e.Level().String()...)
		b = append(b, ']')
		if s.color {
			b = append(b, colorReset...)
		}
	}
	b = append(b, ':')
	if m := e.Marker(); !m.IsZero() {
		b = append(b, " {"...)
		b = append(b, m.Name()...)
		b = append(b, '}')
	}
	if ctx := e.ContextMap(); ctx.Len() > 0 {
		b = append(b, " ("...)
		first := true
		ctx.Range(func(k, v string) bool {
			if !first {
				b = append(b, ' ')
			}
			first = false
			b = append(b, k...)
			b = append(b, '=')
			b = append(b, v...)
			return true
		})
		b = append(b, ')')
	}
	b = append(b, ' ')
	b = append(b, r.Text...)
	if err := e.Err(); err != nil {
		b = append(b, ": "...)
		b = append(b, err.Error()...)
	}
	b = append(b, '\n')
	s.line = b

	_, err := s.w.Write(b)
	return err
}

// Flush is a no-op for terminal output.
func (s *TerminalSink) Flush() error { return nil }

// Close is a no-op for terminal output.
func (s *TerminalSink) Close() error { return nil }

// Name returns the sink identifier.
func (s *TerminalSink) Name() string { return "terminal" }

func levelColor(l event.Level) string {
	switch {
	case l.IsAtLeastAsSpecific(event.LevelError):
		return colorBold + colorRed
	case l == event.LevelWarn:
		return colorYellow
	case l.IsLessSpecific(event.LevelDebug):
		return colorGray
	default:
		return colorCyan
	}
}
