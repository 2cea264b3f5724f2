// Package logger is the producer side of the pipeline: it snapshots log
// calls into events, admits them through a filter chain and submits them.
package logger

import (
	"context"
	"strings"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/buffer"
	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/filter"
	"github.com/Geun-Oh/lxpipe/internal/logctx"
	"github.com/Geun-Oh/lxpipe/internal/recycler"
	"github.com/petermattis/goid"
	"github.com/pkg/errors"
)

// Submitter accepts admitted events. *pipeline.Pipeline implements it.
type Submitter interface {
	Submit(e *event.Event) error
}

// Logger admits events for one named logger.
type Logger struct {
	name        string
	out         Submitter
	filters     *filter.Composite
	level       event.Level
	formatAsync bool
	text        recycler.Recycler[*buffer.Text]
	now         func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithFilters sets the admission filter chain.
func WithFilters(c *filter.Composite) Option {
	return func(l *Logger) { l.filters = c }
}

// WithLevel sets the least specific level admitted when the filters are
// neutral. The default is event.LevelAll.
func WithLevel(level event.Level) Option {
	return func(l *Logger) { l.level = level }
}

// WithFormatAsync defers message rendering to the pipeline consumer.
// By default messages are rendered on the calling goroutine at admission.
func WithFormatAsync(async bool) Option {
	return func(l *Logger) { l.formatAsync = async }
}

// WithRecycler selects how admission-time text buffers are pooled.
func WithRecycler(r recycler.Recycler[*buffer.Text]) Option {
	return func(l *Logger) { l.text = r }
}

// New creates a logger submitting to out.
func New(name string, out Submitter, opts ...Option) (*Logger, error) {
	if out == nil {
		return nil, errors.Errorf("logger %q: submitter is required", name)
	}
	l := &Logger{name: name, out: out, level: event.LevelAll, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.text == nil {
		r, err := recycler.New(recycler.Strategy{Kind: recycler.KindThreadLocal}, buffer.New, buffer.Cleaner(0))
		if err != nil {
			return nil, errors.Wrapf(err, "logger %q", name)
		}
		l.text = r
	}
	return l, nil
}

// Name returns the logger name.
func (l *Logger) Name() string { return l.name }

// Enabled reports whether level passes the logger's level, ignoring filters.
func (l *Logger) Enabled(level event.Level) bool {
	return level.IsAtLeastAsSpecific(l.level)
}

// Log admits one event. It returns nil when the event was filtered out and
// the pipeline's error when submission failed.
func (l *Logger) Log(ctx context.Context, level event.Level, marker event.Marker, msg event.Message, err error) error {
	if l.filters == nil || l.filters.Len() == 0 {
		if !l.Enabled(level) {
			return nil
		}
	}

	e := event.New(event.Fields{
		Level:        level,
		Marker:       marker,
		LoggerName:   l.name,
		Message:      msg,
		Err:          err,
		GoroutineID:  goid.Get(),
		ThreadName:   logctx.ThreadName(ctx),
		Time:         l.now(),
		ContextMap:   logctx.Map(ctx),
		ContextStack: logctx.Stack(ctx),
	})

	if l.filters != nil {
		switch l.admit(e) {
		case filter.Deny:
			return nil
		case filter.Neutral:
			if !l.Enabled(level) {
				return nil
			}
		}
	}

	if !l.formatAsync {
		l.freeze(e)
	}
	return l.out.Submit(e)
}

// admit evaluates the filter chain. A filter that panics counts as neutral.
func (l *Logger) admit(e *event.Event) (r filter.Result) {
	defer func() {
		if recover() != nil {
			r = filter.Neutral
		}
	}()
	return l.filters.Filter(e)
}

// freeze renders the message on the calling goroutine. A message that
// panics is cached as a failure for the consumer to report.
func (l *Logger) freeze(e *event.Event) {
	buf := l.text.Acquire()
	defer l.text.Release(buf)
	buf.B = e.Freeze(buf.B)
}

// Logf logs a parameterized message with {} placeholders. A trailing error
// argument not consumed by a placeholder becomes the event error.
func (l *Logger) Logf(ctx context.Context, level event.Level, format string, args ...any) error {
	var err error
	if n := len(args); n > 0 && strings.Count(format, "{}") < n {
		if e, ok := args[n-1].(error); ok {
			err = e
			args = args[:n-1]
		}
	}
	return l.Log(ctx, level, event.Marker{}, event.NewParameterized(format, args...), err)
}

// LogMap logs a structured message from alternating keys and values.
func (l *Logger) LogMap(ctx context.Context, level event.Level, kv ...string) error {
	return l.Log(ctx, level, event.Marker{}, event.NewMap(kv...), nil)
}

// Trace logs at TRACE.
func (l *Logger) Trace(ctx context.Context, format string, args ...any) {
	_ = l.Logf(ctx, event.LevelTrace, format, args...)
}

// Debug logs at DEBUG.
func (l *Logger) Debug(ctx context.Context, format string, args ...any) {
	_ = l.Logf(ctx, event.LevelDebug, format, args...)
}

// Info logs at INFO.
func (l *Logger) Info(ctx context.Context, format string, args ...any) {
	_ = l.Logf(ctx, event.LevelInfo, format, args...)
}

// Warn logs at WARN.
func (l *Logger) Warn(ctx context.Context, format string, args ...any) {
	_ = l.Logf(ctx, event.LevelWarn, format, args...)
}

// Error logs at ERROR.
func (l *Logger) Error(ctx context.Context, format string, args ...any) {
	_ = l.Logf(ctx, event.LevelError, format, args...)
}

// Fatal logs at FATAL. It does not exit the process.
func (l *Logger) Fatal(ctx context.Context, format string, args ...any) {
	_ = l.Logf(ctx, event.LevelFatal, format, args...)
}
