package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/filter"
	"github.com/Geun-Oh/lxpipe/internal/logctx"
	"github.com/Geun-Oh/lxpipe/internal/pipeline"
	"github.com/Geun-Oh/lxpipe/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu     sync.Mutex
	events []*event.Event
	err    error
}

func (c *capture) Submit(e *event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *capture) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Text()
	}
	return out
}

func TestLogCapturesContext(t *testing.T) {
	c := &capture{}
	l, err := New("app", c)
	require.NoError(t, err)

	ctx := logctx.With(context.Background(), "user", "ann")
	ctx = logctx.Push(ctx, "checkout")
	ctx = logctx.WithThreadName(ctx, "worker-3")

	cause := errors.New("card declined")
	require.NoError(t, l.Logf(ctx, event.LevelWarn, "order {} failed", 42, cause))

	require.Len(t, c.events, 1)
	e := c.events[0]
	assert.Equal(t, "app", e.LoggerName())
	assert.Equal(t, event.LevelWarn, e.Level())
	assert.Equal(t, "order 42 failed", e.Text())
	assert.Equal(t, cause, e.Err())
	assert.Equal(t, "worker-3", e.ThreadName())
	assert.Equal(t, []string{"checkout"}, e.ContextStack())
	v, ok := e.ContextMap().Get("user")
	assert.True(t, ok)
	assert.Equal(t, "ann", v)
	assert.NotZero(t, e.GoroutineID())
}

func TestLevelGate(t *testing.T) {
	c := &capture{}
	l, err := New("app", c, WithLevel(event.LevelInfo))
	require.NoError(t, err)

	ctx := context.Background()
	l.Debug(ctx, "hidden")
	l.Info(ctx, "shown")
	l.Error(ctx, "also shown")
	assert.Equal(t, []string{"shown", "also shown"}, c.texts())
	assert.False(t, l.Enabled(event.LevelTrace))
}

func TestFiltersOverrideLevel(t *testing.T) {
	markers := event.NewMarkers()
	audit := markers.Get("AUDIT")

	acceptAudit, err := filter.NewMarker("AUDIT", filter.Outcome{OnMatch: filter.Accept, OnMismatch: filter.Neutral})
	require.NoError(t, err)
	denyNoisy, err := filter.NewStringMatch("noisy", filter.Outcome{OnMatch: filter.Deny, OnMismatch: filter.Neutral})
	require.NoError(t, err)

	c := &capture{}
	l, err := New("app", c, WithLevel(event.LevelWarn), WithFilters(filter.NewComposite(acceptAudit, denyNoisy)))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Log(ctx, event.LevelDebug, audit, event.Text("audited debug"), nil))
	require.NoError(t, l.Log(ctx, event.LevelError, event.Marker{}, event.Text("noisy error"), nil))
	require.NoError(t, l.Log(ctx, event.LevelDebug, event.Marker{}, event.Text("plain debug"), nil))
	require.NoError(t, l.Log(ctx, event.LevelError, event.Marker{}, event.Text("plain error"), nil))

	assert.Equal(t, []string{"audited debug", "plain error"}, c.texts())
}

func TestFormatsAtAdmissionByDefault(t *testing.T) {
	calls := 0
	msg := event.Lazy(func() string { calls++; return "lazy" })

	c := &capture{}
	l, err := New("app", c)
	require.NoError(t, err)
	require.NoError(t, l.Log(context.Background(), event.LevelInfo, event.Marker{}, msg, nil))
	assert.True(t, c.events[0].IsRendered())
	assert.Equal(t, 1, calls)

	async, err := New("app", c, WithFormatAsync(true))
	require.NoError(t, err)
	require.NoError(t, async.Log(context.Background(), event.LevelInfo, event.Marker{}, msg, nil))
	assert.False(t, c.events[1].IsRendered())
	assert.Equal(t, 1, calls)
}

func TestPanickingMessageIsCachedAsFailure(t *testing.T) {
	c := &capture{}
	l, err := New("app", c)
	require.NoError(t, err)
	calls := 0
	msg := event.Lazy(func() string { calls++; panic("nope") })
	require.NoError(t, l.Log(context.Background(), event.LevelInfo, event.Marker{}, msg, nil))

	e := c.events[0]
	assert.True(t, e.IsRendered())
	assert.Equal(t, "[render failed: nope]", e.Text())
	assert.Error(t, e.RenderErr())
	assert.Equal(t, 1, calls)
}

func TestLogMapAndSubmitError(t *testing.T) {
	c := &capture{err: pipeline.ErrStopped}
	l, err := New("app", c)
	require.NoError(t, err)
	assert.ErrorIs(t, l.LogMap(context.Background(), event.LevelInfo, "k", "v"), pipeline.ErrStopped)
	assert.Equal(t, []string{`k="v"`}, c.texts())

	_, err = New("app", nil)
	assert.Error(t, err)
}

func TestConsumerSideLoggingThroughPipeline(t *testing.T) {
	mem := sink.NewMemorySink()
	p, err := pipeline.New(pipeline.Config{Capacity: 1, Sink: mem})
	require.NoError(t, err)
	l, err := New("app", p, WithFormatAsync(true))
	require.NoError(t, err)

	// rendering logs again from the consumer goroutine
	var once sync.Once
	msg := event.Lazy(func() string {
		once.Do(func() {
			for i := 0; i < 3; i++ {
				l.Info(context.Background(), "inner {}", i)
			}
		})
		return "outer"
	})

	require.NoError(t, p.Start())
	require.NoError(t, l.Log(context.Background(), event.LevelInfo, event.Marker{}, msg, nil))
	require.True(t, mem.WaitFor(4, 5*time.Second), "consumer must not deadlock on its own queue")

	_, err = p.Stop(5 * time.Second)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"inner 0", "inner 1", "inner 2", "outer"}, mem.Texts())
}
