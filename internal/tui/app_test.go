package tui

import (
	"testing"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/monitor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func logMsg(level event.Level, text string) LogMsg {
	return LogMsg{
		Time:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Level:  level,
		Logger: "app",
		Thread: "stdout",
		Text:   text,
	}
}

func TestModelCountsLevels(t *testing.T) {
	m := NewModel("test", nil, nil, nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 20})

	m = update(t, m, logMsg(event.LevelError, "disk full"))
	m = update(t, m, logMsg(event.LevelFatal, "gone"))
	m = update(t, m, logMsg(event.LevelWarn, "slow"))
	m = update(t, m, logMsg(event.LevelInfo, "ok"))
	m = update(t, m, logMsg(event.Level{}, "plain"))

	assert.Equal(t, 5, m.totalCount)
	assert.Equal(t, 2, m.errorCount)
	assert.Equal(t, 1, m.warnCount)
	require.Len(t, m.lines, 5)
	assert.Contains(t, m.formatLine(m.lines[0]), "[app/stdout] ERROR disk full")
	assert.Contains(t, m.formatLine(m.lines[4]), "[app/stdout] plain")

	view := m.View()
	assert.Contains(t, view, "lxpipe watch: test")
	assert.Contains(t, view, "slow")
	assert.Contains(t, view, "Pipeline: n/a")
	assert.Contains(t, view, "ERR: 2")
}

func TestModelPauseQueuesLines(t *testing.T) {
	m := NewModel("test", nil, nil, nil)
	m = update(t, m, key("p"))
	require.True(t, m.paused)

	m = update(t, m, logMsg(event.LevelInfo, "one"))
	m = update(t, m, logMsg(event.LevelInfo, "two"))
	assert.Empty(t, m.lines)
	assert.Len(t, m.held, 2)
	assert.Equal(t, 2, m.totalCount)

	m = update(t, m, key("p"))
	assert.False(t, m.paused)
	assert.Len(t, m.lines, 2)
	assert.Empty(t, m.held)
}

func texts(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

func TestModelLevelFloorCycles(t *testing.T) {
	m := NewModel("test", nil, nil, nil)
	m = update(t, m, logMsg(event.LevelDebug, "noisy"))
	m = update(t, m, logMsg(event.LevelInfo, "ok"))
	m = update(t, m, logMsg(event.Level{}, "plain"))
	m = update(t, m, logMsg(event.LevelWarn, "slow"))
	m = update(t, m, logMsg(event.LevelError, "broken"))

	assert.Equal(t, []string{"noisy", "ok", "plain", "slow", "broken"}, texts(m.visible(10)))

	want := [][]string{
		{"noisy", "ok", "slow", "broken"},
		{"ok", "slow", "broken"},
		{"slow", "broken"},
		{"broken"},
		{"noisy", "ok", "plain", "slow", "broken"},
	}
	for _, w := range want {
		m = update(t, m, key("l"))
		assert.Equal(t, w, texts(m.visible(10)))
	}
}

func TestModelScrollSkipsNewestShownLines(t *testing.T) {
	m := NewModel("test", nil, nil, nil)
	for _, text := range []string{"a", "b", "c", "d"} {
		m = update(t, m, logMsg(event.LevelInfo, text))
	}
	assert.Equal(t, []string{"c", "d"}, texts(m.visible(2)))

	m = update(t, m, key("k"))
	assert.Equal(t, []string{"b", "c"}, texts(m.visible(2)))
	m = update(t, m, key("j"))
	m = update(t, m, key("j"))
	assert.Zero(t, m.offset)

	m = update(t, m, key("k"))
	m = update(t, m, key("l"))
	assert.Zero(t, m.offset)
}

func TestModelTrimsToMaxLines(t *testing.T) {
	m := NewModel("test", nil, nil, nil)
	m.maxLines = 3
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		m = update(t, m, logMsg(event.LevelInfo, text))
	}
	require.Len(t, m.lines, 3)
	assert.Equal(t, "c", m.lines[0].Text)
}

func TestModelShowsPipelineCounters(t *testing.T) {
	stats := monitor.NewStats("p", func() int { return 7 })
	stats.RecordSubmitted()
	stats.RecordDelivered()
	stats.RecordDiscarded()
	stats.RecordBypassed()
	stats.RecordLost(2)

	m := NewModel("test", stats, nil, nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 10})

	view := m.View()
	assert.Contains(t, view, "Queue: 7")
	assert.Contains(t, view, "Discarded: 1")
	assert.Contains(t, view, "Out of order: 1")
	assert.Contains(t, view, "Lost: 2")
}

func TestModelAlertFlashExpires(t *testing.T) {
	m := NewModel("test", nil, nil, nil)
	m = update(t, m, AlertMsg{Rules: []string{"errors"}, Line: Line{Text: "boom"}})
	assert.Equal(t, "⚠ ALERT [errors]: boom", m.lastAlert)
	assert.Equal(t, 10, m.alertFlash)

	for i := 0; i < 10; i++ {
		m = update(t, m, TickMsg(time.Now()))
	}
	assert.Zero(t, m.alertFlash)
}

func TestDashboardDropsBeforeRun(t *testing.T) {
	d := NewDashboard("test", nil, nil)
	ev := event.New(event.Fields{Level: event.LevelInfo, LoggerName: "app", Message: event.Text("hi")})
	require.NoError(t, d.Deliver(&event.Rendered{Event: ev, Text: []byte("hi")}))
	assert.Equal(t, "dashboard", d.Name())
	assert.NoError(t, d.Flush())
	assert.NoError(t, d.Close())
}

func TestTruncateAndPad(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
	assert.Equal(t, "ab  ", padRight("ab", 4))
	assert.Equal(t, "abcd", padRight("abcd", 2))
}
