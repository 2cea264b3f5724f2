package tui

import (
	"context"
	"sync"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/monitor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

// Dashboard is a sink that forwards delivered events to the interactive
// dashboard. Events delivered before Run or after the dashboard exits are
// dropped.
type Dashboard struct {
	title  string
	rate   *monitor.RateDetector
	alerts *monitor.AlertEngine

	mu      sync.RWMutex
	program *tea.Program
	opts    []tea.ProgramOption
}

// NewDashboard creates a dashboard sink. rate and alerts may be nil.
func NewDashboard(title string, rate *monitor.RateDetector, alerts *monitor.AlertEngine, opts ...tea.ProgramOption) *Dashboard {
	if rate == nil {
		rate = monitor.NewRateDetector(10*time.Second, 3)
	}
	return &Dashboard{title: title, rate: rate, alerts: alerts, opts: opts}
}

// Deliver copies the rendered event and sends it to the dashboard.
func (d *Dashboard) Deliver(r *event.Rendered) error {
	d.mu.RLock()
	p := d.program
	d.mu.RUnlock()
	if p == nil {
		return nil
	}

	ev := r.Event
	line := Line{
		Time:   ev.Time(),
		Level:  ev.Level(),
		Logger: ev.LoggerName(),
		Thread: ev.ThreadName(),
		Text:   string(r.Text),
	}

	if d.rate.Record(1) {
		p.Send(SpikeMsg{Rate: d.rate.CurrentRate()})
	}
	if d.alerts != nil {
		if fired := d.alerts.Check(ev); len(fired) > 0 {
			p.Send(AlertMsg{Rules: fired, Line: line})
		}
	}
	p.Send(LogMsg(line))
	return nil
}

// Flush is a no-op; the dashboard renders on its own tick.
func (d *Dashboard) Flush() error { return nil }

// Close is a no-op; Run owns the program lifecycle.
func (d *Dashboard) Close() error { return nil }

// Name returns "dashboard".
func (d *Dashboard) Name() string { return "dashboard" }

// Run shows the dashboard and calls feed in the background. feed typically
// starts a pipeline whose sink is d and pumps a source into it; its context is
// cancelled when the user quits. Run blocks until the dashboard exits and feed
// has returned.
func (d *Dashboard) Run(ctx context.Context, stats *monitor.Stats, feed func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(d.title, stats, d.rate, d.alerts)
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, d.opts...)
	program := tea.NewProgram(model, opts...)

	d.mu.Lock()
	d.program = program
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.program = nil
		d.mu.Unlock()
	}()

	var feedErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		feedErr = feed(ctx)
		program.Send(DoneMsg{})
	}()

	_, err := program.Run()

	// Stop the feed and wait for it before reporting.
	cancel()
	<-done

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "tui: run dashboard")
	}
	if feedErr != nil && !errors.Is(feedErr, context.Canceled) {
		return feedErr
	}
	return nil
}
