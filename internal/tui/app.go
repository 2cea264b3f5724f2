// Package tui provides an interactive terminal dashboard that receives
// delivered events as a pipeline sink and shows live pipeline counters.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/monitor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#353533"))

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6600")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	// levelStyles is indexed by severity band, see band.
	levelStyles = [...]lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#44AAFF")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")).Bold(true),
	}
)

// floors are the minimum levels the dashboard cycles through; the zero
// Level shows everything, including lines without a level.
var floors = []event.Level{{}, event.LevelDebug, event.LevelInfo, event.LevelWarn, event.LevelError}

// Line is the dashboard's copy of a delivered event.
type Line struct {
	Time   time.Time
	Level  event.Level
	Logger string
	Thread string
	Text   string
}

// LogMsg delivers an event to the TUI.
type LogMsg Line

// AlertMsg notifies the TUI that an alert was triggered.
type AlertMsg struct {
	Rules []string
	Line  Line
}

// SpikeMsg notifies the TUI that a rate spike was detected.
type SpikeMsg struct {
	Rate float64
}

// TickMsg triggers periodic redraws of the counters.
type TickMsg time.Time

// DoneMsg signals the feed has finished.
type DoneMsg struct{}

// Model is the bubbletea model for the dashboard.
type Model struct {
	lines    []Line
	held     []Line // received while paused
	maxLines int
	width    int
	height   int
	offset   int // lines scrolled up from the newest
	paused   bool
	floor    int // index into floors

	Stats  *monitor.Stats
	Rate   *monitor.RateDetector
	Alerts *monitor.AlertEngine
	Title  string

	lastAlert  string
	alertFlash int

	errorCount int
	warnCount  int
	totalCount int

	done bool
}

// NewModel creates a dashboard model. stats, rate and alerts may be nil.
func NewModel(title string, stats *monitor.Stats, rate *monitor.RateDetector, alerts *monitor.AlertEngine) Model {
	if rate == nil {
		rate = monitor.NewRateDetector(10*time.Second, 3)
	}
	return Model{maxLines: 1000, Stats: stats, Rate: rate, Alerts: alerts, Title: title}
}

// Init starts the redraw ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.WindowSize())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return m.handleKey(msg)
	case LogMsg:
		m.add(Line(msg))
	case AlertMsg:
		m.lastAlert = fmt.Sprintf("⚠ ALERT [%s]: %s", strings.Join(msg.Rules, ","), truncate(msg.Line.Text, 60))
		m.alertFlash = 10
	case SpikeMsg:
		m.lastAlert = fmt.Sprintf("📈 SPIKE: %.0f events/s", msg.Rate)
		m.alertFlash = 8
	case TickMsg:
		if m.alertFlash > 0 {
			m.alertFlash--
		}
		return m, tickCmd()
	case DoneMsg:
		m.done = true
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "p":
		m.paused = !m.paused
		if !m.paused {
			m.lines = append(m.lines, m.held...)
			m.held = nil
			m.trim()
		}
	case "l":
		m.floor = (m.floor + 1) % len(floors)
		m.offset = 0
	case "up", "k":
		m.offset++
	case "down", "j":
		if m.offset > 0 {
			m.offset--
		}
	case "g":
		m.offset = 0
	}
	return m, nil
}

func (m *Model) add(l Line) {
	m.totalCount++
	switch band(l.Level) {
	case 4:
		m.errorCount++
	case 3:
		m.warnCount++
	}
	if m.paused {
		m.held = append(m.held, l)
		return
	}
	m.lines = append(m.lines, l)
	m.trim()
}

func (m *Model) trim() {
	if excess := len(m.lines) - m.maxLines; excess > 0 {
		m.lines = m.lines[excess:]
	}
}

// shown reports whether l passes the current level floor.
func (m *Model) shown(l Line) bool {
	floor := floors[m.floor]
	if floor.IsZero() {
		return true
	}
	return !l.Level.IsZero() && l.Level.IsAtLeastAsSpecific(floor)
}

// visible returns up to height lines passing the floor, newest last, after
// skipping offset newer lines.
func (m *Model) visible(height int) []Line {
	out := make([]Line, 0, height)
	skip := m.offset
	for i := len(m.lines) - 1; i >= 0 && len(out) < height; i-- {
		if !m.shown(m.lines[i]) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, m.lines[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// View renders the dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	var sb strings.Builder

	state := "▶ RUNNING"
	switch {
	case m.done:
		state = "✔ DONE"
	case m.paused:
		state = "⏸ PAUSED"
	}
	title := titleStyle.Render(fmt.Sprintf("lxpipe watch: %s", m.Title))
	right := barStyle.Render(fmt.Sprintf(" %s  %d events ", state, m.totalCount))
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(right), 0)
	sb.WriteString(title + barStyle.Render(strings.Repeat(" ", gap)) + right + "\n")

	header := 1
	if m.alertFlash > 0 && m.lastAlert != "" {
		sb.WriteString(alertStyle.Render(m.lastAlert) + "\n")
		header++
	}

	rows := max(m.height-header-3, 1)
	shown := m.visible(rows)
	for _, l := range shown {
		sb.WriteString(m.formatLine(l) + "\n")
	}
	sb.WriteString(strings.Repeat("\n", rows-len(shown)))

	sb.WriteString(barStyle.Render(padRight(m.pipelineLine(), m.width)) + "\n")
	sb.WriteString(barStyle.Render(padRight(m.statsLine(), m.width)) + "\n")

	help := " [l]Level  [p]Pause  [↑↓]Scroll  [g]Newest  [q]Quit"
	if m.paused {
		help += fmt.Sprintf("  (held: %d)", len(m.held))
	}
	sb.WriteString(helpStyle.Render(help))
	return sb.String()
}

// band maps a level to a severity band: 0 none, 1 debug and below, 2 info,
// 3 warn, 4 error and above.
func band(l event.Level) int {
	switch {
	case l.IsZero():
		return 0
	case l.IsAtLeastAsSpecific(event.LevelError):
		return 4
	case l.IsAtLeastAsSpecific(event.LevelWarn):
		return 3
	case l.IsAtLeastAsSpecific(event.LevelInfo):
		return 2
	default:
		return 1
	}
}

func (m *Model) formatLine(l Line) string {
	origin := l.Logger
	if l.Thread != "" {
		origin += "/" + l.Thread
	}
	level := ""
	if !l.Level.IsZero() {
		level = l.Level.String() + " "
	}
	text := truncate(l.Text, m.width-25)
	return levelStyles[band(l.Level)].Render(fmt.Sprintf("%s [%s] %s%s", l.Time.Format("15:04:05"), origin, level, text))
}

// pipelineLine summarizes the pipeline counters.
func (m *Model) pipelineLine() string {
	if m.Stats == nil {
		return " Pipeline: n/a"
	}
	snap := m.Stats.Snapshot()
	return fmt.Sprintf(" Queue: %d │ Submitted: %d │ Delivered: %d │ Discarded: %d │ Out of order: %d │ Lost: %d",
		snap.Depth, snap.Submitted, snap.Delivered, snap.Discarded, snap.Bypassed, snap.Lost)
}

func (m *Model) statsLine() string {
	rate := m.Rate.CurrentRate()
	s := fmt.Sprintf(" Rate: %s %.0f/s │ ERR: %d │ WARN: %d │ Total: %d",
		rateBar(rate, 10), rate, m.errorCount, m.warnCount, m.totalCount)
	if floor := floors[m.floor]; !floor.IsZero() {
		s += " │ Level ≥ " + floor.String()
	}
	if m.Alerts != nil && m.Alerts.TotalAlerts() > 0 {
		s += fmt.Sprintf(" │ Alerts: %d", m.Alerts.TotalAlerts())
	}
	if m.offset > 0 {
		s += fmt.Sprintf(" │ ↑ %d", m.offset)
	}
	return s
}

// rateBar draws rate against a 200 events/s full scale.
func rateBar(rate float64, width int) string {
	filled := min(int(rate/200*float64(width)), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
