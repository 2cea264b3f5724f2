package monitor

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/filter"
)

// AlertRule counts delivered events that a filter accepts.
type AlertRule struct {
	Name   string
	Filter filter.Filter
	count  atomic.Int64
}

// Count returns how many times the rule fired.
func (r *AlertRule) Count() int64 { return r.count.Load() }

// AlertEngine evaluates delivered events against a set of alert rules.
type AlertEngine struct {
	rules []*AlertRule
}

// NewAlertEngine creates an engine over rules. Rules without a filter are
// ignored.
func NewAlertEngine(rules ...*AlertRule) *AlertEngine {
	e := &AlertEngine{}
	for _, r := range rules {
		if r != nil && r.Filter != nil {
			if r.Name == "" {
				r.Name = r.Filter.Name()
			}
			e.rules = append(e.rules, r)
		}
	}
	return e
}

// Check evaluates ev against every rule and returns the names that fired.
func (e *AlertEngine) Check(ev *event.Event) []string {
	var fired []string
	for _, r := range e.rules {
		if r.Filter.Filter(ev) == filter.Accept {
			r.count.Add(1)
			fired = append(fired, r.Name)
		}
	}
	return fired
}

// Rules returns the configured rules.
func (e *AlertEngine) Rules() []*AlertRule { return e.rules }

// Summary returns a formatted summary of alert counts.
func (e *AlertEngine) Summary() string {
	if len(e.rules) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("── Alerts ──\n")
	for _, r := range e.rules {
		fmt.Fprintf(&sb, "  %-30s %d hits\n", r.Name, r.Count())
	}
	sb.WriteString("────────────")
	return sb.String()
}

// TotalAlerts returns the total number of alerts fired.
func (e *AlertEngine) TotalAlerts() int64 {
	var total int64
	for _, r := range e.rules {
		total += r.Count()
	}
	return total
}
