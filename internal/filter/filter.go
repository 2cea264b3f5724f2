// Package filter defines the Filter interface and the Composite filter chain
// used to admit events into the pipeline.
package filter

import (
	"strings"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/pkg/errors"
)

// Result is the outcome of a filter evaluation.
type Result int

const (
	// Neutral defers the decision to the next filter or the caller's default.
	Neutral Result = iota
	// Accept admits the event without consulting further filters.
	Accept
	// Deny rejects the event without consulting further filters.
	Deny
)

// String returns the string representation of a Result.
func (r Result) String() string {
	switch r {
	case Accept:
		return "ACCEPT"
	case Deny:
		return "DENY"
	default:
		return "NEUTRAL"
	}
}

// ParseResult converts a string to a Result. Case-insensitive.
func ParseResult(s string) (Result, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACCEPT":
		return Accept, nil
	case "DENY":
		return Deny, nil
	case "NEUTRAL":
		return Neutral, nil
	default:
		return Neutral, errors.Errorf("filter: unknown result %q", s)
	}
}

// Filter evaluates an event and returns a Result.
// Implementations are immutable after construction and safe for concurrent use.
type Filter interface {
	// Filter returns the verdict for the event.
	Filter(e *event.Event) Result

	// Name returns a human-readable description of this filter.
	Name() string
}

// Outcome is the onMatch/onMismatch pair shared by most filters.
type Outcome struct {
	OnMatch    Result
	OnMismatch Result
}

// OnMatchResult returns the result used when the filter matches.
func (o Outcome) OnMatchResult() Result { return o.OnMatch }

// OnMismatchResult returns the result used when the filter does not match.
func (o Outcome) OnMismatchResult() Result { return o.OnMismatch }

// DefaultOutcome is onMatch=NEUTRAL, onMismatch=DENY.
var DefaultOutcome = Outcome{OnMatch: Neutral, OnMismatch: Deny}

func (o Outcome) pick(match bool) Result {
	if match {
		return o.OnMatch
	}
	return o.OnMismatch
}

// Composite evaluates child filters in order and returns the first decisive
// Result. The child list is never modified after construction.
type Composite struct {
	filters []Filter
}

// NewComposite creates a Composite. Nil filters are skipped.
func NewComposite(filters ...Filter) *Composite {
	fs := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			fs = append(fs, f)
		}
	}
	return &Composite{filters: fs}
}

// With returns a new Composite with f appended. A nested Composite is flattened.
func (c *Composite) With(f Filter) *Composite {
	if f == nil {
		return c
	}
	fs := make([]Filter, 0, len(c.filters)+1)
	fs = append(fs, c.filters...)
	if inner, ok := f.(*Composite); ok {
		fs = append(fs, inner.filters...)
	} else {
		fs = append(fs, f)
	}
	return &Composite{filters: fs}
}

// Without returns a new Composite with the first occurrence of f removed.
func (c *Composite) Without(f Filter) *Composite {
	for i, existing := range c.filters {
		if existing == f {
			fs := make([]Filter, 0, len(c.filters)-1)
			fs = append(fs, c.filters[:i]...)
			fs = append(fs, c.filters[i+1:]...)
			return &Composite{filters: fs}
		}
	}
	return c
}

// Filter evaluates the chain. An empty chain returns Neutral.
func (c *Composite) Filter(e *event.Event) Result {
	for _, f := range c.filters {
		if r := f.Filter(e); r != Neutral {
			return r
		}
	}
	return Neutral
}

// Name returns a description of the chain.
func (c *Composite) Name() string {
	names := make([]string, len(c.filters))
	for i, f := range c.filters {
		names[i] = f.Name()
	}
	return "composite(" + strings.Join(names, ",") + ")"
}

// Len returns the number of filters in the chain.
func (c *Composite) Len() int {
	return len(c.filters)
}

// Filters returns a copy of the child filters.
func (c *Composite) Filters() []Filter {
	fs := make([]Filter, len(c.filters))
	copy(fs, c.filters)
	return fs
}
