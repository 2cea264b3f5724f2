package filter

import (
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/pkg/errors"
)

const (
	hourMS   = int64(3600000)
	minuteMS = int64(60000)
	secondMS = int64(1000)
	dayMS    = 24 * hourMS
)

// TimeFilter matches events whose wall-clock time of day falls in [start, end).
// The time of day is the apparent clock reading in the configured zone, so a
// daylight saving jump shifts the window with the wall clock.
type TimeFilter struct {
	Outcome
	start int64
	end   int64
	loc   *time.Location
}

// NewTime creates a time window filter. start and end use the "15:04:05"
// layout; an empty start means midnight and an empty end means end of day.
// A nil loc means UTC. When end is before start the window wraps midnight.
func NewTime(start, end string, loc *time.Location, o Outcome) (*TimeFilter, error) {
	s, err := parseClock(start, 0)
	if err != nil {
		return nil, errors.Wrap(err, "time filter: start")
	}
	e, err := parseClock(end, dayMS)
	if err != nil {
		return nil, errors.Wrap(err, "time filter: end")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TimeFilter{Outcome: o, start: s, end: e, loc: loc}, nil
}

func parseClock(s string, def int64) (int64, error) {
	if s == "" {
		return def, nil
	}
	t, err := time.Parse(time.TimeOnly, s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid time %q", s)
	}
	return int64(t.Hour())*hourMS + int64(t.Minute())*minuteMS + int64(t.Second())*secondMS, nil
}

// Offset returns the apparent milliseconds since midnight of t in the filter's zone.
func (f *TimeFilter) Offset(t time.Time) int64 {
	t = t.In(f.loc)
	return int64(t.Hour())*hourMS +
		int64(t.Minute())*minuteMS +
		int64(t.Second())*secondMS +
		int64(t.Nanosecond()/int(time.Millisecond))
}

// Filter returns onMatch when the event time lies inside the window.
func (f *TimeFilter) Filter(e *event.Event) Result {
	off := f.Offset(e.Time())
	if f.start <= f.end {
		return f.pick(f.start <= off && off < f.end)
	}
	return f.pick(off >= f.start || off < f.end)
}

// Name returns the filter description.
func (f *TimeFilter) Name() string {
	return "time:" + clock(f.start) + "-" + clock(f.end) + "@" + f.loc.String()
}

func clock(ms int64) string {
	return time.Unix(0, 0).UTC().Add(time.Duration(ms) * time.Millisecond).Format(time.TimeOnly)
}
