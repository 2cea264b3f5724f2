package filter

import (
	"testing"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexFilterFullMatch(t *testing.T) {
	f, err := NewRegex(`user \d+ logged in`, false, matchOutcome)
	require.NoError(t, err)

	msg := func(s string) *event.Event { return event.New(event.Fields{Message: event.Text(s)}) }
	assert.Equal(t, Accept, f.Filter(msg("user 42 logged in")))
	assert.Equal(t, Deny, f.Filter(msg("user 42 logged in twice")), "search is not enough")
	assert.Equal(t, Deny, f.Filter(msg("the user 42 logged in")))
}

func TestRegexFilterRawTemplate(t *testing.T) {
	e := event.New(event.Fields{Message: event.NewParameterized("user {} logged in", 42)})

	raw, err := NewRegex(`user \{\} logged in`, true, matchOutcome)
	require.NoError(t, err)
	assert.Equal(t, Accept, raw.Filter(e))

	rendered, err := NewRegex(`user \{\} logged in`, false, matchOutcome)
	require.NoError(t, err)
	assert.Equal(t, Deny, rendered.Filter(e))
}

func TestRegexFilterInvalidPattern(t *testing.T) {
	_, err := NewRegex(`(`, false, DefaultOutcome)
	assert.Error(t, err)
	_, err = NewRegex(``, false, DefaultOutcome)
	assert.Error(t, err)
}

func TestStringMatchFilter(t *testing.T) {
	f, err := NewStringMatch("timeout", matchOutcome)
	require.NoError(t, err)
	assert.Equal(t, Accept, f.Filter(event.New(event.Fields{Message: event.NewParameterized("request {} hit a timeout", 7)})))
	assert.Equal(t, Deny, f.Filter(infoEvent()))
}

func TestTimeFilterWindow(t *testing.T) {
	f, err := NewTime("01:00:00", "02:00:00", time.UTC, matchOutcome)
	require.NoError(t, err)

	at := func(h, m, s, ms int) *event.Event {
		ts := time.Date(2024, 3, 10, h, m, s, ms*int(time.Millisecond), time.UTC)
		return event.New(event.Fields{Time: ts})
	}
	assert.Equal(t, Accept, f.Filter(at(1, 30, 0, 0)))
	assert.Equal(t, Accept, f.Filter(at(1, 0, 0, 0)), "start is inclusive")
	assert.Equal(t, Deny, f.Filter(at(0, 59, 59, 0)))
	assert.Equal(t, Deny, f.Filter(at(2, 0, 0, 0)), "end is exclusive")
	assert.Equal(t, Accept, f.Filter(at(1, 59, 59, 999)))
}

func TestTimeFilterZoneAndWrap(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	f, err := NewTime("22:00:00", "02:00:00", loc, matchOutcome)
	require.NoError(t, err)

	assert.Equal(t, Accept, f.Filter(event.New(event.Fields{Time: time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)})))
	assert.Equal(t, Deny, f.Filter(event.New(event.Fields{Time: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)})))
	assert.Equal(t, int64(3600000), f.Offset(time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)))

	_, err = NewTime("25:00", "", nil, DefaultOutcome)
	assert.Error(t, err)
}

func TestBurstFilter(t *testing.T) {
	f, err := NewBurst(event.LevelInfo, 1, 2, Outcome{OnMatch: Neutral, OnMismatch: Deny})
	require.NoError(t, err)

	now := time.Now()
	info := func() *event.Event { return event.New(event.Fields{Level: event.LevelInfo, Time: now}) }
	assert.Equal(t, Neutral, f.Filter(info()))
	assert.Equal(t, Neutral, f.Filter(info()))
	assert.Equal(t, Deny, f.Filter(info()), "burst exhausted")
	assert.Equal(t, Neutral, f.Filter(event.New(event.Fields{Level: event.LevelError, Time: now})),
		"more severe levels are never limited")
}

func TestMarkerFilter(t *testing.T) {
	markers := event.NewMarkers()
	sql := markers.Get("SQL")
	update := markers.Get("SQL_UPDATE")
	require.NoError(t, markers.AddParents(update, sql))

	f, err := NewMarker("SQL", matchOutcome)
	require.NoError(t, err)
	assert.Equal(t, Accept, f.Filter(event.New(event.Fields{Marker: update})))
	assert.Equal(t, Deny, f.Filter(event.New(event.Fields{Marker: markers.Get("HTTP")})))
	assert.Equal(t, Deny, f.Filter(infoEvent()))
}
