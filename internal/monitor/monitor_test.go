package monitor

import (
	"strings"
	"testing"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/filter"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCollector(t *testing.T) {
	depth := 4
	s := NewStats("main", func() int { return depth })
	s.RecordSubmitted()
	s.RecordSubmitted()
	s.RecordDelivered()
	s.RecordDiscarded()
	s.RecordLost(3)

	want := `
# HELP lxpipe_events_total Events handled by the pipeline, by outcome.
# TYPE lxpipe_events_total counter
lxpipe_events_total{outcome="bypassed",pipeline="main"} 0
lxpipe_events_total{outcome="delivered",pipeline="main"} 1
lxpipe_events_total{outcome="discarded",pipeline="main"} 1
lxpipe_events_total{outcome="diverted",pipeline="main"} 0
lxpipe_events_total{outcome="lost",pipeline="main"} 3
lxpipe_events_total{outcome="render_failed",pipeline="main"} 0
lxpipe_events_total{outcome="sink_failed",pipeline="main"} 0
lxpipe_events_total{outcome="submitted",pipeline="main"} 2
# HELP lxpipe_queue_depth Events currently waiting in the pipeline queue.
# TYPE lxpipe_queue_depth gauge
lxpipe_queue_depth{pipeline="main"} 4
`
	require.NoError(t, testutil.CollectAndCompare(s, strings.NewReader(want)))

	snap := s.Snapshot()
	assert.EqualValues(t, 2, snap.Submitted)
	assert.Equal(t, 4, snap.Depth)
	assert.Contains(t, s.Summary(), "Lost:          3")
}

func TestRateDetectorSpike(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateDetector(10*time.Second, 3)
	r.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.False(t, r.Record(2))
		now = now.Add(time.Second)
	}
	assert.True(t, r.Record(10), "10 is more than 3x the average of 2")
	assert.EqualValues(t, 10, r.LatestSecondRate())
	assert.InDelta(t, 1.6, r.CurrentRate(), 0.001)

	now = now.Add(time.Minute)
	assert.EqualValues(t, 0, r.LatestSecondRate())
	assert.Zero(t, r.CurrentRate())
}

func TestAlertEngine(t *testing.T) {
	errs, err := filter.NewThreshold(event.LevelError, filter.Outcome{OnMatch: filter.Accept, OnMismatch: filter.Deny})
	require.NoError(t, err)
	e := NewAlertEngine(&AlertRule{Name: "errors", Filter: errs}, nil, &AlertRule{Name: "empty"})
	require.Len(t, e.Rules(), 1)

	fired := e.Check(event.New(event.Fields{Level: event.LevelFatal, Message: event.Text("down")}))
	assert.Equal(t, []string{"errors"}, fired)
	assert.Empty(t, e.Check(event.New(event.Fields{Level: event.LevelInfo, Message: event.Text("ok")})))
	assert.EqualValues(t, 1, e.TotalAlerts())
	assert.Contains(t, e.Summary(), "errors")
	assert.Empty(t, NewAlertEngine().Summary())
}
