// Package monitor collects pipeline counters and exposes them as a summary
// and as Prometheus metrics.
package monitor

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats collects pipeline counters in a lock-free manner.
type Stats struct {
	name      string
	startTime time.Time
	depth     func() int

	submitted    atomic.Uint64
	delivered    atomic.Uint64
	discarded    atomic.Uint64
	bypassed     atomic.Uint64
	diverted     atomic.Uint64
	lost         atomic.Uint64
	renderFailed atomic.Uint64
	sinkFailed   atomic.Uint64

	descs descs
}

type descs struct {
	events *prometheus.Desc
	depth  *prometheus.Desc
}

// Outcomes reported under the lxpipe_events_total metric.
const (
	OutcomeSubmitted    = "submitted"
	OutcomeDelivered    = "delivered"
	OutcomeDiscarded    = "discarded"
	OutcomeBypassed     = "bypassed"
	OutcomeDiverted     = "diverted"
	OutcomeLost         = "lost"
	OutcomeRenderFailed = "render_failed"
	OutcomeSinkFailed   = "sink_failed"
)

// NewStats creates a collector for the named pipeline. depth reports the
// current queue length and may be nil.
func NewStats(name string, depth func() int) *Stats {
	labels := prometheus.Labels{"pipeline": name}
	return &Stats{
		name:      name,
		startTime: time.Now(),
		depth:     depth,
		descs: descs{
			events: prometheus.NewDesc("lxpipe_events_total",
				"Events handled by the pipeline, by outcome.", []string{"outcome"}, labels),
			depth: prometheus.NewDesc("lxpipe_queue_depth",
				"Events currently waiting in the pipeline queue.", nil, labels),
		},
	}
}

func (s *Stats) RecordSubmitted()    { s.submitted.Add(1) }
func (s *Stats) RecordDelivered()    { s.delivered.Add(1) }
func (s *Stats) RecordDiscarded()    { s.discarded.Add(1) }
func (s *Stats) RecordBypassed()     { s.bypassed.Add(1) }
func (s *Stats) RecordDiverted()     { s.diverted.Add(1) }
func (s *Stats) RecordLost(n int)    { s.lost.Add(uint64(n)) }
func (s *Stats) RecordRenderFailed() { s.renderFailed.Add(1) }
func (s *Stats) RecordSinkFailed()   { s.sinkFailed.Add(1) }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Submitted    uint64
	Delivered    uint64
	Discarded    uint64
	Bypassed     uint64
	Diverted     uint64
	Lost         uint64
	RenderFailed uint64
	SinkFailed   uint64
	Depth        int
	Elapsed      time.Duration
}

// Snapshot reads every counter.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Submitted:    s.submitted.Load(),
		Delivered:    s.delivered.Load(),
		Discarded:    s.discarded.Load(),
		Bypassed:     s.bypassed.Load(),
		Diverted:     s.diverted.Load(),
		Lost:         s.lost.Load(),
		RenderFailed: s.renderFailed.Load(),
		SinkFailed:   s.sinkFailed.Load(),
		Elapsed:      time.Since(s.startTime),
	}
	if s.depth != nil {
		snap.Depth = s.depth()
	}
	return snap
}

// Rate returns delivered events per second since the collector was created.
func (s Snapshot) Rate() float64 {
	elapsed := s.Elapsed.Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(s.Delivered) / elapsed
}

// Summary returns a formatted summary string.
func (s *Stats) Summary() string {
	snap := s.Snapshot()
	deliveredPct := float64(0)
	if snap.Submitted > 0 {
		deliveredPct = float64(snap.Delivered) / float64(snap.Submitted) * 100
	}

	return fmt.Sprintf(
		"── Summary (%s) ──\n"+
			"  Submitted:     %d\n"+
			"  Delivered:     %d (%.1f%%)\n"+
			"  Discarded:     %d\n"+
			"  Out of order:  %d\n"+
			"  Diverted:      %d\n"+
			"  Lost:          %d\n"+
			"  Failures:      %d render, %d sink\n"+
			"  Duration:      %s\n"+
			"  Throughput:    %.0f events/s\n"+
			"─────────────",
		s.name,
		snap.Submitted,
		snap.Delivered, deliveredPct,
		snap.Discarded,
		snap.Bypassed,
		snap.Diverted,
		snap.Lost,
		snap.RenderFailed, snap.SinkFailed,
		snap.Elapsed.Round(time.Millisecond),
		snap.Rate(),
	)
}

// Describe implements prometheus.Collector.
func (s *Stats) Describe(ch chan<- *prometheus.Desc) {
	ch <- s.descs.events
	ch <- s.descs.depth
}

// Collect implements prometheus.Collector.
func (s *Stats) Collect(ch chan<- prometheus.Metric) {
	snap := s.Snapshot()
	for _, c := range []struct {
		outcome string
		v       uint64
	}{
		{OutcomeSubmitted, snap.Submitted},
		{OutcomeDelivered, snap.Delivered},
		{OutcomeDiscarded, snap.Discarded},
		{OutcomeBypassed, snap.Bypassed},
		{OutcomeDiverted, snap.Diverted},
		{OutcomeLost, snap.Lost},
		{OutcomeRenderFailed, snap.RenderFailed},
		{OutcomeSinkFailed, snap.SinkFailed},
	} {
		ch <- prometheus.MustNewConstMetric(s.descs.events, prometheus.CounterValue, float64(c.v), c.outcome)
	}
	ch <- prometheus.MustNewConstMetric(s.descs.depth, prometheus.GaugeValue, float64(snap.Depth))
}
