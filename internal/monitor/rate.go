package monitor

import (
	"sync"
	"time"
)

// RateDetector tracks event rates over a sliding window of one-second
// buckets and flags spikes.
type RateDetector struct {
	mu        sync.Mutex
	window    time.Duration
	threshold float64 // spike when latest bucket > threshold * average
	now       func() time.Time

	buckets []bucket
}

type bucket struct {
	second time.Time
	count  int64
}

// NewRateDetector creates a detector. Windows under one second default to
// ten seconds and a non-positive threshold defaults to 3.
func NewRateDetector(window time.Duration, threshold float64) *RateDetector {
	if window < time.Second {
		window = 10 * time.Second
	}
	if threshold <= 0 {
		threshold = 3.0
	}
	return &RateDetector{window: window, threshold: threshold, now: time.Now}
}

// Record adds n events at the current time and reports whether the
// current second is a spike.
func (r *RateDetector) Record(n int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	sec := now.Truncate(time.Second)
	if k := len(r.buckets); k > 0 && r.buckets[k-1].second.Equal(sec) {
		r.buckets[k-1].count += n
	} else {
		r.buckets = append(r.buckets, bucket{second: sec, count: n})
	}
	return r.spiking()
}

// CurrentRate returns events per second averaged over the window.
func (r *RateDetector) CurrentRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(r.now())
	var total int64
	for _, b := range r.buckets {
		total += b.count
	}
	return float64(total) / r.window.Seconds()
}

// LatestSecondRate returns the event count of the current second.
func (r *RateDetector) LatestSecondRate() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := len(r.buckets)
	if k == 0 || !r.buckets[k-1].second.Equal(r.now().Truncate(time.Second)) {
		return 0
	}
	return r.buckets[k-1].count
}

// prune drops buckets older than the window. Caller holds mu.
func (r *RateDetector) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.buckets) && r.buckets[i].second.Before(cutoff) {
		i++
	}
	r.buckets = r.buckets[i:]
}

// spiking compares the latest bucket to the mean of the earlier ones.
// Caller holds mu.
func (r *RateDetector) spiking() bool {
	k := len(r.buckets)
	if k < 3 {
		return false
	}
	var sum int64
	for _, b := range r.buckets[:k-1] {
		sum += b.count
	}
	avg := float64(sum) / float64(k-1)
	if avg == 0 {
		return false
	}
	return float64(r.buckets[k-1].count) > avg*r.threshold
}
