package filter

import (
	"strconv"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// BurstFilter rate-limits events at or below a level. More severe events
// always receive onMatch.
type BurstFilter struct {
	Outcome
	level   event.Level
	limiter *rate.Limiter
	rate    float64
	burst   int
}

// NewBurst creates a burst filter allowing perSecond events on average and
// up to maxBurst at once. A zero level means WARN; a non-positive perSecond
// means 10; a non-positive maxBurst means 100 times perSecond.
func NewBurst(level event.Level, perSecond float64, maxBurst int, o Outcome) (*BurstFilter, error) {
	if level.IsZero() {
		level = event.LevelWarn
	}
	if perSecond <= 0 {
		perSecond = 10
	}
	if maxBurst <= 0 {
		maxBurst = int(perSecond * 100)
	}
	if maxBurst < 1 {
		return nil, errors.Errorf("burst: max burst %d is too small", maxBurst)
	}
	return &BurstFilter{
		Outcome: o,
		level:   level,
		limiter: rate.NewLimiter(rate.Limit(perSecond), maxBurst),
		rate:    perSecond,
		burst:   maxBurst,
	}, nil
}

// Filter consumes a token for rate-limited levels.
func (f *BurstFilter) Filter(e *event.Event) Result {
	if !e.Level().IsLessSpecific(f.level) {
		return f.OnMatch
	}
	return f.pick(f.limiter.AllowN(e.Time(), 1))
}

// Name returns the filter description.
func (f *BurstFilter) Name() string {
	return "burst:" + f.level.String() + "@" + strconv.FormatFloat(f.rate, 'g', -1, 64) + "/s"
}
