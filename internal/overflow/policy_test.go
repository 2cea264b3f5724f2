package overflow

import (
	"testing"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoutes(t *testing.T) {
	var p Default
	assert.Equal(t, EnqueueBlocking, p.Route(event.LevelDebug, false))
	assert.Equal(t, BypassSynchronous, p.Route(event.LevelDebug, true))
}

func TestDiscardingDropsAtOrBelowThreshold(t *testing.T) {
	p := NewDiscarding(event.LevelInfo)

	assert.Equal(t, EnqueueDrop, p.Route(event.LevelInfo, false))
	assert.Equal(t, EnqueueDrop, p.Route(event.LevelTrace, false))
	assert.Equal(t, EnqueueDrop, p.Route(event.LevelDebug, true), "discard applies before the reentrancy check")
	assert.Equal(t, EnqueueBlocking, p.Route(event.LevelWarn, false))
	assert.Equal(t, BypassSynchronous, p.Route(event.LevelError, true))
	assert.EqualValues(t, 3, p.DiscardCount())
}

func TestDiscardingDefaultThreshold(t *testing.T) {
	assert.Equal(t, event.LevelInfo, NewDiscarding(event.Level{}).Threshold())
}

type alwaysDrop struct{}

func (alwaysDrop) Route(event.Level, bool) Decision { return EnqueueDrop }
func (alwaysDrop) Name() string                     { return "alwaysDrop" }

func TestLookup(t *testing.T) {
	p, err := Lookup("", event.Level{})
	require.NoError(t, err)
	assert.Equal(t, "default", p.Name())

	p, err = Lookup("Discard", event.LevelWarn)
	require.NoError(t, err)
	d, ok := p.(*Discarding)
	require.True(t, ok)
	assert.Equal(t, event.LevelWarn, d.Threshold())

	Register("alwaysDrop", func(event.Level) (Policy, error) { return alwaysDrop{}, nil })
	p, err = Lookup("alwaysdrop", event.Level{})
	require.NoError(t, err)
	assert.Equal(t, EnqueueDrop, p.Route(event.LevelFatal, true))
	assert.Contains(t, Names(), "alwaysdrop")

	_, err = Lookup("nope", event.Level{})
	assert.Error(t, err)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "BYPASS_SYNCHRONOUS", BypassSynchronous.String())
	assert.Equal(t, "Decision(9)", Decision(9).String())
}
