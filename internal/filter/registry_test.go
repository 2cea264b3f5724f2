package filter

import (
	"testing"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKnownTypes(t *testing.T) {
	specs := []Spec{
		{Type: "threshold", Params: map[string]string{"level": "warn"}},
		{Type: "dynamicThreshold", Params: map[string]string{"key": "user"}, Pairs: []string{"alice=debug"}},
		{Type: "map", Pairs: []string{"a=1"}, Params: map[string]string{"operator": "or"}},
		{Type: "structuredData", Pairs: []string{"type=Login"}},
		{Type: "threadContextMap", Pairs: []string{"user=alice"}},
		{Type: "regex", Params: map[string]string{"regex": ".*", "useRawMsg": "true"}},
		{Type: "time", Params: map[string]string{"start": "01:00:00", "end": "02:00:00", "timezone": "UTC"}},
		{Type: "burst", Params: map[string]string{"level": "info", "rate": "5"}},
		{Type: "stringMatch", Params: map[string]string{"text": "x"}},
		{Type: "marker", Params: map[string]string{"marker": "SQL"}, OnMatch: "accept", OnMismatch: "neutral"},
	}
	for _, s := range specs {
		f, err := Build(s)
		require.NoError(t, err, s.Type)
		require.NotNil(t, f, s.Type)
	}
	assert.Contains(t, Names(), "threadcontextmap")
}

func TestBuildChainSkipsBrokenFilters(t *testing.T) {
	var failed []string
	chain := BuildChain([]Spec{
		{Type: "threshold", Params: map[string]string{"level": "info"}},
		{Type: "regex", Params: map[string]string{"regex": "("}},
		{Type: "map", Pairs: []string{"broken"}},
		{Type: "nope"},
		{Type: "threshold", OnMatch: "sometimes", Params: map[string]string{"level": "info"}},
	}, func(s Spec, err error) {
		failed = append(failed, s.Type)
	})

	assert.Equal(t, 1, chain.Len())
	assert.Equal(t, []string{"regex", "map", "nope", "threshold"}, failed)
	assert.Equal(t, Deny, chain.Filter(event.New(event.Fields{Level: event.LevelDebug})))
}
