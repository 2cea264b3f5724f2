package status

import (
	"errors"
	"testing"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := NewLogger(zap.New(core))

	r.Discarded("main", event.LevelDebug, 3)
	r.OutOfOrder("main")
	r.Lost("main", 7)
	r.RenderFailed("main", errors.New("boom"))
	r.DiscardTotal("main", 12)

	require.Equal(t, 5, logs.Len())
	all := logs.All()
	assert.Equal(t, "status", all[0].LoggerName)
	assert.Equal(t, "DEBUG", all[0].ContextMap()["level"])
	assert.EqualValues(t, 3, all[0].ContextMap()["discarded"])
	assert.Contains(t, all[1].Message, "out of order")
	assert.EqualValues(t, 7, all[2].ContextMap()["lost"])
	assert.Equal(t, "boom", all[3].ContextMap()["error"])
	assert.EqualValues(t, 12, all[4].ContextMap()["discarded"])
}

func TestLoggerSamplesRepeatedDiscards(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := NewLogger(zap.New(core))
	for i := 0; i < 50; i++ {
		r.Discarded("main", event.LevelDebug, int64(i+1))
	}
	assert.Less(t, logs.Len(), 50)
	assert.GreaterOrEqual(t, logs.Len(), 1)
}

func TestRecorderCounts(t *testing.T) {
	var r Recorder
	r.OutOfOrder("p")
	r.Lost("p", 2)
	r.Lost("p", 1)
	r.QueueFull("p")
	r.SinkFailed("p", errors.New("x"))

	assert.Equal(t, 1, r.Count(KindOutOfOrder))
	assert.Equal(t, 2, r.Count(KindLost))
	assert.Len(t, r.Entries(), 5)
	assert.EqualValues(t, 2, r.Entries()[1].N)
}

func TestNewZap(t *testing.T) {
	l, err := NewZap("warn", "json")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	_, err = NewZap("loud", "json")
	assert.Error(t, err)
	_, err = NewZap("info", "xml")
	assert.Error(t, err)
}
