// Package sink defines where the pipeline delivers rendered events, plus
// reference text, JSON and in-memory sinks.
package sink

import (
	"github.com/Geun-Oh/lxpipe/internal/event"
)

// Sink receives rendered events from a pipeline consumer and writes them to
// an output destination. A pipeline calls Deliver from a single goroutine.
type Sink interface {
	// Deliver outputs a single event. r.Text is only valid during the call.
	Deliver(r *event.Rendered) error

	// Flush ensures all buffered output is written.
	Flush() error

	// Close releases resources held by the sink.
	Close() error

	// Name returns a human-readable identifier for this sink.
	Name() string
}
