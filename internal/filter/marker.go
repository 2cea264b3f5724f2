package filter

import (
	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/pkg/errors"
)

// MarkerFilter matches events whose marker is, or descends from, a named marker.
type MarkerFilter struct {
	Outcome
	name string
}

// NewMarker creates a marker filter.
func NewMarker(name string, o Outcome) (*MarkerFilter, error) {
	if name == "" {
		return nil, errors.New("marker: name is required")
	}
	return &MarkerFilter{Outcome: o, name: name}, nil
}

// Filter returns onMatch if the event marker is an instance of the configured marker.
func (f *MarkerFilter) Filter(e *event.Event) Result {
	return f.pick(e.Marker().IsInstanceOf(f.name))
}

// Name returns the filter description.
func (f *MarkerFilter) Name() string { return "marker:" + f.name }
