package filter

import (
	"strings"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/pkg/errors"
)

// StringMatchFilter matches events whose rendered text contains a substring.
type StringMatchFilter struct {
	Outcome
	text string
}

// NewStringMatch creates a filter that matches events containing text.
func NewStringMatch(text string, o Outcome) (*StringMatchFilter, error) {
	if text == "" {
		return nil, errors.New("string match: text is required")
	}
	return &StringMatchFilter{Outcome: o, text: text}, nil
}

// Filter returns onMatch if the rendered message contains the text.
func (f *StringMatchFilter) Filter(e *event.Event) Result {
	return f.pick(strings.Contains(e.Text(), f.text))
}

// Name returns the filter description.
func (f *StringMatchFilter) Name() string {
	return "string-match:" + f.text
}
