package filter

import (
	"regexp"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/pkg/errors"
)

// RegexFilter matches the whole message text against a pre-compiled regular expression.
// The regex is compiled once at construction, eliminating per-event compilation overhead.
type RegexFilter struct {
	Outcome
	pattern string
	re      *regexp.Regexp
	useRaw  bool
}

// NewRegex creates a filter with a pre-compiled pattern. The pattern must
// match the entire text. When useRaw is true the message template is
// matched instead of the rendered text.
func NewRegex(pattern string, useRaw bool, o Outcome) (*RegexFilter, error) {
	if pattern == "" {
		return nil, errors.New("regex: pattern is required")
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, errors.Wrapf(err, "regex: invalid pattern %q", pattern)
	}
	return &RegexFilter{Outcome: o, pattern: pattern, re: re, useRaw: useRaw}, nil
}

// Filter returns onMatch if the text fully matches the pattern.
func (f *RegexFilter) Filter(e *event.Event) Result {
	msg := e.Message()
	if msg == nil {
		return f.OnMismatch
	}
	if f.useRaw {
		if raw := msg.Template(); raw != "" {
			return f.pick(f.re.MatchString(raw))
		}
	}
	return f.pick(f.re.MatchString(e.Text()))
}

// Name returns the filter description.
func (f *RegexFilter) Name() string {
	return "regex:" + f.pattern
}
