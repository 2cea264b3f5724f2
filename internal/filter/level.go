package filter

import (
	"regexp"
	"strings"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/pkg/errors"
)

// levelRegex detects log levels in common formats like [ERROR], level=error, etc.
var levelRegex = regexp.MustCompile(`(?i)\b(TRACE|DEBUG|INFO|WARN(?:ING)?|ERR(?:OR)?|FATAL|PANIC|CRITICAL)\b`)

// ThresholdFilter matches events at least as specific as a configured level.
type ThresholdFilter struct {
	Outcome
	level event.Level
}

// NewThreshold creates a threshold filter. DefaultOutcome is the usual NEUTRAL/DENY pair.
func NewThreshold(level event.Level, o Outcome) (*ThresholdFilter, error) {
	if level.IsZero() {
		return nil, errors.New("threshold: level is required")
	}
	return &ThresholdFilter{Outcome: o, level: level}, nil
}

// Filter returns onMatch when the event level is at least as specific as the threshold.
func (f *ThresholdFilter) Filter(e *event.Event) Result {
	return f.pick(e.Level().IsAtLeastAsSpecific(f.level))
}

// Level returns the configured threshold.
func (f *ThresholdFilter) Level() event.Level { return f.level }

// Name returns the filter description.
func (f *ThresholdFilter) Name() string {
	return "threshold:" + f.level.String()
}

// DynamicThresholdFilter picks a threshold from the event's context map.
type DynamicThresholdFilter struct {
	Outcome
	key          string
	levels       map[string]event.Level
	defaultLevel event.Level
}

// NewDynamicThreshold creates a filter that looks up key in the event context
// map and maps the value to a level through pairs. Unmapped values use
// defaultLevel, which itself defaults to ERROR.
func NewDynamicThreshold(key string, pairs map[string]string, defaultLevel event.Level, o Outcome) (*DynamicThresholdFilter, error) {
	if key == "" {
		return nil, errors.New("dynamic threshold: key is required")
	}
	if defaultLevel.IsZero() {
		defaultLevel = event.LevelError
	}
	levels := make(map[string]event.Level, len(pairs))
	for value, name := range pairs {
		l, ok := event.ParseLevel(name)
		if !ok {
			return nil, errors.Errorf("dynamic threshold: invalid level %q for value %q", name, value)
		}
		levels[value] = l
	}
	return &DynamicThresholdFilter{Outcome: o, key: key, levels: levels, defaultLevel: defaultLevel}, nil
}

// Filter returns Neutral when the key is absent from the context map.
func (f *DynamicThresholdFilter) Filter(e *event.Event) Result {
	value, ok := e.ContextMap().Get(f.key)
	if !ok {
		return Neutral
	}
	threshold, ok := f.levels[value]
	if !ok {
		threshold = f.defaultLevel
	}
	return f.pick(e.Level().IsAtLeastAsSpecific(threshold))
}

// Name returns the filter description.
func (f *DynamicThresholdFilter) Name() string {
	return "dynamic-threshold:" + f.key
}

// DetectLevel attempts to extract a log level from a message string.
// The second return value is false if no level keyword was found.
func DetectLevel(msg string) (event.Level, bool) {
	match := levelRegex.FindString(msg)
	if match == "" {
		return event.Level{}, false
	}
	return event.ParseLevel(strings.ToUpper(match))
}
