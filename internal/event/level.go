// Package event defines the immutable Event snapshot passed through the lxpipe pipeline.
package event

import (
	"math"
	"strings"
)

// Level represents log severity. Lower weights are more specific (more severe).
type Level struct {
	name   string
	weight int
}

// Standard levels, ordered from most to least specific.
var (
	LevelOff   = Level{"OFF", 0}
	LevelFatal = Level{"FATAL", 100}
	LevelError = Level{"ERROR", 200}
	LevelWarn  = Level{"WARN", 300}
	LevelInfo  = Level{"INFO", 400}
	LevelDebug = Level{"DEBUG", 500}
	LevelTrace = Level{"TRACE", 600}
	LevelAll   = Level{"ALL", math.MaxInt32}
)

var levels = []Level{LevelOff, LevelFatal, LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace, LevelAll}

// String returns the string representation of a Level.
func (l Level) String() string {
	if l.name == "" {
		return "UNKNOWN"
	}
	return l.name
}

// Weight returns the integer weight of the level.
func (l Level) Weight() int { return l.weight }

// IsZero reports whether l is the zero Level (not one of the defined levels).
func (l Level) IsZero() bool { return l.name == "" }

// IsAtLeastAsSpecific reports whether l is as severe as, or more severe than, other.
// ERROR is at least as specific as WARN; WARN is not at least as specific as ERROR.
func (l Level) IsAtLeastAsSpecific(other Level) bool {
	return l.weight <= other.weight
}

// IsLessSpecific reports whether l is as verbose as, or more verbose than, other.
func (l Level) IsLessSpecific(other Level) bool {
	return l.weight >= other.weight
}

// ParseLevel converts a string to a Level. Case-insensitive.
// The second return value is false for unknown names.
func ParseLevel(s string) (Level, bool) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch upper {
	case "WARNING":
		upper = "WARN"
	case "ERR":
		upper = "ERROR"
	case "PANIC", "CRITICAL":
		upper = "FATAL"
	}
	for _, l := range levels {
		if l.name == upper {
			return l, true
		}
	}
	return Level{}, false
}

// ToLevel converts a string to a Level, falling back to def for unknown names.
func ToLevel(s string, def Level) Level {
	if l, ok := ParseLevel(s); ok {
		return l
	}
	return def
}
