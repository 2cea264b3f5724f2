package parser

import (
	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/filter"
)

// LevelField is the capture name read as the event level.
const LevelField = "level"

// Message converts a raw line into a message and a level. When g is set and
// matches, the line becomes a map message and its level comes from the
// LevelField capture. Otherwise the line is kept as text and the level is
// detected from its content. def is used when no level can be found.
func Message(g *GrokParser, line string, def event.Level) (event.Message, event.Level) {
	if g != nil {
		if m, ok := g.Parse(line); ok {
			if v, ok := m.Get(LevelField); ok {
				return m, event.ToLevel(v, def)
			}
			return m, def
		}
	}
	if l, ok := filter.DetectLevel(line); ok {
		return event.Text(line), l
	}
	return event.Text(line), def
}
