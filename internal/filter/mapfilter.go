package filter

import (
	"strings"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/pkg/errors"
)

// Pair is a required key together with the set of values accepted for it.
type Pair struct {
	Key    string
	Values []string
}

// ParsePairs parses "key=value" strings. Repeated keys accumulate values and
// keep the position of their first occurrence.
func ParsePairs(kv []string) ([]Pair, error) {
	if len(kv) == 0 {
		return nil, errors.New("pairs: at least one key=value pair is required")
	}
	var pairs []Pair
	index := make(map[string]int, len(kv))
	for _, s := range kv {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.Errorf("pairs: malformed pair %q", s)
		}
		v = strings.TrimSpace(v)
		if i, seen := index[k]; seen {
			pairs[i].Values = append(pairs[i].Values, v)
			continue
		}
		index[k] = len(pairs)
		pairs = append(pairs, Pair{Key: k, Values: []string{v}})
	}
	return pairs, nil
}

// matchPairs runs the short-circuit loop over pairs. With and, the loop stops
// at the first pair that does not match; with or, at the first one that does.
// The value of the last computed match is returned.
func matchPairs(pairs []Pair, and bool, get func(key string) (string, bool)) bool {
	match := false
	for _, p := range pairs {
		v, ok := get(p.Key)
		match = ok && containsString(p.Values, v)
		if !and && match {
			break
		}
		if and && !match {
			break
		}
	}
	return match
}

// MapFilter matches key/value messages against required pairs.
type MapFilter struct {
	Outcome
	pairs []Pair
	and   bool
}

// NewMap creates a filter over the pairs. and selects AND semantics, otherwise OR.
func NewMap(pairs []Pair, and bool, o Outcome) (*MapFilter, error) {
	if len(pairs) == 0 {
		return nil, errors.New("map filter: at least one pair is required")
	}
	ps := make([]Pair, len(pairs))
	for i, p := range pairs {
		if p.Key == "" || len(p.Values) == 0 {
			return nil, errors.Errorf("map filter: pair %d is incomplete", i)
		}
		ps[i] = Pair{Key: p.Key, Values: append([]string(nil), p.Values...)}
	}
	return &MapFilter{Outcome: o, pairs: ps, and: and}, nil
}

// Filter returns Neutral for messages without a key/value store.
func (f *MapFilter) Filter(e *event.Event) Result {
	kv, ok := e.Message().(event.KeyValues)
	if !ok {
		return Neutral
	}
	return f.pick(matchPairs(f.pairs, f.and, kv.Get))
}

// Name returns the filter description.
func (f *MapFilter) Name() string {
	return "map" + describePairs(f.pairs, f.and)
}

// StructuredDataFilter matches structured data messages. The keys "id",
// "id.name", "type" and "message" address the message's own fields; any
// other key is looked up in its key/value store.
type StructuredDataFilter struct {
	MapFilter
}

// NewStructuredData creates a structured data filter.
func NewStructuredData(pairs []Pair, and bool, o Outcome) (*StructuredDataFilter, error) {
	mf, err := NewMap(pairs, and, o)
	if err != nil {
		return nil, errors.Wrap(err, "structured data")
	}
	return &StructuredDataFilter{MapFilter: *mf}, nil
}

// Filter returns Neutral for messages that are not structured data.
func (f *StructuredDataFilter) Filter(e *event.Event) Result {
	sd, ok := e.Message().(*event.StructuredData)
	if !ok {
		return Neutral
	}
	return f.pick(matchPairs(f.pairs, f.and, func(key string) (string, bool) {
		switch key {
		case "id":
			return sd.ID.String(), true
		case "id.name":
			return sd.ID.Name, true
		case "type":
			return sd.Type, true
		case "message":
			return sd.Message, true
		default:
			return sd.Get(key)
		}
	}))
}

// Name returns the filter description.
func (f *StructuredDataFilter) Name() string {
	return "structured-data" + describePairs(f.pairs, f.and)
}

// ThreadContextMapFilter matches the event's captured context map.
type ThreadContextMapFilter struct {
	MapFilter
	single bool
	key    string
	value  string
}

// NewThreadContextMap creates a context map filter. A single key with a
// single value is compared directly.
func NewThreadContextMap(pairs []Pair, and bool, o Outcome) (*ThreadContextMapFilter, error) {
	mf, err := NewMap(pairs, and, o)
	if err != nil {
		return nil, errors.Wrap(err, "thread context map")
	}
	f := &ThreadContextMapFilter{MapFilter: *mf}
	if len(mf.pairs) == 1 && len(mf.pairs[0].Values) == 1 {
		f.single = true
		f.key = mf.pairs[0].Key
		f.value = mf.pairs[0].Values[0]
	}
	return f, nil
}

// Filter evaluates the pairs against the context map.
func (f *ThreadContextMapFilter) Filter(e *event.Event) Result {
	ctx := e.ContextMap()
	if f.single {
		v, ok := ctx.Get(f.key)
		return f.pick(ok && v == f.value)
	}
	return f.pick(matchPairs(f.pairs, f.and, ctx.Get))
}

// Name returns the filter description.
func (f *ThreadContextMapFilter) Name() string {
	return "thread-context-map" + describePairs(f.pairs, f.and)
}

func describePairs(pairs []Pair, and bool) string {
	op := " or "
	if and {
		op = " and "
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.Key + "=" + strings.Join(p.Values, "|")
	}
	return "(" + strings.Join(parts, op) + ")"
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
