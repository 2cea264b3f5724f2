package filter

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/pkg/errors"
)

// Spec describes a filter by type name and attributes.
type Spec struct {
	Type       string            `yaml:"type"`
	OnMatch    string            `yaml:"onMatch"`
	OnMismatch string            `yaml:"onMismatch"`
	Params     map[string]string `yaml:"params"`
	Pairs      []string          `yaml:"pairs"`
}

func (s Spec) param(key string) string {
	return strings.TrimSpace(s.Params[key])
}

func (s Spec) boolParam(key string) (bool, error) {
	v := s.param(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "param %s", key)
	}
	return b, nil
}

func (s Spec) outcome() (Outcome, error) {
	o := DefaultOutcome
	var err error
	if s.OnMatch != "" {
		if o.OnMatch, err = ParseResult(s.OnMatch); err != nil {
			return o, err
		}
	}
	if s.OnMismatch != "" {
		if o.OnMismatch, err = ParseResult(s.OnMismatch); err != nil {
			return o, err
		}
	}
	return o, nil
}

func (s Spec) level(key string, required bool) (event.Level, error) {
	v := s.param(key)
	if v == "" {
		if required {
			return event.Level{}, errors.Errorf("param %s is required", key)
		}
		return event.Level{}, nil
	}
	l, ok := event.ParseLevel(v)
	if !ok {
		return event.Level{}, errors.Errorf("param %s: unknown level %q", key, v)
	}
	return l, nil
}

func (s Spec) isAnd() (bool, error) {
	switch strings.ToLower(s.param("operator")) {
	case "", "and":
		return true, nil
	case "or":
		return false, nil
	default:
		return false, errors.Errorf("param operator: must be and|or, got %q", s.param("operator"))
	}
}

// Constructor builds a filter from a Spec.
type Constructor func(s Spec) (Filter, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register adds a constructor under name, replacing any previous one.
func Register(name string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = c
}

// Lookup returns the constructor registered under name.
func Lookup(name string) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[strings.ToLower(name)]
	return c, ok
}

// Names returns the registered filter type names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build constructs the filter described by s.
func Build(s Spec) (Filter, error) {
	c, ok := Lookup(s.Type)
	if !ok {
		return nil, errors.Errorf("filter: unknown type %q", s.Type)
	}
	f, err := c(s)
	if err != nil {
		return nil, errors.Wrapf(err, "filter %s", s.Type)
	}
	return f, nil
}

// BuildChain builds a Composite from specs. A spec that fails to build is
// reported through onError and left out of the chain.
func BuildChain(specs []Spec, onError func(Spec, error)) *Composite {
	fs := make([]Filter, 0, len(specs))
	for _, s := range specs {
		f, err := Build(s)
		if err != nil {
			if onError != nil {
				onError(s, err)
			}
			continue
		}
		fs = append(fs, f)
	}
	return NewComposite(fs...)
}

func init() {
	Register("threshold", func(s Spec) (Filter, error) {
		o, err := s.outcome()
		if err != nil {
			return nil, err
		}
		l, err := s.level("level", true)
		if err != nil {
			return nil, err
		}
		return NewThreshold(l, o)
	})
	Register("dynamicThreshold", func(s Spec) (Filter, error) {
		o, err := s.outcome()
		if err != nil {
			return nil, err
		}
		def, err := s.level("defaultThreshold", false)
		if err != nil {
			return nil, err
		}
		levels := make(map[string]string, len(s.Pairs))
		for _, p := range s.Pairs {
			k, v, ok := strings.Cut(p, "=")
			if !ok {
				return nil, errors.Errorf("malformed pair %q", p)
			}
			levels[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		return NewDynamicThreshold(s.param("key"), levels, def, o)
	})
	Register("map", pairsConstructor(func(p []Pair, and bool, o Outcome) (Filter, error) {
		return NewMap(p, and, o)
	}))
	Register("structuredData", pairsConstructor(func(p []Pair, and bool, o Outcome) (Filter, error) {
		return NewStructuredData(p, and, o)
	}))
	Register("threadContextMap", pairsConstructor(func(p []Pair, and bool, o Outcome) (Filter, error) {
		return NewThreadContextMap(p, and, o)
	}))
	Register("regex", func(s Spec) (Filter, error) {
		o, err := s.outcome()
		if err != nil {
			return nil, err
		}
		raw, err := s.boolParam("useRawMsg")
		if err != nil {
			return nil, err
		}
		return NewRegex(s.Params["regex"], raw, o)
	})
	Register("time", func(s Spec) (Filter, error) {
		o, err := s.outcome()
		if err != nil {
			return nil, err
		}
		loc := time.UTC
		if tz := s.param("timezone"); tz != "" {
			if loc, err = time.LoadLocation(tz); err != nil {
				return nil, errors.Wrapf(err, "param timezone")
			}
		}
		return NewTime(s.param("start"), s.param("end"), loc, o)
	})
	Register("burst", func(s Spec) (Filter, error) {
		o, err := s.outcome()
		if err != nil {
			return nil, err
		}
		l, err := s.level("level", false)
		if err != nil {
			return nil, err
		}
		var perSecond float64
		if v := s.param("rate"); v != "" {
			if perSecond, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, errors.Wrap(err, "param rate")
			}
		}
		var maxBurst int
		if v := s.param("maxBurst"); v != "" {
			if maxBurst, err = strconv.Atoi(v); err != nil {
				return nil, errors.Wrap(err, "param maxBurst")
			}
		}
		return NewBurst(l, perSecond, maxBurst, o)
	})
	Register("stringMatch", func(s Spec) (Filter, error) {
		o, err := s.outcome()
		if err != nil {
			return nil, err
		}
		return NewStringMatch(s.Params["text"], o)
	})
	Register("marker", func(s Spec) (Filter, error) {
		o, err := s.outcome()
		if err != nil {
			return nil, err
		}
		return NewMarker(s.param("marker"), o)
	})
}

func pairsConstructor(build func([]Pair, bool, Outcome) (Filter, error)) Constructor {
	return func(s Spec) (Filter, error) {
		o, err := s.outcome()
		if err != nil {
			return nil, err
		}
		and, err := s.isAnd()
		if err != nil {
			return nil, err
		}
		pairs, err := ParsePairs(s.Pairs)
		if err != nil {
			return nil, err
		}
		return build(pairs, and, o)
	}
}
