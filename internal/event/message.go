package event

import (
	"fmt"
	"sort"
	"strconv"
)

// Message is the payload of an Event. Implementations must be safe to render
// from a goroutine other than the one that created them.
type Message interface {
	// Template returns the raw format string, or the plain text for messages without one.
	Template() string

	// AppendText renders the message and appends it to dst.
	AppendText(dst []byte) []byte
}

// KeyValues is implemented by messages carrying a key/value store.
type KeyValues interface {
	Get(key string) (string, bool)
}

// Text is a pre-rendered message.
type Text string

// Template returns the text itself.
func (t Text) Template() string { return string(t) }

// AppendText appends the text to dst.
func (t Text) AppendText(dst []byte) []byte { return append(dst, t...) }

// Parameterized is a message whose "{}" placeholders are replaced with
// arguments when rendered. A backslash escapes a placeholder.
type Parameterized struct {
	format string
	args   []any
}

// NewParameterized creates a parameterized message. The args slice is copied.
func NewParameterized(format string, args ...any) *Parameterized {
	snapshot := make([]any, len(args))
	copy(snapshot, args)
	return &Parameterized{format: format, args: snapshot}
}

// Template returns the unformatted format string.
func (m *Parameterized) Template() string { return m.format }

// Args returns the message arguments.
func (m *Parameterized) Args() []any { return m.args }

// AppendText substitutes the arguments into the placeholders.
func (m *Parameterized) AppendText(dst []byte) []byte {
	argIdx := 0
	escaped := false
	f := m.format
	for i := 0; i < len(f); i++ {
		c := f[i]
		if escaped {
			escaped = false
			if c == '{' {
				dst = append(dst, c)
				continue
			}
			dst = append(dst, '\\', c)
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '{' && i+1 < len(f) && f[i+1] == '}' && argIdx < len(m.args) {
			dst = appendValue(dst, m.args[argIdx])
			argIdx++
			i++
			continue
		}
		dst = append(dst, c)
	}
	if escaped {
		dst = append(dst, '\\')
	}
	return dst
}

// Lazy is a message rendered by calling a function on first use.
type Lazy func() string

// Template returns an empty string: lazy messages have no raw form.
func (l Lazy) Template() string { return "" }

// AppendText calls the function and appends its result.
func (l Lazy) AppendText(dst []byte) []byte { return append(dst, l()...) }

// Map is a structured message holding ordered key/value pairs.
type Map struct {
	keys   []string
	values map[string]string
}

// NewMap creates a Map message from alternating key/value strings.
// A trailing key without a value is ignored.
func NewMap(kv ...string) *Map {
	m := &Map{values: make(map[string]string, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		m.put(kv[i], kv[i+1])
	}
	return m
}

// NewMapFrom creates a Map message from a Go map. Keys are sorted.
func NewMapFrom(values map[string]string) *Map {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m := &Map{values: make(map[string]string, len(values))}
	for _, k := range keys {
		m.put(k, values[k])
	}
	return m
}

func (m *Map) put(k, v string) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Get returns the value stored for key.
func (m *Map) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string { return m.keys }

// Template returns an empty string: map messages have no format.
func (m *Map) Template() string { return "" }

// AppendText renders the pairs as key="value" separated by spaces.
func (m *Map) AppendText(dst []byte) []byte {
	for i, k := range m.keys {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = append(dst, k...)
		dst = append(dst, '=')
		dst = strconv.AppendQuote(dst, m.values[k])
	}
	return dst
}

// StructuredDataID identifies a structured data element (RFC 5424 SD-ID).
type StructuredDataID struct {
	Name             string
	EnterpriseNumber string
}

// String returns name@enterprise, or just the name when no enterprise number is set.
func (id StructuredDataID) String() string {
	if id.EnterpriseNumber == "" {
		return id.Name
	}
	return id.Name + "@" + id.EnterpriseNumber
}

// StructuredData is a Map message with an id, a type and a free-text message.
type StructuredData struct {
	*Map
	ID      StructuredDataID
	Type    string
	Message string
}

// NewStructuredData creates a structured data message.
func NewStructuredData(id StructuredDataID, typ, msg string, kv ...string) *StructuredData {
	return &StructuredData{Map: NewMap(kv...), ID: id, Type: typ, Message: msg}
}

// Template returns the free-text message.
func (m *StructuredData) Template() string { return m.Message }

// AppendText renders "[id k="v" ...] message".
func (m *StructuredData) AppendText(dst []byte) []byte {
	dst = append(dst, '[')
	dst = append(dst, m.ID.String()...)
	if len(m.keys) > 0 {
		dst = append(dst, ' ')
		dst = m.Map.AppendText(dst)
	}
	dst = append(dst, ']')
	if m.Message != "" {
		dst = append(dst, ' ')
		dst = append(dst, m.Message...)
	}
	return dst
}

func appendValue(dst []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(dst, "null"...)
	case string:
		return append(dst, x...)
	case []byte:
		return append(dst, x...)
	case int:
		return strconv.AppendInt(dst, int64(x), 10)
	case int64:
		return strconv.AppendInt(dst, x, 10)
	case uint64:
		return strconv.AppendUint(dst, x, 10)
	case bool:
		return strconv.AppendBool(dst, x)
	case float64:
		return strconv.AppendFloat(dst, x, 'g', -1, 64)
	case error:
		return append(dst, x.Error()...)
	case fmt.Stringer:
		return append(dst, x.String()...)
	default:
		return fmt.Append(dst, x)
	}
}
