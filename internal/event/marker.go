package event

import (
	"sync"

	"github.com/pkg/errors"
)

// Markers is an arena of named markers. Parent relations are stored as ids
// inside the arena, so marker hierarchies stay acyclic and are never linked
// through raw pointers.
type Markers struct {
	mu      sync.RWMutex
	names   []string
	parents [][]int
	byName  map[string]int
}

// Marker is a handle to a marker owned by a Markers arena.
// The zero Marker means "no marker".
type Marker struct {
	set *Markers
	id  int
}

// NewMarkers creates an empty marker arena.
func NewMarkers() *Markers {
	return &Markers{byName: make(map[string]int)}
}

// Get returns the marker with the given name, creating it if needed.
func (m *Markers) Get(name string) Marker {
	m.mu.RLock()
	id, ok := m.byName[name]
	m.mu.RUnlock()
	if ok {
		return Marker{set: m, id: id}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byName[name]; ok {
		return Marker{set: m, id: id}
	}
	id = len(m.names)
	m.names = append(m.names, name)
	m.parents = append(m.parents, nil)
	m.byName[name] = id
	return Marker{set: m, id: id}
}

// Lookup returns the marker with the given name if it exists.
func (m *Markers) Lookup(name string) (Marker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[name]
	if !ok {
		return Marker{}, false
	}
	return Marker{set: m, id: id}, true
}

// AddParents links child to each parent. A link that would make the
// hierarchy cyclic is rejected and nothing is changed.
func (m *Markers) AddParents(child Marker, parents ...Marker) error {
	if child.set != m {
		return errors.New("markers: child marker belongs to another arena")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range parents {
		if p.set != m {
			return errors.Errorf("markers: parent %q belongs to another arena", p.Name())
		}
		if p.id == child.id || m.reachable(p.id, child.id) {
			return errors.Errorf("markers: adding parent %q to %q creates a cycle", m.names[p.id], m.names[child.id])
		}
	}
	for _, p := range parents {
		if !containsInt(m.parents[child.id], p.id) {
			m.parents[child.id] = append(m.parents[child.id], p.id)
		}
	}
	return nil
}

// reachable reports whether target is from or an ancestor of from. Must be called with lock held.
func (m *Markers) reachable(from, target int) bool {
	stack := []int{from}
	seen := make(map[int]bool)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, m.parents[id]...)
	}
	return false
}

// IsZero reports whether this is the empty marker.
func (mk Marker) IsZero() bool { return mk.set == nil }

// Name returns the marker name, or "" for the zero Marker.
func (mk Marker) Name() string {
	if mk.set == nil {
		return ""
	}
	mk.set.mu.RLock()
	defer mk.set.mu.RUnlock()
	return mk.set.names[mk.id]
}

// Parents returns the names of the direct parents.
func (mk Marker) Parents() []string {
	if mk.set == nil {
		return nil
	}
	mk.set.mu.RLock()
	defer mk.set.mu.RUnlock()
	out := make([]string, 0, len(mk.set.parents[mk.id]))
	for _, p := range mk.set.parents[mk.id] {
		out = append(out, mk.set.names[p])
	}
	return out
}

// IsInstanceOf reports whether the marker is name or descends from a marker called name.
func (mk Marker) IsInstanceOf(name string) bool {
	if mk.set == nil {
		return false
	}
	mk.set.mu.RLock()
	defer mk.set.mu.RUnlock()
	target, ok := mk.set.byName[name]
	if !ok {
		return false
	}
	return mk.set.reachable(mk.id, target)
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
