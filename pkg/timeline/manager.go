package timeline

import (
	"fmt"
	"sync"
)

// Manager indexes timelines by name, preserving the order they were added.
// It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	timelines map[string]*Timeline
	order     []string
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		timelines: make(map[string]*Timeline),
	}
}

// Add registers a timeline. Names must be unique.
func (m *Manager) Add(t *Timeline) error {
	if t == nil {
		return fmt.Errorf("timeline is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.timelines[t.Name()]; exists {
		return fmt.Errorf("timeline %s already loaded", t.Name())
	}
	m.timelines[t.Name()] = t
	m.order = append(m.order, t.Name())
	return nil
}

// Get returns the named timeline.
func (m *Manager) Get(name string) (*Timeline, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.timelines[name]
	return t, ok
}

// Names lists timeline names in insertion order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// All returns the timelines in insertion order.
func (m *Manager) All() []*Timeline {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Timeline, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.timelines[name])
	}
	return out
}

// Len returns the number of loaded timelines.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Select returns the named timelines in the order given.
// An empty selection returns every timeline.
func (m *Manager) Select(names []string) ([]*Timeline, error) {
	if len(names) == 0 {
		return m.All(), nil
	}

	out := make([]*Timeline, 0, len(names))
	for _, name := range names {
		t, ok := m.Get(name)
		if !ok {
			return nil, fmt.Errorf("timeline %s not found", name)
		}
		out = append(out, t)
	}
	return out, nil
}
