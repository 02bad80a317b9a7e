// Package host models the page the engine is attached to.
//
// A [Document] delivers input events to registered listeners and answers
// whether a tracked element exists. [Memory] is the in-process
// implementation used by the websocket server, the scenario runner and the
// tests; its listener counts make teardown leaks visible.
package host

import (
	"sort"
	"sync"
	"time"
)

type Kind int

const (
	KindPointer Kind = iota
	KindScroll
	KindVisibility
	KindHover
	KindMutation
	KindDocumentHidden
	KindReducedMotion
)

var kindNames = map[Kind]string{
	KindPointer:        "pointer",
	KindScroll:         "scroll",
	KindVisibility:     "visibility",
	KindHover:          "hover",
	KindMutation:       "mutation",
	KindDocumentHidden: "hidden",
	KindReducedMotion:  "reduced_motion",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a wire name back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Event is one raw input from the page. Only the fields relevant to Kind
// are populated.
type Event struct {
	Kind Kind
	At   time.Duration // host timestamp, monotonic

	X, Y float64 // pointer

	Offset float64 // scroll
	Max    float64

	Target string  // visibility, hover
	Ratio  float64 // visibility
	On     bool    // hover, hidden, reduced motion

	Added   []string // mutation
	Removed []string
}

type Handler func(Event)

// Document is the boundary between the engine and the page.
type Document interface {
	// Listen registers fn for events of kind. The returned cancel func is
	// safe to call more than once.
	Listen(kind Kind, fn Handler) (cancel func())
	HasElement(id string) bool
}

// Memory is an in-process Document.
type Memory struct {
	mu        sync.RWMutex
	listeners map[Kind]map[uint64]Handler
	next      uint64
	elements  map[string]bool
}

func NewMemory(elements ...string) *Memory {
	m := &Memory{
		listeners: make(map[Kind]map[uint64]Handler),
		elements:  make(map[string]bool),
	}
	for _, id := range elements {
		m.elements[id] = true
	}
	return m
}

func (m *Memory) Listen(kind Kind, fn Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	id := m.next
	if m.listeners[kind] == nil {
		m.listeners[kind] = make(map[uint64]Handler)
	}
	m.listeners[kind][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners[kind], id)
			m.mu.Unlock()
		})
	}
}

func (m *Memory) HasElement(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.elements[id]
}

func (m *Memory) AddElement(id string) {
	m.mu.Lock()
	m.elements[id] = true
	m.mu.Unlock()
}

func (m *Memory) RemoveElement(id string) {
	m.mu.Lock()
	delete(m.elements, id)
	m.mu.Unlock()
}

// Elements returns the known element ids in sorted order.
func (m *Memory) Elements() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.elements))
	for id := range m.elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch delivers ev to every listener of its kind. Handlers run outside
// the document lock so they may register or cancel listeners.
func (m *Memory) Dispatch(ev Event) {
	m.mu.RLock()
	handlers := make([]Handler, 0, len(m.listeners[ev.Kind]))
	for _, fn := range m.listeners[ev.Kind] {
		handlers = append(handlers, fn)
	}
	m.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// ListenerCount returns the number of live listeners for the given kinds,
// or for all kinds when none are given.
func (m *Memory) ListenerCount(kinds ...Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(kinds) == 0 {
		n := 0
		for _, ls := range m.listeners {
			n += len(ls)
		}
		return n
	}
	n := 0
	for _, k := range kinds {
		n += len(m.listeners[k])
	}
	return n
}
