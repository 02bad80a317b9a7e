package sampler

import "sort"

// ElementID is a stable handle into a Registry: a slot index plus the slot's
// generation, so a handle to a removed element never aliases its successor.
type ElementID struct {
	Index      uint32
	Generation uint32
}

type slot struct {
	key        string
	generation uint32
	live       bool
	hovered    bool
}

// Registry tracks hoverable elements with explicit add/remove lifecycle.
// It is not safe for concurrent use; HoverSampler guards it.
type Registry struct {
	slots   []slot
	free    []uint32
	byKey   map[string]ElementID
	hovered int
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]ElementID)}
}

// Add registers key and returns its handle. Adding a known key returns the
// existing handle.
func (r *Registry) Add(key string) ElementID {
	if id, ok := r.byKey[key]; ok {
		return id
	}
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{})
	}
	s := &r.slots[idx]
	s.generation++
	s.key = key
	s.live = true
	s.hovered = false

	id := ElementID{Index: idx, Generation: s.generation}
	r.byKey[key] = id
	return id
}

// Remove unregisters key. A hovered element leaves the hover set.
func (r *Registry) Remove(key string) bool {
	id, ok := r.byKey[key]
	if !ok {
		return false
	}
	s := &r.slots[id.Index]
	if s.hovered {
		r.hovered--
	}
	s.live = false
	s.hovered = false
	s.key = ""
	delete(r.byKey, key)
	r.free = append(r.free, id.Index)
	return true
}

func (r *Registry) Lookup(key string) (ElementID, bool) {
	id, ok := r.byKey[key]
	return id, ok
}

// Valid reports whether id still refers to a live element.
func (r *Registry) Valid(id ElementID) bool {
	if int(id.Index) >= len(r.slots) {
		return false
	}
	s := r.slots[id.Index]
	return s.live && s.generation == id.Generation
}

// SetHovered updates the hover flag of a registered element. It returns
// false for unknown keys.
func (r *Registry) SetHovered(key string, on bool) bool {
	id, ok := r.byKey[key]
	if !ok {
		return false
	}
	s := &r.slots[id.Index]
	if s.hovered == on {
		return true
	}
	s.hovered = on
	if on {
		r.hovered++
	} else {
		r.hovered--
	}
	return true
}

func (r *Registry) HoveredCount() int { return r.hovered }

func (r *Registry) Len() int { return len(r.byKey) }

func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) Clear() {
	r.slots = nil
	r.free = nil
	r.byKey = make(map[string]ElementID)
	r.hovered = 0
}
