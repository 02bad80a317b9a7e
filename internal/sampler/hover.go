package sampler

import (
	"sync"

	"github.com/san-kum/choreo/internal/host"
)

// HoverSampler keeps the set of hovered elements. Elements inserted after
// attach arrive through mutation events.
type HoverSampler struct {
	mu      sync.Mutex
	buf     *Buffer
	reg     *Registry
	cancels []func()
}

func NewHoverSampler(buf *Buffer) *HoverSampler {
	return &HoverSampler{buf: buf, reg: NewRegistry()}
}

func (h *HoverSampler) Register(keys ...string) {
	h.mu.Lock()
	for _, k := range keys {
		h.reg.Add(k)
	}
	h.mu.Unlock()
}

func (h *HoverSampler) Attach(doc host.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancels != nil {
		return
	}
	h.cancels = []func(){
		doc.Listen(host.KindHover, h.Sample),
		doc.Listen(host.KindMutation, h.Mutate),
	}
}

// Detach stops listening and clears the registry.
func (h *HoverSampler) Detach() {
	h.mu.Lock()
	cancels := h.cancels
	h.cancels = nil
	h.reg.Clear()
	h.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

func (h *HoverSampler) Sample(ev host.Event) {
	h.mu.Lock()
	ok := h.reg.SetHovered(ev.Target, ev.On)
	n := h.reg.HoveredCount()
	h.mu.Unlock()
	if !ok {
		return
	}
	h.stage(n)
}

// Mutate applies element insertions and removals.
func (h *HoverSampler) Mutate(ev host.Event) {
	h.mu.Lock()
	before := h.reg.HoveredCount()
	for _, k := range ev.Added {
		h.reg.Add(k)
	}
	for _, k := range ev.Removed {
		h.reg.Remove(k)
	}
	n := h.reg.HoveredCount()
	h.mu.Unlock()
	if n != before {
		h.stage(n)
	}
}

func (h *HoverSampler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reg.Len()
}

func (h *HoverSampler) stage(n int) {
	h.buf.stage(func(r *Raw) {
		r.Hovered = n
		r.HoverFresh = true
	})
}
