package sampler

import (
	"math"
	"sync"
)

// Raw is the staged input for one tick.
type Raw struct {
	PointerX        float64 // [-1, 1]
	PointerY        float64 // [-1, 1]
	PointerVelocity float64 // [0, 1], peak since last drain

	ScrollOffset   float64
	ScrollMax      float64
	ScrollProgress float64 // [0, 1]
	ScrollVelocity float64 // [0, 1], peak since last drain

	Ratios  map[string]float64
	Hovered int
	Pulse   float64

	PointerFresh bool
	ScrollFresh  bool
	HoverFresh   bool

	Events int
}

// Fresh reports whether any user input or pulse arrived since the last drain.
func (r Raw) Fresh() bool {
	return r.PointerFresh || r.ScrollFresh || r.HoverFresh || r.Pulse > 0
}

type Buffer struct {
	mu  sync.Mutex
	raw Raw
}

func NewBuffer() *Buffer {
	return &Buffer{raw: Raw{Ratios: make(map[string]float64)}}
}

func (b *Buffer) stage(fn func(r *Raw)) {
	b.mu.Lock()
	fn(&b.raw)
	b.raw.Events++
	b.mu.Unlock()
}

// StagePulse records a manual energy stimulus in [0, 1].
func (b *Buffer) StagePulse(intensity float64) {
	if math.IsNaN(intensity) {
		return
	}
	intensity = math.Max(0, math.Min(1, intensity))
	b.stage(func(r *Raw) {
		r.Pulse = math.Max(r.Pulse, intensity)
	})
}

// Drain returns a copy of the staged signals and clears the impulse slots
// (velocities, pulse, freshness, event count). Positions, ratios and the
// hover count persist.
func (b *Buffer) Drain() Raw {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.raw
	out.Ratios = make(map[string]float64, len(b.raw.Ratios))
	for k, v := range b.raw.Ratios {
		out.Ratios[k] = v
	}

	b.raw.PointerVelocity = 0
	b.raw.ScrollVelocity = 0
	b.raw.Pulse = 0
	b.raw.PointerFresh = false
	b.raw.ScrollFresh = false
	b.raw.HoverFresh = false
	b.raw.Events = 0
	return out
}

// Pending returns the number of events staged since the last drain.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.raw.Events
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	b.raw = Raw{Ratios: make(map[string]float64)}
	b.mu.Unlock()
}
