package metrics

import "math"

// EmitRate is emits per second over the observed span.
type EmitRate struct {
	name  string
	emits int
	first float64
	last  float64
	seen  bool
}

func NewEmitRate() *EmitRate {
	return &EmitRate{name: "emit_rate"}
}

func (e *EmitRate) Name() string { return e.name }

func (e *EmitRate) Observe(s Sample) {
	if !e.seen {
		e.first = s.At
		e.seen = true
	}
	e.last = s.At
	if s.Emitted {
		e.emits++
	}
}

func (e *EmitRate) Value() float64 {
	span := e.last - e.first
	if span <= 0 {
		return 0
	}
	return float64(e.emits) / (span / 1000)
}

func (e *EmitRate) Reset() {
	*e = EmitRate{name: e.name}
}

// gapTracker records intervals between consecutive emits.
type gapTracker struct {
	lastEmit float64
	emitted  bool
	gaps     []float64
}

func (g *gapTracker) observe(s Sample) {
	if !s.Emitted {
		return
	}
	if g.emitted {
		g.gaps = append(g.gaps, s.At-g.lastEmit)
	}
	g.lastEmit = s.At
	g.emitted = true
}

// MaxGap is the longest interval between two emits, in ms.
type MaxGap struct {
	name string
	g    gapTracker
}

func NewMaxGap() *MaxGap { return &MaxGap{name: "max_gap_ms"} }

func (m *MaxGap) Name() string { return m.name }
func (m *MaxGap) Observe(s Sample) { m.g.observe(s) }
func (m *MaxGap) Reset() { m.g = gapTracker{} }

func (m *MaxGap) Value() float64 {
	max := 0.0
	for _, g := range m.g.gaps {
		max = math.Max(max, g)
	}
	return max
}

// MinGap is the shortest interval between two emits, in ms. It is 0 until
// two emits have been seen.
type MinGap struct {
	name string
	g    gapTracker
}

func NewMinGap() *MinGap { return &MinGap{name: "min_gap_ms"} }

func (m *MinGap) Name() string { return m.name }
func (m *MinGap) Observe(s Sample) { m.g.observe(s) }
func (m *MinGap) Reset() { m.g = gapTracker{} }

func (m *MinGap) Value() float64 {
	if len(m.g.gaps) == 0 {
		return 0
	}
	min := math.Inf(1)
	for _, g := range m.g.gaps {
		min = math.Min(min, g)
	}
	return min
}
