package broadcast

import (
	"math"

	"github.com/san-kum/choreo/internal/lowpass"
	"github.com/san-kum/choreo/internal/signal"
)

// GateParams tunes the emit budget. Times are in milliseconds.
type GateParams struct {
	MinInterval     float64
	NominalInterval float64
	IdleCeiling     float64
	RelaxTau        float64
	// Horizon is the largest tick delta the gate must plan for. Calm
	// keep-alives go out on the first tick past IdleCeiling-Horizon, so the
	// idle cadence sits below IdleCeiling by up to Horizon (about 224 ms
	// with the defaults).
	Horizon    float64
	Thresholds map[string]float64
}

func DefaultThresholds() map[string]float64 {
	return map[string]float64{
		StateKey(signal.Intensity):      0.004,
		StateKey(signal.Chaos):          0.004,
		StateKey(signal.Speed):          0.01,
		StateKey(signal.Hue):            0.5,
		StateKey(signal.RGBOffset):      0.0004,
		StateKey(signal.MoireIntensity): 0.005,
		StateKey(signal.FormMix):        0.01,
		StateKey(signal.Geometry):       0.5,
		MultiplierKey("intensity"):      0.01,
		MultiplierKey("speed"):          0.01,
		MultiplierKey("chaos"):          0.01,
		MultiplierKey("glow"):           0.01,
		CtxScroll:                       0.01,
		CtxUserEnergy:                   0.02,
		CtxMouseActivity:                0.02,
		CtxScrollVelocity:               0.02,
		CtxHoveredCount:                 0.5,
	}
}

func DefaultGateParams() GateParams {
	return GateParams{
		MinInterval:     16,
		NominalInterval: 33,
		IdleCeiling:     260,
		RelaxTau:        400,
		Horizon:         48,
		Thresholds:      DefaultThresholds(),
	}
}

// Gate rate-limits emits by urgency.
type Gate struct {
	p         GateParams
	interval  float64
	sinceEmit float64
	last      *Payload
	emits     uint64
	primed    bool // an emit has happened; sinceEmit is meaningful
}

func NewGate(p GateParams) *Gate {
	g := &Gate{p: p}
	g.Reset()
	return g
}

// Reset forgets the baseline and the adaptive interval. Emit timing
// survives: the next payload goes out as soon as MinInterval has passed
// since the previous emit.
func (g *Gate) Reset() {
	g.interval = g.p.NominalInterval
	g.last = nil
}

// Ready reports whether an emit now would keep MinInterval since the
// previous one.
func (g *Gate) Ready() bool {
	return !g.primed || g.sinceEmit >= g.p.MinInterval
}

// Elapse accounts for dt milliseconds in which no payload is offered.
func (g *Gate) Elapse(dt float64) {
	if dt > 0 {
		g.sinceEmit += dt
	}
}

// Record makes payload, emitted outside MaybeEmit, the new baseline and
// restarts emit timing.
func (g *Gate) Record(payload Payload) {
	snap := payload.Clone()
	g.last = &snap
	g.sinceEmit = 0
	g.primed = true
	g.emits++
}

// Magnitude returns the largest threshold-normalized change between prev
// and next. A missing baseline, a section change or a changed key set is
// infinitely urgent, as is any non-zero change on a field without a usable
// threshold.
func Magnitude(prev *Payload, next Payload, thresholds map[string]float64) float64 {
	if prev == nil || prev.Context.Section != next.Context.Section {
		return math.Inf(1)
	}
	if !prev.State.SameKeys(next.State) || !prev.Multipliers.SameKeys(next.Multipliers) {
		return math.Inf(1)
	}
	a, b := prev.Flatten(), next.Flatten()
	max := 0.0
	for k, nv := range b {
		d := math.Abs(nv - a[k])
		if d == 0 {
			continue
		}
		th, ok := thresholds[k]
		if !ok || th <= 0 || math.IsNaN(th) || math.IsInf(th, 0) || math.IsNaN(d) {
			return math.Inf(1)
		}
		if r := d / th; r > max {
			max = r
		}
	}
	return max
}

// MaybeEmit accounts for dt milliseconds and reports whether payload
// should be emitted now. The returned payload is a deep copy owned by the
// caller.
func (g *Gate) MaybeEmit(dt float64, payload Payload) (Payload, bool) {
	g.sinceEmit += dt
	mag := Magnitude(g.last, payload, g.p.Thresholds)

	g.interval = lowpass.Step(g.interval, g.p.NominalInterval, dt, g.p.RelaxTau)
	urgency := math.Min(1, mag)
	g.interval -= (g.interval - g.p.MinInterval) * urgency
	g.interval = math.Max(g.p.MinInterval, math.Min(g.p.NominalInterval, g.interval))

	emit := false
	switch {
	case g.last == nil:
		emit = g.Ready()
	case mag >= 1 && g.sinceEmit >= g.interval:
		emit = true
	case g.sinceEmit >= g.p.MinInterval && g.sinceEmit+g.p.Horizon > g.p.IdleCeiling:
		emit = true
	}
	if !emit {
		return Payload{}, false
	}

	g.Record(payload)
	return payload.Clone(), true
}

// Interval returns the current adaptive interval in milliseconds.
func (g *Gate) Interval() float64 { return g.interval }

// SinceEmit returns the milliseconds accumulated since the last emit.
func (g *Gate) SinceEmit() float64 { return g.sinceEmit }

func (g *Gate) Emits() uint64 { return g.emits }

// Last returns a copy of the last emitted payload.
func (g *Gate) Last() (Payload, bool) {
	if g.last == nil {
		return Payload{}, false
	}
	return g.last.Clone(), true
}

func (g *Gate) Params() GateParams { return g.p }
