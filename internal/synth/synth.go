// Package synth blends a section profile with the smoothed dynamics into a
// clamped target vector.
package synth

import (
	"math"
	"time"

	"github.com/san-kum/choreo/internal/dynamics"
	"github.com/san-kum/choreo/internal/profile"
	"github.com/san-kum/choreo/internal/signal"
)

// Multiplier names.
const (
	MulIntensity = "intensity"
	MulSpeed     = "speed"
	MulChaos     = "chaos"
	MulGlow      = "glow"
)

const (
	minMultiplier = 0.5
	maxMultiplier = 1.5

	// flourish fields keep 30% of their smoothed history
	flourishDesired = 0.7
	flourishHistory = 0.3
)

// DayPhase maps the wall-clock hour of t to [0,1]: 0 at midnight, 1 at noon.
func DayPhase(t time.Time) float64 {
	h := float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
	return 0.5 - 0.5*math.Cos(2*math.Pi*h/24)
}

// Multipliers derives the global gain factors from dynamics and day phase.
func Multipliers(d dynamics.Dynamics, dayPhase float64) signal.Vector {
	return signal.Vector{
		MulIntensity: clampMul(0.85 + d.Energy*0.4 + dayPhase*0.15),
		MulSpeed:     clampMul(0.9 + d.ScrollVelocity*0.5 + d.PointerVelocity*0.2),
		MulChaos:     clampMul(0.9 + d.PointerVelocity*0.4 + d.HoverActivity*0.2),
		MulGlow:      clampMul(0.8 + d.HoverActivity*0.4 + (1-dayPhase)*0.2),
	}
}

// Neutral returns multipliers that leave every boost unscaled.
func Neutral() signal.Vector {
	return signal.Vector{MulIntensity: 1, MulSpeed: 1, MulChaos: 1, MulGlow: 1}
}

func clampMul(x float64) float64 {
	if math.IsNaN(x) {
		return 1
	}
	return math.Max(minMultiplier, math.Min(maxMultiplier, x))
}

// Synthesize computes the target vector. Every field is clamped to its
// declared range before it is stored. Missing multipliers count as 1.
func Synthesize(p profile.Profile, d dynamics.Dynamics, m signal.Vector, depth float64) signal.Vector {
	mi := m.Or(MulIntensity, 1)
	mc := m.Or(MulChaos, 1)
	ms := m.Or(MulSpeed, 1)

	out := make(signal.Vector, len(signal.Fields))
	set := func(name string, x float64) {
		spec, _ := signal.Spec(name)
		out[name] = spec.Clamp(x)
	}

	set(signal.Intensity, p.Intensity+(d.Energy*0.35+depth*0.15+d.PointerVelocity*0.10)*mi)
	set(signal.Chaos, p.Chaos+(d.PointerVelocity*0.25+d.HoverActivity*0.15)*mc)
	set(signal.Speed, p.Speed+(d.ScrollVelocity*0.8+d.Energy*0.3)*ms)
	set(signal.Hue, p.Hue+d.PointerX*30+depth*20)

	rgb, moire := desiredFlourish(p, d)
	set(signal.RGBOffset, rgb*flourishDesired+d.RGBOffset*flourishHistory)
	set(signal.MoireIntensity, moire*flourishDesired+d.MoireIntensity*flourishHistory)

	if p.HasForm() {
		set(signal.FormMix, p.FormMix+depth*0.2+d.Energy*0.1)
		set(signal.Geometry, p.Geometry)
	}
	return out
}

func desiredFlourish(p profile.Profile, d dynamics.Dynamics) (rgb, moire float64) {
	rgb = p.RGBOffset + d.PointerVelocity*0.004 + d.ScrollVelocity*0.006
	moire = p.MoireIntensity + d.HoverActivity*0.2 + d.ScrollVelocity*0.15
	return rgb, moire
}

// FlourishOf extracts the flourish fields of a target for smoother feedback.
func FlourishOf(target signal.Vector) dynamics.Flourish {
	return dynamics.Flourish{
		RGBOffset:      target[signal.RGBOffset],
		MoireIntensity: target[signal.MoireIntensity],
	}
}
