// Package interp moves the live state toward the target state each frame.
package interp

import (
	"github.com/san-kum/choreo/internal/lowpass"
	"github.com/san-kum/choreo/internal/signal"
)

// DefaultTau is the shared interpolation time constant in milliseconds.
const DefaultTau = 220.0

// Interpolator owns the live state vector.
type Interpolator struct {
	tau  float64
	live signal.Vector
}

func New(tau float64) *Interpolator {
	return &Interpolator{tau: tau, live: signal.Vector{}}
}

// Interpolate advances the live state by dt milliseconds toward target.
// Fields new to the target start at the target value, fields absent from it
// are dropped, discrete fields snap and wrapping fields take the short way
// around.
func (i *Interpolator) Interpolate(dt float64, target signal.Vector) {
	for name := range i.live {
		if _, ok := target[name]; !ok {
			delete(i.live, name)
		}
	}
	for name, want := range target {
		cur, ok := i.live[name]
		if !ok {
			i.live[name] = want
			continue
		}
		spec, known := signal.Spec(name)
		switch {
		case known && spec.Discrete:
			i.live[name] = want
		case known && spec.Wrap:
			i.live[name] = lowpass.StepAngle(cur-spec.Min, want-spec.Min, dt, i.tau, spec.Period()) + spec.Min
		default:
			i.live[name] = lowpass.Step(cur, want, dt, i.tau)
		}
	}
}

// Live returns a copy of the live state.
func (i *Interpolator) Live() signal.Vector { return i.live.Clone() }

// Seed replaces the live state, typically to start from a known vector.
func (i *Interpolator) Seed(v signal.Vector) {
	i.live = v.Clone()
	if i.live == nil {
		i.live = signal.Vector{}
	}
}

func (i *Interpolator) Reset() { i.live = signal.Vector{} }

func (i *Interpolator) Tau() float64 { return i.tau }
