// Package lowpass implements frame-rate independent exponential smoothing.
//
// Each step moves a value toward a target by 1 - exp(-dt/tau) of the
// remaining gap. Three 16 ms steps land on the same value as one 48 ms step,
// so dropped frames do not change where the filter converges.
package lowpass

import "math"

// Alpha returns the fraction of the remaining gap covered in dt.
// Times are in milliseconds. A non-positive tau snaps (alpha 1); a
// non-positive dt holds (alpha 0).
func Alpha(dt, tau float64) float64 {
	if math.IsNaN(dt) || dt <= 0 {
		return 0
	}
	if math.IsNaN(tau) || tau <= 0 {
		return 1
	}
	return 1 - math.Exp(-dt/tau)
}

// Step advances current toward target.
func Step(current, target, dt, tau float64) float64 {
	return current + (target-current)*Alpha(dt, tau)
}

// ShortestArc returns the signed difference to - from on a circle of the
// given period, in (-period/2, period/2].
func ShortestArc(from, to, period float64) float64 {
	d := math.Mod(to-from, period)
	if d > period/2 {
		d -= period
	} else if d <= -period/2 {
		d += period
	}
	return d
}

// StepAngle advances a periodic value toward target along the shortest arc
// and wraps the result into [0, period).
func StepAngle(current, target, dt, tau, period float64) float64 {
	x := current + ShortestArc(current, target, period)*Alpha(dt, tau)
	x = math.Mod(x, period)
	if x < 0 {
		x += period
	}
	if x >= period {
		x = 0
	}
	return x
}

// Filter is a single first-order low-pass channel.
type Filter struct {
	Tau   float64
	value float64
}

func NewFilter(tau, initial float64) *Filter {
	return &Filter{Tau: tau, value: initial}
}

func (f *Filter) Update(target, dt float64) float64 {
	f.value = Step(f.value, target, dt, f.Tau)
	return f.value
}

func (f *Filter) Value() float64 { return f.value }

func (f *Filter) Reset(v float64) { f.value = v }
