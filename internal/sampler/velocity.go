package sampler

import (
	"math"
	"time"
)

const (
	frameMs   = 16.0
	blendNew  = 0.7
	blendPrev = 0.3
)

// velocityTracker measures per-frame speed of a 1D or 2D position.
type velocityTracker struct {
	lastAt   time.Duration
	velocity float64
	primed   bool
}

// observe folds a displacement observed at `at` into the blended velocity
// and returns it. The first observation only primes the tracker.
func (v *velocityTracker) observe(dist float64, at time.Duration) float64 {
	if !v.primed {
		v.primed = true
		v.lastAt = at
		return v.velocity
	}
	dt := math.Max(frameMs, float64(at-v.lastAt)/float64(time.Millisecond))
	inst := dist / dt * frameMs
	v.velocity = inst*blendNew + v.velocity*blendPrev
	v.lastAt = at
	return v.velocity
}

func (v *velocityTracker) reset() {
	*v = velocityTracker{}
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
