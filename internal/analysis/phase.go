package analysis

import (
	"math"

	"github.com/san-kum/choreo/internal/lowpass"
	"github.com/san-kum/choreo/internal/signal"
	"github.com/san-kum/choreo/internal/trace"
)

type PhasePoint struct {
	X, Rate float64
}

// PhasePortrait2D holds a field against its rate of change per second.
type PhasePortrait2D struct {
	Field  string
	Points []PhasePoint
}

// GeneratePhasePortrait differentiates field across consecutive samples.
// Wrapping fields take the shortest arc.
func GeneratePhasePortrait(tr *trace.Trace, field string) *PhasePortrait2D {
	portrait := &PhasePortrait2D{Field: field}
	if tr == nil || len(tr.Samples) < 2 {
		return portrait
	}

	spec, _ := signal.Spec(field)
	period := spec.Period()
	col := tr.Column(field)
	portrait.Points = make([]PhasePoint, 0, len(col)-1)
	for i := 1; i < len(col); i++ {
		dt := tr.Samples[i].Dt
		if dt <= 0 {
			continue
		}
		d := col[i] - col[i-1]
		if period > 0 {
			d = lowpass.ShortestArc(col[i-1], col[i], period)
		}
		portrait.Points = append(portrait.Points, PhasePoint{X: col[i], Rate: d / dt * 1000})
	}
	return portrait
}

// PeakRate returns the largest absolute rate in the portrait.
func (p *PhasePortrait2D) PeakRate() float64 {
	peak := 0.0
	for _, pt := range p.Points {
		peak = math.Max(peak, math.Abs(pt.Rate))
	}
	return peak
}

// Bounds returns the min and max of each axis.
func (p *PhasePortrait2D) Bounds() (xMin, xMax, rMin, rMax float64) {
	if len(p.Points) == 0 {
		return
	}
	xMin, xMax = math.Inf(1), math.Inf(-1)
	rMin, rMax = math.Inf(1), math.Inf(-1)
	for _, pt := range p.Points {
		xMin = math.Min(xMin, pt.X)
		xMax = math.Max(xMax, pt.X)
		rMin = math.Min(rMin, pt.Rate)
		rMax = math.Max(rMax, pt.Rate)
	}
	return
}
