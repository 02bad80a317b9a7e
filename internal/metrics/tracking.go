package metrics

import (
	"math"

	"github.com/san-kum/choreo/internal/lowpass"
	"github.com/san-kum/choreo/internal/signal"
)

// TrackingError is the mean live-to-target distance, each field normalized
// by its range so fields of different scale weigh the same.
type TrackingError struct {
	name    string
	sum     float64
	samples int
}

func NewTrackingError() *TrackingError {
	return &TrackingError{name: "tracking_error"}
}

func (c *TrackingError) Name() string {
	return c.name
}

func (c *TrackingError) Observe(s Sample) {
	n := 0
	total := 0.0
	for name, want := range s.Target {
		got, ok := s.Live[name]
		if !ok {
			continue
		}
		spec, known := signal.Spec(name)
		if !known || spec.Max <= spec.Min {
			continue
		}
		d := math.Abs(want - got)
		if spec.Wrap {
			d = math.Abs(lowpass.ShortestArc(got, want, spec.Period()))
		}
		total += d / (spec.Max - spec.Min)
		n++
	}
	if n == 0 {
		return
	}
	c.sum += total / float64(n)
	c.samples++
}

func (c *TrackingError) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *TrackingError) Reset() {
	c.sum = 0
	c.samples = 0
}
