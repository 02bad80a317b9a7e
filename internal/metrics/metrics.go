// Package metrics summarizes a run frame by frame.
package metrics

import "github.com/san-kum/choreo/internal/signal"

// Sample is one tick as seen by a metric.
type Sample struct {
	At      float64 // ms since run start
	Section string
	Live    signal.Vector
	Target  signal.Vector
	Energy  float64
	Emitted bool
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Default returns the metric set recorded for every run.
func Default() []Metric {
	return []Metric{
		NewEmitRate(),
		NewMaxGap(),
		NewMinGap(),
		NewTrackingError(),
		NewMeanEnergy(),
		NewInRange(),
		NewSectionSwitches(),
	}
}

// Collect returns metric values keyed by name.
func Collect(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
