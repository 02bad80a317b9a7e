// Package trace holds the recorded frames of one engine run.
package trace

import (
	"sort"
	"time"

	"github.com/san-kum/choreo/internal/signal"
)

// Meta describes a run.
type Meta struct {
	ID         string             `json:"id"`
	Scenario   string             `json:"scenario"`
	Preset     string             `json:"preset"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	DurationMs float64            `json:"duration_ms"`
	Ticks      int                `json:"ticks"`
	Emits      int                `json:"emits"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Sample is one recorded tick.
type Sample struct {
	At       float64       `json:"at"` // ms since start
	Dt       float64       `json:"dt"`
	Section  string        `json:"section"`
	Energy   float64       `json:"energy"`
	Interval float64       `json:"interval"`
	Emitted  bool          `json:"emitted"`
	Live     signal.Vector `json:"live"`
	Target   signal.Vector `json:"target,omitempty"`
}

type Trace struct {
	Meta    Meta     `json:"meta"`
	Samples []Sample `json:"samples"`
}

// Fields returns every live field seen in the trace, in signal order
// followed by unknown names sorted.
func (t *Trace) Fields() []string {
	seen := make(map[string]bool)
	for _, s := range t.Samples {
		for k := range s.Live {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for _, f := range signal.Fields {
		if seen[f.Name] {
			out = append(out, f.Name)
			delete(seen, f.Name)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Column returns a live field over time. Ticks where the field is absent
// repeat the previous value, or 0 before its first appearance.
func (t *Trace) Column(field string) []float64 {
	out := make([]float64, len(t.Samples))
	prev := 0.0
	for i, s := range t.Samples {
		if v, ok := s.Live[field]; ok {
			prev = v
		}
		out[i] = prev
	}
	return out
}

func (t *Trace) Times() []float64 {
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = s.At
	}
	return out
}

// Emits returns the times of emitted ticks.
func (t *Trace) Emits() []float64 {
	var out []float64
	for _, s := range t.Samples {
		if s.Emitted {
			out = append(out, s.At)
		}
	}
	return out
}

// MeanDt returns the average tick length in ms.
func (t *Trace) MeanDt() float64 {
	if len(t.Samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range t.Samples {
		sum += s.Dt
	}
	return sum / float64(len(t.Samples))
}
