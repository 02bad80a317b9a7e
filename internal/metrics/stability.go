package metrics

import "github.com/san-kum/choreo/internal/signal"

// InRange is the fraction of samples whose target and live vectors stay
// inside every declared field range.
type InRange struct {
	name       string
	violations int
	samples    int
}

func NewInRange() *InRange {
	return &InRange{name: "in_range"}
}

func (s *InRange) Name() string {
	return s.name
}

func (s *InRange) Observe(x Sample) {
	s.samples++
	if !within(x.Target) || !within(x.Live) {
		s.violations++
	}
}

func within(v signal.Vector) bool {
	for name, x := range v {
		spec, ok := signal.Spec(name)
		if !ok {
			continue
		}
		if !spec.Contains(x) {
			return false
		}
	}
	return true
}

func (s *InRange) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *InRange) Reset() {
	s.violations = 0
	s.samples = 0
}
