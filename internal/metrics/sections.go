package metrics

// SectionSwitches counts changes of the active section.
type SectionSwitches struct {
	name     string
	last     string
	seen     bool
	switches int
}

func NewSectionSwitches() *SectionSwitches {
	return &SectionSwitches{name: "section_switches"}
}

func (s *SectionSwitches) Name() string { return s.name }

func (s *SectionSwitches) Observe(sm Sample) {
	if s.seen && sm.Section != s.last {
		s.switches++
	}
	s.last = sm.Section
	s.seen = true
}

func (s *SectionSwitches) Value() float64 { return float64(s.switches) }

func (s *SectionSwitches) Reset() {
	s.last = ""
	s.seen = false
	s.switches = 0
}
