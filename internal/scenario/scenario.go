// Package scenario drives an engine from scripted and synthetic input on a
// deterministic clock and records what it does.
package scenario

import (
	"fmt"
	"os"
	"sort"

	"github.com/san-kum/choreo/internal/host"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt   = 16.0 // ms
	DefaultHour = 12.0
	kindPulse   = "pulse"
)

// Scenario is a timed input script.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Duration    float64       `yaml:"duration"` // seconds
	Dt          float64       `yaml:"dt"`       // ms per tick
	Jitter      float64       `yaml:"jitter"`   // ms, uniform +/-
	Seed        int64         `yaml:"seed"`
	Hour        *float64      `yaml:"hour,omitempty"`
	Layout      []SectionSpan `yaml:"layout"`
	Steps       []Step        `yaml:"steps"`
	Synthetic   Synthetic     `yaml:"synthetic"`
}

// Step is one scripted input at a fixed time.
type Step struct {
	At        float64  `yaml:"at"` // ms
	Kind      string   `yaml:"kind"`
	X         float64  `yaml:"x,omitempty"`
	Y         float64  `yaml:"y,omitempty"`
	Offset    float64  `yaml:"offset,omitempty"`
	Max       float64  `yaml:"max,omitempty"`
	Target    string   `yaml:"target,omitempty"`
	Ratio     float64  `yaml:"ratio,omitempty"`
	On        bool     `yaml:"on,omitempty"`
	Added     []string `yaml:"added,omitempty"`
	Removed   []string `yaml:"removed,omitempty"`
	Intensity float64  `yaml:"intensity,omitempty"`
}

// SectionSpan places a section on the page, in pixels.
type SectionSpan struct {
	ID     string  `yaml:"id"`
	Top    float64 `yaml:"top"`
	Height float64 `yaml:"height"`
}

// Event converts the step into a host event. Pulse steps have no event.
func (s Step) Event() (host.Event, bool, error) {
	if s.Kind == kindPulse {
		return host.Event{}, false, nil
	}
	kind, ok := host.ParseKind(s.Kind)
	if !ok {
		return host.Event{}, false, fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return host.Event{
		Kind:    kind,
		At:      msDuration(s.At),
		X:       s.X,
		Y:       s.Y,
		Offset:  s.Offset,
		Max:     s.Max,
		Target:  s.Target,
		Ratio:   s.Ratio,
		On:      s.On,
		Added:   s.Added,
		Removed: s.Removed,
	}, true, nil
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks the script and sorts its steps by time.
func (sc *Scenario) Validate() error {
	if sc.Duration <= 0 {
		return fmt.Errorf("scenario %q: duration must be positive", sc.Name)
	}
	if sc.Dt < 0 || sc.Jitter < 0 {
		return fmt.Errorf("scenario %q: dt and jitter must not be negative", sc.Name)
	}
	if sc.Hour != nil && (*sc.Hour < 0 || *sc.Hour >= 24) {
		return fmt.Errorf("scenario %q: hour must be in [0,24)", sc.Name)
	}
	for i, st := range sc.Steps {
		if st.At < 0 {
			return fmt.Errorf("scenario %q step %d: negative time", sc.Name, i+1)
		}
		if _, _, err := st.Event(); err != nil {
			return fmt.Errorf("scenario %q step %d: %w", sc.Name, i+1, err)
		}
	}
	for _, span := range sc.Layout {
		if span.Height <= 0 {
			return fmt.Errorf("scenario %q: section %q needs a positive height", sc.Name, span.ID)
		}
	}
	sort.SliceStable(sc.Steps, func(i, j int) bool { return sc.Steps[i].At < sc.Steps[j].At })
	return nil
}

func (sc *Scenario) tick() float64 {
	if sc.Dt > 0 {
		return sc.Dt
	}
	return DefaultDt
}

func (sc *Scenario) hour() float64 {
	if sc.Hour != nil {
		return *sc.Hour
	}
	return DefaultHour
}

// Clone returns a deep copy.
func (sc *Scenario) Clone() *Scenario {
	c := *sc
	if sc.Hour != nil {
		h := *sc.Hour
		c.Hour = &h
	}
	c.Layout = append([]SectionSpan(nil), sc.Layout...)
	c.Steps = make([]Step, len(sc.Steps))
	for i, st := range sc.Steps {
		st.Added = append([]string(nil), st.Added...)
		st.Removed = append([]string(nil), st.Removed...)
		c.Steps[i] = st
	}
	c.Synthetic = sc.Synthetic.clone()
	return &c
}
