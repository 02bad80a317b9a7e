package scenario

import (
	"github.com/san-kum/choreo/internal/engine"
	"github.com/san-kum/choreo/internal/host"
)

// Feed produces a scenario's input tick by tick: scripted steps due by the
// end of the tick first, then synthetic events.
type Feed struct {
	sc       *Scenario
	gen      *generator
	elements []string
	next     int
}

// NewFeed prepares sc for an engine built with p. sc must be valid.
func NewFeed(sc *Scenario, p engine.Params) *Feed {
	layout := sc.Layout
	if len(layout) == 0 && sc.Synthetic.Scroll != nil {
		layout = defaultLayout(p.Sections, p.Viewport.Height)
	}
	return &Feed{
		sc:       sc,
		gen:      newGenerator(sc.Synthetic, p.Viewport, layout, sc.Seed, sc.tick()),
		elements: elements(p, sc, layout),
	}
}

// Elements lists every id the scenario's document must contain.
func (f *Feed) Elements() []string {
	return append([]string(nil), f.elements...)
}

// Done reports whether every scripted step has been applied.
func (f *Feed) Done() bool { return f.next >= len(f.sc.Steps) }

// Apply dispatches the input for the tick ending at end (ms) into doc and
// pulses into eng.
func (f *Feed) Apply(doc *host.Memory, eng *engine.Engine, end, dt float64) {
	for ; f.next < len(f.sc.Steps) && f.sc.Steps[f.next].At <= end; f.next++ {
		st := f.sc.Steps[f.next]
		if st.Kind == kindPulse {
			eng.Pulse(st.Intensity)
			continue
		}
		ev, _, _ := st.Event()
		doc.Dispatch(ev)
	}
	for _, ev := range f.gen.events(end, dt) {
		doc.Dispatch(ev)
	}
}

func elements(p engine.Params, sc *Scenario, layout []SectionSpan) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ids ...string) {
		for _, id := range ids {
			if id != "" && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	add(p.Sections...)
	add(p.Hoverables...)
	for _, span := range layout {
		add(span.ID)
	}
	if h := sc.Synthetic.Hover; h != nil {
		add(h.Elements...)
	}
	return out
}
