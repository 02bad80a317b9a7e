package scenario

import (
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
	opensimplex "github.com/ojrac/opensimplex-go"
	"github.com/san-kum/choreo/internal/host"
	"github.com/san-kum/choreo/internal/sampler"
)

// Synthetic describes generated input streams.
type Synthetic struct {
	Pointer *PointerNoise `yaml:"pointer,omitempty"`
	Scroll  *ScrollSpring `yaml:"scroll,omitempty"`
	Hover   *HoverCycle   `yaml:"hover,omitempty"`
}

// PointerNoise wanders the pointer along two simplex noise tracks.
type PointerNoise struct {
	Frequency float64 `yaml:"frequency"` // noise units per second
	Amplitude float64 `yaml:"amplitude"` // fraction of the viewport, [0,1]
	Every     float64 `yaml:"every"`     // ms between events
	From      float64 `yaml:"from"`      // ms
	Until     float64 `yaml:"until"`     // ms, 0 means forever
}

// ScrollSpring scrolls toward each target offset with a damped spring.
type ScrollSpring struct {
	Max       float64        `yaml:"max"`
	Frequency float64        `yaml:"frequency"` // angular frequency
	Damping   float64        `yaml:"damping"`
	Targets   []ScrollTarget `yaml:"targets"`
}

type ScrollTarget struct {
	At     float64 `yaml:"at"` // ms
	Offset float64 `yaml:"offset"`
}

// HoverCycle hovers each element in turn for Period ms.
type HoverCycle struct {
	Elements []string `yaml:"elements"`
	Period   float64  `yaml:"period"`
}

func (s Synthetic) clone() Synthetic {
	c := s
	if s.Pointer != nil {
		p := *s.Pointer
		c.Pointer = &p
	}
	if s.Scroll != nil {
		sc := *s.Scroll
		sc.Targets = append([]ScrollTarget(nil), s.Scroll.Targets...)
		c.Scroll = &sc
	}
	if s.Hover != nil {
		h := *s.Hover
		h.Elements = append([]string(nil), s.Hover.Elements...)
		c.Hover = &h
	}
	return c
}

const (
	visibilityEpsilon = 0.001
	scrollEpsilon     = 0.25
)

// generator turns a Synthetic description into host events tick by tick.
type generator struct {
	syn    Synthetic
	vp     sampler.Viewport
	layout []SectionSpan

	noiseX opensimplex.Noise
	noiseY opensimplex.Noise

	spring    harmonica.Spring
	springDt  float64
	pos, vel  float64
	nextPtr   float64
	ratios    map[string]float64
	hovered   string
	scrolling bool
}

func newGenerator(syn Synthetic, vp sampler.Viewport, layout []SectionSpan, seed int64, tickMs float64) *generator {
	g := &generator{
		syn:    syn,
		vp:     vp,
		layout: layout,
		noiseX: opensimplex.NewNormalized(seed),
		noiseY: opensimplex.NewNormalized(seed + 1),
		ratios: make(map[string]float64),
	}
	if s := syn.Scroll; s != nil {
		g.springDt = tickMs
		g.spring = harmonica.NewSpring(tickMs/1000, s.frequency(), s.damping())
	}
	return g
}

func (s *ScrollSpring) frequency() float64 {
	if s.Frequency > 0 {
		return s.Frequency
	}
	return 6
}

func (s *ScrollSpring) damping() float64 {
	if s.Damping > 0 {
		return s.Damping
	}
	return 1
}

// events returns the input generated in (now-dt, now], in ms.
func (g *generator) events(now, dt float64) []host.Event {
	var out []host.Event
	out = append(out, g.pointer(now, dt)...)
	out = append(out, g.scroll(now, dt)...)
	out = append(out, g.hover(now)...)
	return out
}

func (g *generator) pointer(now, dt float64) []host.Event {
	p := g.syn.Pointer
	if p == nil || now < p.From || (p.Until > 0 && now > p.Until) {
		return nil
	}
	every := p.Every
	if every <= 0 {
		every = 8
	}
	if g.nextPtr < now-dt {
		g.nextPtr = now - dt
	}
	var out []host.Event
	for ; g.nextPtr <= now; g.nextPtr += every {
		t := g.nextPtr / 1000 * p.Frequency
		x := 0.5 + (g.noiseX.Eval2(t, 0)-0.5)*2*p.Amplitude
		y := 0.5 + (g.noiseY.Eval2(0, t)-0.5)*2*p.Amplitude
		out = append(out, host.Event{
			Kind: host.KindPointer,
			At:   msDuration(g.nextPtr),
			X:    clamp(x, 0, 1) * scale(g.vp.Width),
			Y:    clamp(y, 0, 1) * scale(g.vp.Height),
		})
	}
	return out
}

func (g *generator) scroll(now, dt float64) []host.Event {
	s := g.syn.Scroll
	if s == nil {
		return nil
	}
	target, ok := 0.0, false
	for _, t := range s.Targets {
		if t.At <= now {
			target, ok = t.Offset, true
		}
	}
	if !ok {
		return nil
	}
	target = clamp(target, 0, s.Max)

	spring := g.spring
	if dt != g.springDt {
		spring = harmonica.NewSpring(dt/1000, s.frequency(), s.damping())
	}
	prev := g.pos
	g.pos, g.vel = spring.Update(g.pos, g.vel, target)
	g.pos = clamp(g.pos, 0, s.Max)

	if math.Abs(g.pos-prev) < scrollEpsilon && g.scrolling {
		return nil
	}
	g.scrolling = true

	out := []host.Event{{Kind: host.KindScroll, At: msDuration(now), Offset: g.pos, Max: s.Max}}
	for _, span := range g.layout {
		r := g.visibleRatio(span)
		if math.Abs(r-g.ratios[span.ID]) < visibilityEpsilon {
			continue
		}
		g.ratios[span.ID] = r
		out = append(out, host.Event{Kind: host.KindVisibility, At: msDuration(now), Target: span.ID, Ratio: r})
	}
	return out
}

// visibleRatio is the fraction of the section inside the viewport.
func (g *generator) visibleRatio(span SectionSpan) float64 {
	top := g.pos
	bottom := g.pos + scale(g.vp.Height)
	overlap := math.Min(bottom, span.Top+span.Height) - math.Max(top, span.Top)
	if overlap <= 0 {
		return 0
	}
	return clamp(overlap/span.Height, 0, 1)
}

func (g *generator) hover(now float64) []host.Event {
	h := g.syn.Hover
	if h == nil || len(h.Elements) == 0 || h.Period <= 0 {
		return nil
	}
	idx := int(now/h.Period) % len(h.Elements)
	want := h.Elements[idx]
	if want == g.hovered {
		return nil
	}
	var out []host.Event
	if g.hovered != "" {
		out = append(out, host.Event{Kind: host.KindHover, At: msDuration(now), Target: g.hovered, On: false})
	}
	out = append(out, host.Event{Kind: host.KindHover, At: msDuration(now), Target: want, On: true})
	g.hovered = want
	return out
}

// defaultLayout stacks sections one viewport tall each.
func defaultLayout(sections []string, viewportHeight float64) []SectionSpan {
	h := scale(viewportHeight)
	out := make([]SectionSpan, len(sections))
	for i, id := range sections {
		out[i] = SectionSpan{ID: id, Top: float64(i) * h, Height: h}
	}
	return out
}

func scale(v float64) float64 {
	if v > 0 {
		return v
	}
	return 1
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
