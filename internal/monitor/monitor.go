// Package monitor is a terminal view of a running engine.
//
// The model owns an engine on a fake clock and advances it by the measured
// wall time between bubbletea ticks, feeding it a scenario's input. Keys let
// the operator pulse the engine, scroll, hide the document and toggle
// reduced motion while the live fields and energy are charted.
package monitor

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"

	"github.com/san-kum/choreo/internal/config"
	"github.com/san-kum/choreo/internal/engine"
	"github.com/san-kum/choreo/internal/host"
	"github.com/san-kum/choreo/internal/scenario"
	"github.com/san-kum/choreo/internal/signal"
)

const (
	historyCapacity = 240
	barWidth        = 24
	scrollStep      = 120.0
)

type TickMsg time.Time

// recorder collects frames from the engine hook. It is shared by every copy
// of the Model.
type recorder struct {
	last    engine.Frame
	history map[string][]float64
	energy  []float64
	emits   int
	ticks   int
}

func (r *recorder) hook(f engine.Frame) {
	r.last = f
	r.ticks++
	if f.Emitted {
		r.emits++
	}
	for k, v := range f.Live {
		r.history[k] = appendCapped(r.history[k], v)
	}
	r.energy = appendCapped(r.energy, f.Dynamics.Energy)
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

type Model struct {
	eng   *engine.Engine
	doc   *host.Memory
	clock *engine.FakeClock
	feed  *scenario.Feed
	rec   *recorder

	preset    string
	scenario  string
	frameRate time.Duration
	scrollMax float64

	last     time.Time
	elapsed  float64 // ms
	running  bool
	hidden   bool
	reduced  bool
	scroll   float64
	selected int
	theme    int
	showHelp bool
	st       styles
}

// New builds an engine from cfg driven by sc and starts it.
func New(cfg *config.Config, sc *scenario.Scenario, log zerolog.Logger) (Model, error) {
	if err := sc.Validate(); err != nil {
		return Model{}, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return Model{}, err
	}
	params := cfg.EngineParams()
	feed := scenario.NewFeed(sc, params)
	doc := host.NewMemory(feed.Elements()...)
	clock := engine.NewFakeClock()
	rec := &recorder{history: make(map[string][]float64)}

	eng := engine.New(doc, reg, params,
		engine.WithLogger(log),
		engine.WithFrameHook(rec.hook),
	)
	if err := eng.Start(clock); err != nil {
		eng.Close()
		return Model{}, err
	}

	fps := cfg.FPS
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	pages := len(params.Sections) - 1
	if pages < 1 {
		pages = 1
	}
	return Model{
		eng:       eng,
		doc:       doc,
		clock:     clock,
		feed:      feed,
		rec:       rec,
		preset:    cfg.Preset,
		scenario:  sc.Name,
		frameRate: time.Second / time.Duration(fps),
		scrollMax: params.Viewport.Height * float64(pages),
		running:   true,
		reduced:   params.ReducedMotion,
		st:        newStyles(Themes[0]),
	}, nil
}

// Close tears the engine down.
func (m Model) Close() error {
	return m.eng.Close()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "p":
			m.eng.Pulse(1)
		case "j", "down":
			m.scrollBy(scrollStep)
		case "k", "up":
			m.scrollBy(-scrollStep)
		case "h":
			m.hidden = !m.hidden
			m.doc.Dispatch(host.Event{Kind: host.KindDocumentHidden, On: m.hidden})
		case "m":
			m.reduced = !m.reduced
			m.doc.Dispatch(host.Event{Kind: host.KindReducedMotion, On: m.reduced})
		case "tab":
			m.selected = (m.selected + 1) % len(signal.Fields)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			m.st = newStyles(Themes[m.theme])
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		now := time.Time(msg)
		if m.last.IsZero() {
			m.last = now
			return m, m.tick()
		}
		dt := float64(now.Sub(m.last)) / float64(time.Millisecond)
		m.last = now
		if m.running && dt > 0 {
			m.feed.Apply(m.doc, m.eng, m.elapsed+dt, dt)
			m.clock.Advance(time.Duration(dt * float64(time.Millisecond)))
			m.elapsed += dt
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) scrollBy(d float64) {
	m.scroll += d
	if m.scroll < 0 {
		m.scroll = 0
	}
	if m.scroll > m.scrollMax {
		m.scroll = m.scrollMax
	}
	m.doc.Dispatch(host.Event{
		Kind:   host.KindScroll,
		At:     time.Duration(m.elapsed * float64(time.Millisecond)),
		Offset: m.scroll,
		Max:    m.scrollMax,
	})
}

// Field returns the name of the charted field.
func (m Model) Field() string {
	return signal.Fields[m.selected].Name
}

// Elapsed returns the engine time driven so far.
func (m Model) Elapsed() time.Duration {
	return time.Duration(m.elapsed * float64(time.Millisecond))
}

func (m Model) status() string {
	switch {
	case m.reduced:
		return m.st.paused.Render("REDUCED MOTION")
	case m.hidden:
		return m.st.paused.Render("HIDDEN")
	case !m.running:
		return m.st.paused.Render("PAUSED")
	default:
		return m.st.status.Render("LIVE")
	}
}

func (m Model) View() string {
	f := m.rec.last
	var s strings.Builder

	s.WriteString(m.st.header.Render(fmt.Sprintf("CHOREO  %s / %s", m.preset, m.scenario)) + "\n")
	s.WriteString(m.status() + "\n\n")

	row := func(label, value string) {
		s.WriteString(m.st.label.Render(label) + m.st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.1fs", m.elapsed/1000))
	row("Section", fmt.Sprintf("%s (%.2f)", f.Profile, f.Depth))
	row("Energy", fmt.Sprintf("%.3f", f.Dynamics.Energy))
	row("Interval", fmt.Sprintf("%.0fms", f.Interval))
	row("Ticks", humanize.Comma(int64(m.rec.ticks)))
	row("Emits", humanize.Comma(int64(m.rec.emits)))
	stats := m.eng.Bus().Snapshot()
	row("Delivered", fmt.Sprintf("%s sent, %s dropped", humanize.Comma(int64(stats.TotalSent)), humanize.Comma(int64(stats.TotalDropped))))
	s.WriteString("\n")

	for i, spec := range signal.Fields {
		v, ok := f.Live[spec.Name]
		if !ok {
			continue
		}
		frac := (v - spec.Min) / (spec.Max - spec.Min)
		line := fmt.Sprintf("%-15s %s %7.3f", spec.Name, m.st.bar(frac, barWidth), v)
		if i == m.selected {
			s.WriteString(m.st.active.Render("> ") + line + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}
	stateView := m.st.panel.Render(s.String())

	var g strings.Builder
	if hist := m.rec.history[m.Field()]; len(hist) > 1 {
		g.WriteString(asciigraph.Plot(hist, asciigraph.Height(6), asciigraph.Width(40), asciigraph.Caption(m.Field())))
		g.WriteString("\n\n")
	}
	if len(m.rec.energy) > 1 {
		g.WriteString(asciigraph.Plot(m.rec.energy, asciigraph.Height(4), asciigraph.Width(40), asciigraph.Caption("energy")))
	}
	graphView := m.st.graph.Render(g.String())

	view := lipgloss.JoinHorizontal(lipgloss.Top, stateView, "  ", graphView)
	help := "SP:Pause P:Pulse J/K:Scroll H:Hide M:Motion TAB:Field T:Theme Q:Quit"
	if m.showHelp {
		help = strings.Join([]string{
			"Space  pause or resume the clock",
			"P      pulse energy",
			"J/K    scroll down or up",
			"H      toggle document hidden",
			"M      toggle reduced motion",
			"Tab    chart the next field",
			"T      cycle themes",
			"Q      quit",
		}, "\n")
	}
	return view + "\n" + m.st.help.Render(help)
}
