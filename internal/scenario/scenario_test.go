package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/choreo/internal/config"
	"github.com/san-kum/choreo/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, name string) *Scenario {
	t.Helper()
	sc, err := Builtin(name)
	require.NoError(t, err)
	return sc
}

func TestBuiltins(t *testing.T) {
	names := List()
	assert.Contains(t, names, "scroll-to-1000")
	for _, name := range names {
		_, err := Builtin(name)
		assert.NoError(t, err, name)
	}
	_, err := Builtin("nope")
	assert.Error(t, err)
}

func TestRunner_Idle(t *testing.T) {
	tr, err := NewRunner(config.DefaultConfig()).Run(context.Background(), run(t, "idle"))
	require.NoError(t, err)

	assert.Equal(t, 313, tr.Meta.Ticks)
	assert.Equal(t, "idle", tr.Meta.Scenario)
	assert.Equal(t, 1.0, tr.Meta.Metrics["in_range"])
	assert.LessOrEqual(t, tr.Meta.Metrics["max_gap_ms"], 260.0)
	assert.GreaterOrEqual(t, tr.Meta.Metrics["min_gap_ms"], 16.0)
	assert.Equal(t, float64(tr.Meta.Emits), tr.Meta.Metrics["delivered"])
	for _, s := range tr.Samples {
		assert.Equal(t, "hero", s.Section)
	}
}

func TestRunner_FlickerHoldsSection(t *testing.T) {
	tr, err := NewRunner(config.DefaultConfig()).Run(context.Background(), run(t, "flicker"))
	require.NoError(t, err)
	require.NotEmpty(t, tr.Samples)

	first := tr.Samples[0].Section
	for _, s := range tr.Samples {
		assert.Equal(t, first, s.Section, "at %v", s.At)
	}
	assert.Zero(t, tr.Meta.Metrics["section_switches"])
}

func TestRunner_ScrollTo1000(t *testing.T) {
	tr, err := NewRunner(config.DefaultConfig()).Run(context.Background(), run(t, "scroll-to-1000"))
	require.NoError(t, err)

	last := tr.Samples[len(tr.Samples)-1]
	assert.Equal(t, "features", last.Section)
	assert.Equal(t, 1.0, tr.Meta.Metrics["in_range"])
}

func TestRunner_SuspendedSpansHaveNoFrames(t *testing.T) {
	for _, name := range []string{"hidden-tab", "reduced-motion"} {
		sc := run(t, name)
		tr, err := NewRunner(config.DefaultConfig()).Run(context.Background(), sc)
		require.NoError(t, err)

		off := sc.Steps[1].At
		for _, s := range tr.Samples {
			if s.At > 1010 && s.At < off-5 {
				t.Errorf("%s: unexpected frame at %v", name, s.At)
			}
		}
		assert.NotEmpty(t, tr.Samples)
	}
}

func TestRunner_Deterministic(t *testing.T) {
	r := NewRunner(config.DefaultConfig())
	a, err := r.Run(context.Background(), run(t, "pointer-burst"))
	require.NoError(t, err)
	b, err := r.Run(context.Background(), run(t, "pointer-burst"))
	require.NoError(t, err)

	assert.Equal(t, a.Samples, b.Samples)
	assert.LessOrEqual(t, a.Meta.Metrics["max_gap_ms"], 260.0+1e-6)
	assert.Greater(t, a.Meta.Metrics["mean_energy"], 0.12)
}

func TestRunner_HoverCards(t *testing.T) {
	tr, err := NewRunner(config.DefaultConfig()).Run(context.Background(), run(t, "hover-cards"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, tr.Meta.Metrics["in_range"])
	assert.Greater(t, tr.Meta.Emits, 0)
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(config.DefaultConfig()).Run(ctx, run(t, "idle"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsemble(t *testing.T) {
	e := NewEnsemble(NewRunner(config.DefaultConfig()), 3, 10)
	traces, err := e.Run(context.Background(), run(t, "pointer-burst"))
	require.NoError(t, err)
	require.Len(t, traces, 3)
	for i, tr := range traces {
		assert.Equal(t, int64(10+i), tr.Meta.Seed)
		assert.NotEmpty(t, tr.Samples)
	}
	assert.NotEqual(t, traces[0].Samples, traces[1].Samples)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	data := []byte(`
name: custom
duration: 1
steps:
  - {at: 500, kind: pointer, x: 100, y: 100}
  - {at: 100, kind: pulse, intensity: 0.5}
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	sc, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", sc.Name)
	assert.Equal(t, kindPulse, sc.Steps[0].Kind, "steps are sorted by time")

	ev, ok, err := sc.Steps[1].Event()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, host.KindPointer, ev.Kind)
}

func TestValidate(t *testing.T) {
	bad := []*Scenario{
		{Name: "zero"},
		{Name: "kind", Duration: 1, Steps: []Step{{Kind: "teleport"}}},
		{Name: "time", Duration: 1, Steps: []Step{{At: -1, Kind: "pulse"}}},
		{Name: "layout", Duration: 1, Layout: []SectionSpan{{ID: "hero"}}},
	}
	for _, sc := range bad {
		assert.Error(t, sc.Validate(), sc.Name)
	}
}

func TestGenerator_VisibleRatio(t *testing.T) {
	g := newGenerator(Synthetic{}, config.DefaultConfig().EngineParams().Viewport, nil, 1, 16)
	g.pos = 1000
	assert.InDelta(t, 800.0/900, g.visibleRatio(SectionSpan{ID: "features", Top: 900, Height: 900}), 1e-12)
	assert.Zero(t, g.visibleRatio(SectionSpan{ID: "hero", Top: 0, Height: 900}))
}

func TestFeed(t *testing.T) {
	sc := run(t, "hover-cards")
	params := config.DefaultConfig().EngineParams()
	feed := NewFeed(sc, params)

	elems := feed.Elements()
	assert.Contains(t, elems, "card-5")
	assert.Contains(t, elems, params.Sections[0])

	doc := host.NewMemory(elems...)
	var mutations int
	doc.Listen(host.KindMutation, func(host.Event) { mutations++ })

	assert.False(t, feed.Done())
	feed.Apply(doc, nil, 1000, 16)
	assert.Equal(t, 1, mutations)
	feed.Apply(doc, nil, 2500, 16)
	assert.Equal(t, 2, mutations)
	assert.True(t, feed.Done())
}
