package sampler

import (
	"testing"
	"time"

	"github.com/san-kum/choreo/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointerAt(x, y float64, ms int) host.Event {
	return host.Event{Kind: host.KindPointer, X: x, Y: y, At: time.Duration(ms) * time.Millisecond}
}

func TestPointerSampler_VelocityBlend(t *testing.T) {
	buf := NewBuffer()
	p := NewPointerSampler(buf, Viewport{Width: 1000, Height: 1000})

	p.Sample(pointerAt(500, 500, 0))
	raw := buf.Drain()
	assert.Equal(t, 0.0, raw.PointerVelocity)
	assert.True(t, raw.PointerFresh)
	assert.InDelta(t, 0, raw.PointerX, 1e-9)

	p.Sample(pointerAt(520, 500, 16))
	raw = buf.Drain()
	// 0.02 per frame * 0.7 blend * scale 20
	assert.InDelta(t, 0.28, raw.PointerVelocity, 1e-9)

	p.Sample(pointerAt(540, 500, 32))
	raw = buf.Drain()
	// (0.02*0.7 + 0.014*0.3) * 20
	assert.InDelta(t, 0.364, raw.PointerVelocity, 1e-9)
	assert.InDelta(t, 0.08, raw.PointerX, 1e-9)
}

func TestPointerSampler_ShortIntervalUsesFrameFloor(t *testing.T) {
	a := NewBuffer()
	fast := NewPointerSampler(a, Viewport{Width: 1000, Height: 1000})
	fast.Sample(pointerAt(500, 500, 0))
	fast.Sample(pointerAt(520, 500, 1))

	b := NewBuffer()
	paced := NewPointerSampler(b, Viewport{Width: 1000, Height: 1000})
	paced.Sample(pointerAt(500, 500, 0))
	paced.Sample(pointerAt(520, 500, 16))

	assert.InDelta(t, b.Drain().PointerVelocity, a.Drain().PointerVelocity, 1e-12)
}

func TestPointerSampler_NormalizedInputWithoutViewport(t *testing.T) {
	buf := NewBuffer()
	p := NewPointerSampler(buf, Viewport{})
	p.Sample(pointerAt(1, 0, 0))
	raw := buf.Drain()
	assert.Equal(t, 1.0, raw.PointerX)
	assert.Equal(t, -1.0, raw.PointerY)
}

func TestBuffer_DrainClearsImpulses(t *testing.T) {
	buf := NewBuffer()
	p := NewPointerSampler(buf, Viewport{Width: 100, Height: 100})
	for i := 0; i < 100; i++ {
		p.Sample(pointerAt(float64(i%10), 50, i/10))
	}
	buf.StagePulse(2)

	assert.Equal(t, 101, buf.Pending())
	raw := buf.Drain()
	assert.Equal(t, 101, raw.Events)
	assert.Equal(t, 1.0, raw.Pulse)
	assert.True(t, raw.Fresh())

	raw = buf.Drain()
	assert.Equal(t, 0, raw.Events)
	assert.Equal(t, 0.0, raw.PointerVelocity)
	assert.False(t, raw.Fresh())
	assert.NotEqual(t, 0.0, raw.PointerX, "position persists across drains")
}

func TestScrollSampler(t *testing.T) {
	buf := NewBuffer()
	s := NewScrollSampler(buf)

	s.Sample(host.Event{Kind: host.KindScroll, Offset: 0, Max: 2000})
	s.Sample(host.Event{Kind: host.KindScroll, Offset: 60, Max: 2000, At: 16 * time.Millisecond})
	raw := buf.Drain()

	assert.InDelta(t, 0.03, raw.ScrollProgress, 1e-9)
	assert.InDelta(t, 0.7, raw.ScrollVelocity, 1e-9)
	assert.True(t, raw.ScrollFresh)
}

func TestScrollSampler_ZeroMax(t *testing.T) {
	buf := NewBuffer()
	s := NewScrollSampler(buf)
	s.Sample(host.Event{Kind: host.KindScroll, Offset: 300})
	assert.Equal(t, 0.0, buf.Drain().ScrollProgress)
}

func TestVisibilitySampler_OnlyTracked(t *testing.T) {
	buf := NewBuffer()
	v := NewVisibilitySampler(buf)
	v.Track("hero")

	v.Sample(host.Event{Kind: host.KindVisibility, Target: "hero", Ratio: 1.4})
	v.Sample(host.Event{Kind: host.KindVisibility, Target: "ghost", Ratio: 0.9})

	raw := buf.Drain()
	assert.Equal(t, map[string]float64{"hero": 1}, raw.Ratios)

	v.Untrack("hero")
	assert.Empty(t, buf.Drain().Ratios)
}

func TestSamplers_AttachDetachIdempotent(t *testing.T) {
	doc := host.NewMemory()
	buf := NewBuffer()
	p := NewPointerSampler(buf, Viewport{})
	s := NewScrollSampler(buf)
	v := NewVisibilitySampler(buf)
	h := NewHoverSampler(buf)

	for i := 0; i < 2; i++ {
		p.Attach(doc)
		s.Attach(doc)
		v.Attach(doc)
		h.Attach(doc)
	}
	assert.Equal(t, 5, doc.ListenerCount())
	assert.True(t, p.Attached())

	for i := 0; i < 2; i++ {
		p.Detach()
		s.Detach()
		v.Detach()
		h.Detach()
	}
	assert.Equal(t, 0, doc.ListenerCount())
	assert.False(t, p.Attached())
}

func TestHoverSampler_MutationAndHover(t *testing.T) {
	doc := host.NewMemory()
	buf := NewBuffer()
	h := NewHoverSampler(buf)
	h.Register("card-1")
	h.Attach(doc)

	doc.Dispatch(host.Event{Kind: host.KindHover, Target: "card-2", On: true})
	assert.Equal(t, 0, buf.Drain().Hovered, "unregistered element ignored")

	doc.Dispatch(host.Event{Kind: host.KindMutation, Added: []string{"card-2"}})
	doc.Dispatch(host.Event{Kind: host.KindHover, Target: "card-1", On: true})
	doc.Dispatch(host.Event{Kind: host.KindHover, Target: "card-2", On: true})
	raw := buf.Drain()
	assert.Equal(t, 2, raw.Hovered)
	assert.True(t, raw.HoverFresh)

	doc.Dispatch(host.Event{Kind: host.KindMutation, Removed: []string{"card-2"}})
	assert.Equal(t, 1, buf.Drain().Hovered)
	assert.Equal(t, 1, h.Len())
}

func TestRegistry_GenerationsAndReuse(t *testing.T) {
	r := NewRegistry()
	a := r.Add("a")
	require.True(t, r.Valid(a))
	assert.Equal(t, a, r.Add("a"))

	require.True(t, r.Remove("a"))
	assert.False(t, r.Valid(a))
	assert.False(t, r.Remove("a"))

	b := r.Add("b")
	assert.Equal(t, a.Index, b.Index, "slot reused")
	assert.NotEqual(t, a.Generation, b.Generation)
	assert.True(t, r.Valid(b))

	assert.True(t, r.SetHovered("b", true))
	assert.True(t, r.SetHovered("b", true))
	assert.Equal(t, 1, r.HoveredCount())
	assert.False(t, r.SetHovered("zzz", true))

	r.Remove("b")
	assert.Equal(t, 0, r.HoveredCount())
	assert.Equal(t, 0, r.Len())
}
