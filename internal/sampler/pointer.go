package sampler

import (
	"math"
	"sync"

	"github.com/san-kum/choreo/internal/host"
)

// DefaultPointerScale maps a normalized displacement of 0.05 per frame to
// full velocity.
const DefaultPointerScale = 20.0

// Viewport is the page's visible area in pixels. A zero viewport means
// pointer coordinates already arrive normalized to [0, 1].
type Viewport struct {
	Width  float64
	Height float64
}

type PointerSampler struct {
	mu       sync.Mutex
	buf      *Buffer
	viewport Viewport
	scale    float64
	tracker  velocityTracker
	lastX    float64
	lastY    float64
	cancel   func()
}

func NewPointerSampler(buf *Buffer, vp Viewport) *PointerSampler {
	return &PointerSampler{buf: buf, viewport: vp, scale: DefaultPointerScale}
}

func (p *PointerSampler) Attach(doc host.Document) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	p.cancel = doc.Listen(host.KindPointer, p.Sample)
}

func (p *PointerSampler) Detach() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.tracker.reset()
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *PointerSampler) Attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *PointerSampler) SetViewport(vp Viewport) {
	p.mu.Lock()
	p.viewport = vp
	p.mu.Unlock()
}

func (p *PointerSampler) Sample(ev host.Event) {
	p.mu.Lock()
	x, y := p.normalize(ev.X, ev.Y)
	dist := math.Hypot(x-p.lastX, y-p.lastY)
	v := p.tracker.observe(dist, ev.At)
	p.lastX, p.lastY = x, y
	speed := clamp01(v * p.scale)
	p.mu.Unlock()

	p.buf.stage(func(r *Raw) {
		r.PointerX = x*2 - 1
		r.PointerY = y*2 - 1
		r.PointerVelocity = math.Max(r.PointerVelocity, speed)
		r.PointerFresh = true
	})
}

func (p *PointerSampler) normalize(x, y float64) (float64, float64) {
	if p.viewport.Width > 0 {
		x /= p.viewport.Width
	}
	if p.viewport.Height > 0 {
		y /= p.viewport.Height
	}
	return clamp01(x), clamp01(y)
}
