package sampler

import (
	"math"
	"sync"

	"github.com/san-kum/choreo/internal/host"
)

// DefaultScrollScale is the per-frame scroll distance, in pixels, that
// counts as full scroll velocity.
const DefaultScrollScale = 60.0

type ScrollSampler struct {
	mu         sync.Mutex
	buf        *Buffer
	scale      float64
	tracker    velocityTracker
	lastOffset float64
	cancel     func()
}

func NewScrollSampler(buf *Buffer) *ScrollSampler {
	return &ScrollSampler{buf: buf, scale: DefaultScrollScale}
}

func (s *ScrollSampler) Attach(doc host.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.cancel = doc.Listen(host.KindScroll, s.Sample)
}

func (s *ScrollSampler) Detach() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.tracker.reset()
	s.lastOffset = 0
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *ScrollSampler) Sample(ev host.Event) {
	s.mu.Lock()
	offset := math.Max(0, ev.Offset)
	v := s.tracker.observe(math.Abs(offset-s.lastOffset), ev.At)
	s.lastOffset = offset
	speed := clamp01(v / s.scale)
	s.mu.Unlock()

	progress := 0.0
	if ev.Max > 0 {
		progress = clamp01(offset / ev.Max)
	}

	s.buf.stage(func(r *Raw) {
		r.ScrollOffset = offset
		r.ScrollMax = ev.Max
		r.ScrollProgress = progress
		r.ScrollVelocity = math.Max(r.ScrollVelocity, speed)
		r.ScrollFresh = true
	})
}
