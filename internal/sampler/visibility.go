package sampler

import (
	"sort"
	"sync"

	"github.com/san-kum/choreo/internal/host"
)

// VisibilitySampler stages intersection ratios for tracked sections.
type VisibilitySampler struct {
	mu      sync.Mutex
	buf     *Buffer
	tracked map[string]bool
	cancel  func()
}

func NewVisibilitySampler(buf *Buffer) *VisibilitySampler {
	return &VisibilitySampler{buf: buf, tracked: make(map[string]bool)}
}

func (v *VisibilitySampler) Track(id string) {
	v.mu.Lock()
	v.tracked[id] = true
	v.mu.Unlock()
}

func (v *VisibilitySampler) Untrack(id string) {
	v.mu.Lock()
	delete(v.tracked, id)
	v.mu.Unlock()
	v.buf.stage(func(r *Raw) { delete(r.Ratios, id) })
}

func (v *VisibilitySampler) Tracked() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]string, 0, len(v.tracked))
	for id := range v.tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (v *VisibilitySampler) Attach(doc host.Document) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		return
	}
	v.cancel = doc.Listen(host.KindVisibility, v.Sample)
}

// Detach stops observing and forgets every tracked section.
func (v *VisibilitySampler) Detach() {
	v.mu.Lock()
	cancel := v.cancel
	v.cancel = nil
	v.tracked = make(map[string]bool)
	v.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (v *VisibilitySampler) Sample(ev host.Event) {
	v.mu.Lock()
	ok := v.tracked[ev.Target]
	v.mu.Unlock()
	if !ok {
		return
	}
	ratio := clamp01(ev.Ratio)
	v.buf.stage(func(r *Raw) {
		r.Ratios[ev.Target] = ratio
	})
}
