package engine

import (
	"sync"
	"time"
)

// TickFunc receives the time elapsed since the previous tick.
type TickFunc func(dt time.Duration)

// TickSource schedules a per-frame callback. The returned cancel func stops
// further calls and is safe to call more than once. It does not wait for
// an in-flight callback.
type TickSource interface {
	Schedule(fn TickFunc) (cancel func())
}

// DefaultFPS is the frame rate of a FrameClock with no explicit rate.
const DefaultFPS = 60

// FrameClock ticks on a time.Ticker and reports measured deltas.
type FrameClock struct {
	FPS int
}

func NewFrameClock(fps int) *FrameClock {
	return &FrameClock{FPS: fps}
}

func (c *FrameClock) Schedule(fn TickFunc) func() {
	fps := c.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				dt := now.Sub(last)
				last = now
				fn(dt)
			}
		}
	}()

	return func() { once.Do(func() { close(stop) }) }
}

// FakeClock delivers ticks only when told to.
type FakeClock struct {
	mu      sync.Mutex
	fns     map[uint64]TickFunc
	next    uint64
	elapsed time.Duration
}

func NewFakeClock() *FakeClock {
	return &FakeClock{fns: make(map[uint64]TickFunc)}
}

func (c *FakeClock) Schedule(fn TickFunc) func() {
	c.mu.Lock()
	id := c.next
	c.next++
	c.fns[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.fns, id)
		c.mu.Unlock()
	}
}

// Advance delivers one tick of dt to every scheduled callback.
func (c *FakeClock) Advance(dt time.Duration) {
	c.mu.Lock()
	c.elapsed += dt
	fns := make([]TickFunc, 0, len(c.fns))
	for i := uint64(0); i < c.next; i++ {
		if fn, ok := c.fns[i]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(dt)
	}
}

// Step delivers n ticks of dt.
func (c *FakeClock) Step(n int, dt time.Duration) {
	for i := 0; i < n; i++ {
		c.Advance(dt)
	}
}

// Pending returns the number of scheduled callbacks.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fns)
}

func (c *FakeClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}
