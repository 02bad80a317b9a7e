package engine

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/san-kum/choreo/internal/broadcast"
	"github.com/san-kum/choreo/internal/dynamics"
	"github.com/san-kum/choreo/internal/host"
	"github.com/san-kum/choreo/internal/interp"
	"github.com/san-kum/choreo/internal/profile"
	"github.com/san-kum/choreo/internal/sampler"
	"github.com/san-kum/choreo/internal/signal"
	"github.com/san-kum/choreo/internal/synth"
)

// Params collects every tunable of the loop.
type Params struct {
	Sections   []string
	Hoverables []string
	Viewport   sampler.Viewport

	Dynamics  dynamics.Params
	Resolver  profile.ResolverParams
	Gate      broadcast.GateParams
	InterpTau float64 // ms

	MaxDelta      time.Duration
	FallbackDelta time.Duration

	// ReducedMotion starts the engine in the static fallback.
	ReducedMotion bool
}

func DefaultParams() Params {
	return Params{
		Dynamics:      dynamics.DefaultParams(),
		Resolver:      profile.DefaultResolverParams(),
		Gate:          broadcast.DefaultGateParams(),
		InterpTau:     interp.DefaultTau,
		MaxDelta:      48 * time.Millisecond,
		FallbackDelta: 16 * time.Millisecond,
	}
}

// Frame describes one completed tick.
type Frame struct {
	Elapsed     time.Duration
	Dt          float64 // ms, after sanitizing
	Section     string
	Profile     string
	Depth       float64
	Dynamics    dynamics.Dynamics
	Target      signal.Vector
	Live        signal.Vector
	Multipliers signal.Vector
	Emitted     bool
	Interval    float64
	Events      int
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l.With().Str("component", "engine").Logger() }
}

// WithClock replaces the wall clock used for the day phase.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFrameHook registers fn to observe every computed tick. fn runs on
// the ticking goroutine after the engine lock is released.
func WithFrameHook(fn func(Frame)) Option {
	return func(e *Engine) { e.hook = fn }
}

type Engine struct {
	mu  sync.Mutex
	log zerolog.Logger
	now func() time.Time

	doc      host.Document
	registry *profile.Registry
	p        Params

	buf        *sampler.Buffer
	pointer    *sampler.PointerSampler
	scroll     *sampler.ScrollSampler
	visibility *sampler.VisibilitySampler
	hover      *sampler.HoverSampler

	smoother *dynamics.Smoother
	resolver *profile.Resolver
	interp   *interp.Interpolator
	gate     *broadcast.Gate
	bus      *broadcast.Bus

	source    TickSource
	cancel    func()
	static    func() // cancels a deferred static emit
	lifecycle []func()
	started   bool
	looping   bool
	hidden    bool
	reduced   bool
	closed    bool
	elapsed   time.Duration

	state atomic.Pointer[broadcast.Payload]
	hook  func(Frame)
}

func New(doc host.Document, registry *profile.Registry, p Params, opts ...Option) *Engine {
	if ms := durationMs(p.MaxDelta); p.Gate.Horizon < ms {
		p.Gate.Horizon = ms
	}
	buf := sampler.NewBuffer()
	e := &Engine{
		log:        zerolog.Nop(),
		now:        time.Now,
		doc:        doc,
		registry:   registry,
		p:          p,
		buf:        buf,
		pointer:    sampler.NewPointerSampler(buf, p.Viewport),
		scroll:     sampler.NewScrollSampler(buf),
		visibility: sampler.NewVisibilitySampler(buf),
		hover:      sampler.NewHoverSampler(buf),
		smoother:   dynamics.New(p.Dynamics),
		resolver:   profile.NewResolver(p.Resolver),
		interp:     interp.New(p.InterpTau),
		gate:       broadcast.NewGate(p.Gate),
		bus:        broadcast.NewBus(),
		reduced:    p.ReducedMotion,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start attaches to the document and schedules the tick.
func (e *Engine) Start(src TickSource) error {
	if src == nil {
		return signal.ErrNilTickSource
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return signal.ErrTornDown
	}
	if e.started {
		e.mu.Unlock()
		return signal.ErrEngineStarted
	}
	e.started = true
	e.source = src
	e.lifecycle = []func(){
		e.doc.Listen(host.KindDocumentHidden, e.onHidden),
		e.doc.Listen(host.KindReducedMotion, e.onReducedMotion),
	}
	reduced := e.reduced
	if !reduced {
		e.startLoop()
	} else {
		e.requestStatic()
	}
	e.mu.Unlock()

	if reduced {
		e.bus.Flush()
	}
	e.log.Info().Bool("reduced_motion", reduced).Msg("engine started")
	return nil
}

// startLoop attaches the samplers and schedules ticks. Callers hold e.mu.
func (e *Engine) startLoop() {
	if e.looping {
		return
	}
	for _, id := range e.p.Sections {
		if !e.doc.HasElement(id) {
			e.log.Warn().Str("section", id).Msg("section element not found, skipping")
			continue
		}
		e.visibility.Track(id)
	}
	var hoverables []string
	for _, id := range e.p.Hoverables {
		if e.doc.HasElement(id) {
			hoverables = append(hoverables, id)
		}
	}
	e.hover.Register(hoverables...)

	e.pointer.Attach(e.doc)
	e.scroll.Attach(e.doc)
	e.visibility.Attach(e.doc)
	e.hover.Attach(e.doc)

	e.cancel = e.source.Schedule(e.Tick)
	e.looping = true
}

// stopLoop detaches samplers, cancels the tick and clears every buffer.
// Callers hold e.mu.
func (e *Engine) stopLoop() {
	if !e.looping {
		return
	}
	e.looping = false
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.pointer.Detach()
	e.scroll.Detach()
	e.visibility.Detach()
	e.hover.Detach()

	e.buf.Reset()
	e.smoother.Reset()
	e.resolver.Reset()
	e.interp.Reset()
	e.gate.Reset()
	e.elapsed = 0
}

// Teardown stops the engine and removes every listener it installed.
// Calling it again is a no-op.
func (e *Engine) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardown()
}

func (e *Engine) teardown() {
	if !e.started {
		return
	}
	e.stopLoop()
	e.cancelStatic()
	for _, c := range e.lifecycle {
		c()
	}
	e.lifecycle = nil
	e.started = false
	e.hidden = false
	e.source = nil
	e.log.Info().Msg("engine torn down")
}

// Close tears the engine down and closes its bus.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.teardown()
	e.closed = true
	e.mu.Unlock()
	return e.bus.Close()
}

func (e *Engine) onHidden(ev host.Event) {
	e.mu.Lock()
	e.hidden = ev.On
	e.mu.Unlock()
	e.log.Debug().Bool("hidden", ev.On).Msg("visibility changed")
}

func (e *Engine) onReducedMotion(ev host.Event) {
	e.mu.Lock()
	if !e.started || e.reduced == ev.On {
		e.reduced = ev.On
		e.mu.Unlock()
		return
	}
	e.reduced = ev.On
	if ev.On {
		e.stopLoop()
		e.requestStatic()
	} else {
		e.cancelStatic()
		e.startLoop()
	}
	e.mu.Unlock()

	if ev.On {
		e.bus.Flush()
	}
	e.log.Info().Bool("reduced_motion", ev.On).Msg("motion preference changed")
}

// requestStatic emits the static state now, or on the first tick that keeps
// the minimum gap to the previous emit. Callers hold e.mu.
func (e *Engine) requestStatic() {
	if e.gate.Ready() {
		e.emitStatic()
		return
	}
	if e.static == nil {
		e.static = e.source.Schedule(e.staticTick)
	}
}

func (e *Engine) staticTick(dt time.Duration) {
	e.mu.Lock()
	if e.static == nil {
		e.mu.Unlock()
		return
	}
	e.gate.Elapse(e.sanitize(durationMs(dt)))
	if !e.gate.Ready() {
		e.mu.Unlock()
		return
	}
	e.cancelStatic()
	e.emitStatic()
	e.mu.Unlock()
	e.bus.Flush()
}

// cancelStatic drops a deferred static emit. Callers hold e.mu.
func (e *Engine) cancelStatic() {
	if e.static != nil {
		e.static()
		e.static = nil
	}
}

// emitStatic publishes the default profile at rest and makes it the gate's
// baseline. Callers hold e.mu.
func (e *Engine) emitStatic() {
	key, prof := e.registry.Default()
	mult := synth.Neutral()
	payload := broadcast.Payload{
		State:       synth.Synthesize(prof, dynamics.Dynamics{}, mult, 0),
		Multipliers: mult,
		Context:     broadcast.Context{Section: key},
	}
	e.state.Store(&payload)
	e.gate.Record(payload)
	if err := e.bus.Publish(payload.Clone()); err != nil {
		e.log.Debug().Err(err).Msg("static state not published")
	}
}

// Tick runs one frame. Bad deltas fall back to the default frame; large
// ones are clamped.
func (e *Engine) Tick(dt time.Duration) {
	e.TickMs(durationMs(dt))
}

// TickMs is Tick with the delta in milliseconds.
func (e *Engine) TickMs(dt float64) {
	e.mu.Lock()
	if !e.looping || e.hidden {
		e.mu.Unlock()
		return
	}
	frame := e.step(e.sanitize(dt))
	e.mu.Unlock()

	e.bus.Flush()
	if e.hook != nil {
		e.hook(frame)
	}
}

func (e *Engine) sanitize(dt float64) float64 {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return durationMs(e.p.FallbackDelta)
	}
	return math.Min(dt, durationMs(e.p.MaxDelta))
}

func (e *Engine) step(dt float64) Frame {
	raw := e.buf.Drain()
	e.smoother.Tick(dt, raw)
	d := e.smoother.Dynamics()

	section, depth := e.resolver.Resolve(raw.Ratios)
	key, prof := e.registry.Lookup(section)
	if section == "" {
		section = key
	}

	mult := synth.Multipliers(d, synth.DayPhase(e.now()))
	target := synth.Synthesize(prof, d, mult, depth)
	e.smoother.Feed(synth.FlourishOf(target))
	e.interp.Interpolate(dt, target)
	live := e.interp.Live()

	payload := broadcast.Payload{
		State:       live,
		Multipliers: mult,
		Context: broadcast.Context{
			Section:        section,
			Scroll:         d.ScrollProgress,
			UserEnergy:     d.Energy,
			MouseActivity:  d.PointerVelocity,
			ScrollVelocity: d.ScrollVelocity,
			HoveredCount:   float64(raw.Hovered),
		},
	}
	snap := payload.Clone()
	e.state.Store(&snap)

	out, emitted := e.gate.MaybeEmit(dt, payload)
	if emitted {
		if err := e.bus.Publish(out); err != nil {
			e.log.Debug().Err(err).Msg("payload not published")
		}
	}

	e.elapsed += time.Duration(dt * float64(time.Millisecond))
	return Frame{
		Elapsed:     e.elapsed,
		Dt:          dt,
		Section:     section,
		Profile:     key,
		Depth:       depth,
		Dynamics:    d,
		Target:      target,
		Live:        live.Clone(),
		Multipliers: mult.Clone(),
		Emitted:     emitted,
		Interval:    e.gate.Interval(),
		Events:      raw.Events,
	}
}

// State returns the latest computed payload. ok is false before the first
// tick.
func (e *Engine) State() (broadcast.Payload, bool) {
	p := e.state.Load()
	if p == nil {
		return broadcast.Payload{}, false
	}
	return p.Clone(), true
}

// Pulse injects a one-tick energy stimulus in [0, 1].
func (e *Engine) Pulse(intensity float64) {
	e.buf.StagePulse(intensity)
}

func (e *Engine) Subscribe(id string, fn broadcast.Handler) error {
	return e.bus.Subscribe(id, fn)
}

func (e *Engine) SubscribeChan(id string, ch chan<- broadcast.Payload) error {
	return e.bus.SubscribeChan(id, ch)
}

func (e *Engine) Unsubscribe(id string) error {
	return e.bus.Unsubscribe(id)
}

func (e *Engine) Bus() *broadcast.Bus { return e.bus }

func (e *Engine) Dynamics() dynamics.Dynamics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.smoother.Dynamics()
}

// Updates returns how many times the smoother has run since the loop
// last started.
func (e *Engine) Updates() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.smoother.Updates()
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.looping
}

func (e *Engine) Hidden() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hidden
}

func (e *Engine) ReducedMotion() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reduced
}

// SetViewport updates pointer normalization, e.g. on resize.
func (e *Engine) SetViewport(vp sampler.Viewport) {
	e.pointer.SetViewport(vp)
}

// Tracked returns the sections whose visibility is being sampled.
func (e *Engine) Tracked() []string {
	return e.visibility.Tracked()
}

func (e *Engine) Registry() *profile.Registry { return e.registry }

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
