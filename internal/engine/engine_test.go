package engine_test

import (
	"math"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/choreo/internal/broadcast"
	"github.com/san-kum/choreo/internal/engine"
	"github.com/san-kum/choreo/internal/host"
	"github.com/san-kum/choreo/internal/profile"
	"github.com/san-kum/choreo/internal/signal"
)

const frame = 16 * time.Millisecond

func testRegistry() *profile.Registry {
	reg, err := profile.NewRegistry([]profile.Entry{
		{Key: "hero", Profile: profile.Profile{Preset: "clear-seas", Intensity: 0.6, Chaos: 0.15, Speed: 1, Hue: 200}},
		{Key: "features", Profile: profile.Profile{Preset: "grid", Intensity: 0.4, Chaos: 0.3, Speed: 0.8, Hue: 120, Form: "lattice", FormMix: 0.5, Geometry: 4}},
	}, map[string]string{"capabilities": "features"})
	Expect(err).NotTo(HaveOccurred())
	return reg
}

var _ = Describe("Engine", func() {
	var (
		doc    *host.Memory
		clock  *engine.FakeClock
		eng    *engine.Engine
		frames []engine.Frame
		got    []broadcast.Payload
		params engine.Params
	)

	noon := func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	BeforeEach(func() {
		doc = host.NewMemory("hero", "features", "card-1", "card-2")
		clock = engine.NewFakeClock()
		frames = nil
		got = nil
		params = engine.DefaultParams()
		params.Sections = []string{"hero", "features", "pricing"}
		params.Hoverables = []string{"card-1", "card-2"}
		params.Viewport.Width = 1000
		params.Viewport.Height = 800
	})

	build := func() {
		eng = engine.New(doc, testRegistry(), params,
			engine.WithClock(noon),
			engine.WithFrameHook(func(f engine.Frame) { frames = append(frames, f) }),
		)
		Expect(eng.Subscribe("renderer", func(p broadcast.Payload) { got = append(got, p) })).To(Succeed())
	}

	AfterEach(func() {
		if eng != nil {
			Expect(eng.Close()).To(Succeed())
		}
	})

	Describe("lifecycle", func() {
		BeforeEach(build)

		It("attaches samplers and schedules exactly one tick", func() {
			Expect(eng.Start(clock)).To(Succeed())
			Expect(doc.ListenerCount()).To(Equal(7))
			Expect(clock.Pending()).To(Equal(1))
			Expect(eng.Running()).To(BeTrue())
		})

		It("skips sections missing from the document", func() {
			Expect(eng.Start(clock)).To(Succeed())
			Expect(eng.Tracked()).To(Equal([]string{"features", "hero"}))
		})

		It("rejects a second start and a nil source", func() {
			Expect(eng.Start(nil)).To(MatchError(signal.ErrNilTickSource))
			Expect(eng.Start(clock)).To(Succeed())
			Expect(eng.Start(clock)).To(MatchError(signal.ErrEngineStarted))
		})

		It("tears down idempotently without dangling listeners", func() {
			Expect(eng.Start(clock)).To(Succeed())
			clock.Step(3, frame)

			eng.Teardown()
			Expect(doc.ListenerCount()).To(BeZero())
			Expect(clock.Pending()).To(BeZero())

			eng.Teardown()
			Expect(doc.ListenerCount()).To(BeZero())
			Expect(clock.Pending()).To(BeZero())
			Expect(eng.Updates()).To(BeZero())
		})

		It("can start again after teardown", func() {
			Expect(eng.Start(clock)).To(Succeed())
			eng.Teardown()
			Expect(eng.Start(clock)).To(Succeed())
			Expect(doc.ListenerCount()).To(Equal(7))
			clock.Advance(frame)
			Expect(eng.Updates()).To(Equal(uint64(1)))
		})

		It("refuses to start once closed", func() {
			Expect(eng.Close()).To(Succeed())
			Expect(eng.Start(clock)).To(MatchError(signal.ErrTornDown))
			eng = nil
		})
	})

	Describe("ticking", func() {
		BeforeEach(func() {
			build()
			Expect(eng.Start(clock)).To(Succeed())
		})

		It("runs the smoother once per tick regardless of event count", func() {
			for i := 0; i < 100; i++ {
				doc.Dispatch(host.Event{
					Kind: host.KindPointer,
					At:   time.Duration(i) * 160 * time.Microsecond,
					X:    float64(i * 5), Y: 400,
				})
			}
			clock.Advance(frame)
			Expect(eng.Updates()).To(Equal(uint64(1)))
			Expect(frames).To(HaveLen(1))
			Expect(frames[0].Events).To(Equal(100))

			clock.Advance(frame)
			Expect(eng.Updates()).To(Equal(uint64(2)))
			Expect(frames[1].Events).To(BeZero())
		})

		It("emits the first computed state", func() {
			clock.Advance(frame)
			Expect(got).To(HaveLen(1))
			Expect(got[0].Context.Section).To(Equal("hero"))
			Expect(got[0].State).To(HaveKey(signal.Intensity))

			state, ok := eng.State()
			Expect(ok).To(BeTrue())
			Expect(state.State).To(Equal(got[0].State))
		})

		It("hands out copies of the state", func() {
			clock.Advance(frame)
			state, _ := eng.State()
			state.State[signal.Intensity] = 99
			again, _ := eng.State()
			Expect(again.State[signal.Intensity]).NotTo(Equal(99.0))
		})

		It("falls back on bad deltas and clamps long ones", func() {
			eng.TickMs(math.NaN())
			eng.TickMs(-5)
			eng.Tick(2 * time.Second)
			Expect(frames).To(HaveLen(3))
			Expect(frames[0].Dt).To(Equal(16.0))
			Expect(frames[1].Dt).To(Equal(16.0))
			Expect(frames[2].Dt).To(Equal(48.0))
			for _, f := range frames {
				Expect(f.Live.IsValid()).To(BeTrue())
			}
		})

		It("skips work while the document is hidden", func() {
			clock.Advance(frame)
			doc.Dispatch(host.Event{Kind: host.KindDocumentHidden, On: true})
			clock.Step(10, frame)
			Expect(eng.Updates()).To(Equal(uint64(1)))
			Expect(clock.Pending()).To(Equal(1))

			doc.Dispatch(host.Event{Kind: host.KindDocumentHidden, On: false})
			clock.Advance(5 * time.Second)
			Expect(eng.Updates()).To(Equal(uint64(2)))
			Expect(frames[len(frames)-1].Dt).To(Equal(48.0))
		})

		It("switches sections with hysteresis and follows aliases", func() {
			doc.Dispatch(host.Event{Kind: host.KindVisibility, Target: "hero", Ratio: 0.6})
			doc.Dispatch(host.Event{Kind: host.KindVisibility, Target: "features", Ratio: 0.3})
			clock.Advance(frame)
			Expect(frames[0].Section).To(Equal("hero"))

			doc.Dispatch(host.Event{Kind: host.KindVisibility, Target: "hero", Ratio: 0.45})
			doc.Dispatch(host.Event{Kind: host.KindVisibility, Target: "features", Ratio: 0.5})
			clock.Step(5, frame)
			Expect(frames[len(frames)-1].Section).To(Equal("hero"))

			doc.Dispatch(host.Event{Kind: host.KindVisibility, Target: "hero", Ratio: 0.2})
			clock.Advance(frame)
			last := frames[len(frames)-1]
			Expect(last.Section).To(Equal("features"))
			Expect(last.Profile).To(Equal("features"))
			Expect(last.Depth).To(Equal(0.5))
			Expect(last.Target).To(HaveKeyWithValue(signal.Geometry, 4.0))
		})

		It("raises energy on pulse", func() {
			clock.Advance(frame)
			before := eng.Dynamics().Energy
			eng.Pulse(1)
			clock.Step(10, frame)
			Expect(eng.Dynamics().Energy).To(BeNumerically(">", before))
		})

		It("keeps every emit gap within the idle ceiling", func() {
			rng := rand.New(rand.NewSource(3))
			for i := 0; i < 3000; i++ {
				if rng.Intn(3) == 0 {
					doc.Dispatch(host.Event{Kind: host.KindPointer, X: rng.Float64() * 1000, Y: rng.Float64() * 800, At: clock.Elapsed()})
				}
				if rng.Intn(50) == 0 {
					doc.Dispatch(host.Event{Kind: host.KindVisibility, Target: "features", Ratio: rng.Float64()})
				}
				clock.Advance(time.Duration(1+rng.Intn(60)) * time.Millisecond)
			}

			var last time.Duration = -1
			for _, f := range frames {
				if !f.Emitted {
					continue
				}
				if last >= 0 {
					gap := (f.Elapsed - last).Seconds() * 1000
					Expect(gap).To(BeNumerically("<=", 260.001))
					Expect(gap).To(BeNumerically(">=", 15.999))
				}
				last = f.Elapsed
				for name, v := range f.Target {
					spec, ok := signal.Spec(name)
					Expect(ok).To(BeTrue())
					Expect(spec.Contains(v)).To(BeTrue(), "%s=%v", name, v)
				}
			}
		})
	})

	Describe("reduced motion", func() {
		It("emits one static default state and stops ticking", func() {
			build()
			Expect(eng.Start(clock)).To(Succeed())
			clock.Step(3, frame)
			got = nil

			doc.Dispatch(host.Event{Kind: host.KindReducedMotion, On: true})
			clock.Step(2, frame)
			Expect(got).To(HaveLen(1))
			Expect(got[0].Context.Section).To(Equal("hero"))
			Expect(got[0].State[signal.Intensity]).To(Equal(0.6))
			Expect(got[0].Multipliers).To(HaveKeyWithValue("glow", 1.0))
			Expect(clock.Pending()).To(BeZero())
			Expect(doc.ListenerCount(host.KindPointer, host.KindScroll, host.KindVisibility, host.KindHover, host.KindMutation)).To(BeZero())
			Expect(doc.ListenerCount()).To(Equal(2))

			clock.Step(5, frame)
			Expect(got).To(HaveLen(1))

			doc.Dispatch(host.Event{Kind: host.KindReducedMotion, On: false})
			Expect(clock.Pending()).To(Equal(1))
			Expect(doc.ListenerCount()).To(Equal(7))

			doc.Dispatch(host.Event{Kind: host.KindReducedMotion, On: true})
			doc.Dispatch(host.Event{Kind: host.KindReducedMotion, On: false})
			eng.Teardown()
			eng.Teardown()
			Expect(doc.ListenerCount()).To(BeZero())
		})

		It("keeps the minimum emit gap across toggles", func() {
			build()
			var times []time.Duration
			Expect(eng.Subscribe("gaps", func(broadcast.Payload) { times = append(times, clock.Elapsed()) })).To(Succeed())
			Expect(eng.Start(clock)).To(Succeed())

			clock.Advance(frame)
			Expect(times).To(HaveLen(1))
			doc.Dispatch(host.Event{Kind: host.KindReducedMotion, On: true})
			doc.Dispatch(host.Event{Kind: host.KindReducedMotion, On: false})
			clock.Advance(time.Millisecond)
			Expect(times).To(HaveLen(1))

			rng := rand.New(rand.NewSource(11))
			reduced := false
			for i := 0; i < 600; i++ {
				if rng.Intn(15) == 0 {
					reduced = !reduced
					doc.Dispatch(host.Event{Kind: host.KindReducedMotion, On: reduced})
				}
				if rng.Intn(3) == 0 {
					doc.Dispatch(host.Event{Kind: host.KindPointer, X: rng.Float64() * 1000, Y: rng.Float64() * 800, At: clock.Elapsed()})
				}
				clock.Advance(time.Duration(1+rng.Intn(30)) * time.Millisecond)
			}

			Expect(len(times)).To(BeNumerically(">", 3))
			for i := 1; i < len(times); i++ {
				Expect(times[i]-times[i-1]).To(BeNumerically(">=", 16*time.Millisecond), "emit %d", i)
			}
		})

		It("can start in the static fallback", func() {
			params.ReducedMotion = true
			build()
			Expect(eng.Start(clock)).To(Succeed())
			Expect(got).To(HaveLen(1))
			Expect(clock.Pending()).To(BeZero())
			Expect(eng.ReducedMotion()).To(BeTrue())

			state, ok := eng.State()
			Expect(ok).To(BeTrue())
			Expect(state.State[signal.Chaos]).To(Equal(0.15))
		})
	})
})
