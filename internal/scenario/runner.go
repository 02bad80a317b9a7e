package scenario

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/san-kum/choreo/internal/broadcast"
	"github.com/san-kum/choreo/internal/config"
	"github.com/san-kum/choreo/internal/engine"
	"github.com/san-kum/choreo/internal/host"
	"github.com/san-kum/choreo/internal/metrics"
	"github.com/san-kum/choreo/internal/trace"
)

// Runner plays scenarios against a fresh engine on a fake clock.
type Runner struct {
	cfg *config.Config
	log zerolog.Logger
}

type RunnerOption func(*Runner)

func WithLogger(l zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

func NewRunner(cfg *config.Config, opts ...RunnerOption) *Runner {
	r := &Runner{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run plays sc to completion and returns the recorded trace.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*trace.Trace, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	reg, err := r.cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	params := r.cfg.EngineParams()

	feed := NewFeed(sc, params)
	doc := host.NewMemory(feed.Elements()...)
	clock := engine.NewFakeClock()

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(sc.hour() * float64(time.Hour)))
	ms := metrics.Default()
	tr := &trace.Trace{Meta: trace.Meta{
		Scenario:  sc.Name,
		Preset:    r.cfg.Preset,
		Timestamp: time.Now(),
		Seed:      sc.Seed,
	}}

	record := func(f engine.Frame) {
		at := durationMs(clock.Elapsed())
		tr.Samples = append(tr.Samples, trace.Sample{
			At:       at,
			Dt:       f.Dt,
			Section:  f.Section,
			Energy:   f.Dynamics.Energy,
			Interval: f.Interval,
			Emitted:  f.Emitted,
			Live:     f.Live,
			Target:   f.Target,
		})
		s := metrics.Sample{At: at, Section: f.Section, Live: f.Live, Target: f.Target, Energy: f.Dynamics.Energy, Emitted: f.Emitted}
		for _, m := range ms {
			m.Observe(s)
		}
	}

	eng := engine.New(doc, reg, params,
		engine.WithLogger(r.log),
		engine.WithClock(func() time.Time { return day.Add(clock.Elapsed()) }),
		engine.WithFrameHook(record),
	)
	defer eng.Close()

	var delivered int
	if err := eng.Subscribe("scenario", func(broadcast.Payload) { delivered++ }); err != nil {
		return nil, err
	}
	if err := eng.Start(clock); err != nil {
		return nil, err
	}

	tick := sc.tick()
	rng := rand.New(rand.NewSource(sc.Seed))
	total := sc.Duration * 1000

	for n := 0; ; n++ {
		now := durationMs(clock.Elapsed())
		if now >= total {
			break
		}
		if n%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		dt := tick
		if sc.Jitter > 0 {
			dt += (rng.Float64()*2 - 1) * sc.Jitter
			if dt < 1 {
				dt = 1
			}
		}
		feed.Apply(doc, eng, now+dt, dt)
		clock.Advance(msDuration(dt))
	}

	tr.Meta.DurationMs = durationMs(clock.Elapsed())
	tr.Meta.Ticks = len(tr.Samples)
	tr.Meta.Emits = len(tr.Emits())
	tr.Meta.Metrics = metrics.Collect(ms)
	tr.Meta.Metrics["delivered"] = float64(delivered)

	r.log.Debug().
		Str("scenario", sc.Name).
		Int("ticks", tr.Meta.Ticks).
		Int("emits", tr.Meta.Emits).
		Msg("scenario finished")
	return tr, nil
}

// Ensemble plays copies of one scenario with consecutive seeds in parallel.
type Ensemble struct {
	runner    *Runner
	numRuns   int
	seedStart int64
}

func NewEnsemble(r *Runner, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{runner: r, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, sc *Scenario) ([]*trace.Trace, error) {
	results := make([]*trace.Trace, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			c := sc.Clone()
			c.Seed = e.seedStart + int64(idx)
			results[idx], errs[idx] = e.runner.Run(ctx, c)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
