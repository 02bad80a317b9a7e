package tune

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/san-kum/choreo/internal/config"
	"github.com/san-kum/choreo/internal/scenario"
)

// Sweep replays one scenario across evenly spaced values of a knob.
type Sweep struct {
	Scenario *scenario.Scenario
	Param    string
	Min      float64
	Max      float64
	Steps    int
}

type SweepResult struct {
	Value   float64
	Metrics map[string]float64
	Err     error // set when the value fails config validation
}

func RunSweep(ctx context.Context, base *config.Config, sw Sweep, log zerolog.Logger) ([]SweepResult, error) {
	if sw.Scenario == nil {
		return nil, errors.New("sweep needs a scenario")
	}
	if _, err := Lookup(sw.Param); err != nil {
		return nil, err
	}
	if sw.Steps < 1 {
		return nil, fmt.Errorf("steps must be at least 1, got %d", sw.Steps)
	}

	step := 0.0
	if sw.Steps > 1 {
		step = (sw.Max - sw.Min) / float64(sw.Steps-1)
	}

	results := make([]SweepResult, 0, sw.Steps)
	for i := 0; i < sw.Steps; i++ {
		v := sw.Min + float64(i)*step
		res := SweepResult{Value: v}

		cfg, err := apply(base, map[string]float64{sw.Param: v})
		if err != nil {
			res.Err = err
			results = append(results, res)
			log.Warn().Err(err).Str("param", sw.Param).Float64("value", v).Msg("skipping sweep value")
			continue
		}
		tr, err := scenario.NewRunner(cfg, scenario.WithLogger(log)).Run(ctx, sw.Scenario.Clone())
		if err != nil {
			return results, fmt.Errorf("%s=%v: %w", sw.Param, v, err)
		}
		res.Metrics = tr.Meta.Metrics
		results = append(results, res)

		log.Info().
			Int("step", i+1).
			Int("of", sw.Steps).
			Str("param", sw.Param).
			Float64("value", v).
			Msg("sweep step done")
	}
	return results, nil
}
