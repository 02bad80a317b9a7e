package tune

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/choreo/internal/config"
	"github.com/san-kum/choreo/internal/scenario"
)

// GridSearch tries every combination of the given knob values and keeps the
// one that minimizes a metric.
type GridSearch struct {
	params []string
	ranges [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d params but %d ranges", len(params), len(ranges))
	}
	for i, p := range params {
		if _, err := Lookup(p); err != nil {
			return nil, err
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("empty range for %s", p)
		}
	}
	return &GridSearch{params: params, ranges: ranges}, nil
}

// Result is the best combination found. Tried counts every combination that
// passed validation and ran.
type Result struct {
	Params map[string]float64
	Value  float64
	Tried  int
}

var ErrNoCandidate = errors.New("tune: no combination produced the metric")

func (g *GridSearch) Search(ctx context.Context, base *config.Config, sc *scenario.Scenario, metric string) (Result, error) {
	best := Result{Value: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), base, sc, metric, &best); err != nil {
		return best, err
	}
	if best.Params == nil {
		return best, fmt.Errorf("%s: %w", metric, ErrNoCandidate)
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	sc *scenario.Scenario,
	metric string,
	best *Result,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.params) {
		cfg, err := apply(base, current)
		if err != nil {
			return nil
		}
		tr, err := scenario.NewRunner(cfg).Run(ctx, sc.Clone())
		if err != nil {
			return err
		}
		best.Tried++
		val, ok := tr.Meta.Metrics[metric]
		if !ok || math.IsNaN(val) {
			return nil
		}
		if val < best.Value {
			best.Value = val
			best.Params = make(map[string]float64, len(current))
			for k, v := range current {
				best.Params[k] = v
			}
		}
		return nil
	}

	name := g.params[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		if err := g.searchRecursive(ctx, depth+1, next, base, sc, metric, best); err != nil {
			return err
		}
	}
	return nil
}
