package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/choreo/internal/tune"
)

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := resolveScenario(cmd, cfg, args)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	results, err := tune.RunSweep(context.Background(), cfg, tune.Sweep{
		Scenario: sc,
		Param:    param,
		Min:      paramMin,
		Max:      paramMax,
		Steps:    steps,
	}, log)
	if err != nil {
		return err
	}

	names := []string{sweepMetric}
	if sweepMetric == "" {
		names = nil
		for _, r := range results {
			if r.Metrics == nil {
				continue
			}
			for k := range r.Metrics {
				names = append(names, k)
			}
			break
		}
		sort.Strings(names)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(param), strings.ToUpper(strings.Join(names, "\t")))
	for _, r := range results {
		row := []string{strconv.FormatFloat(r.Value, 'g', 4, 64)}
		if r.Err != nil {
			row = append(row, "invalid: "+r.Err.Error())
		} else {
			for _, n := range names {
				row = append(row, fmt.Sprintf("%.4f", r.Metrics[n]))
			}
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func runTune(cmd *cobra.Command, args []string) error {
	if len(gridSpecs) == 0 {
		return fmt.Errorf("at least one --grid knob=v1,v2 is required (knobs: %s)", strings.Join(tune.Knobs(), ", "))
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := resolveScenario(cmd, cfg, args)
	if err != nil {
		return err
	}

	params := make([]string, 0, len(gridSpecs))
	ranges := make([][]float64, 0, len(gridSpecs))
	for _, spec := range gridSpecs {
		name, vals, err := parseGrid(spec)
		if err != nil {
			return err
		}
		params = append(params, name)
		ranges = append(ranges, vals)
	}

	g, err := tune.NewGridSearch(params, ranges)
	if err != nil {
		return err
	}
	best, err := g.Search(context.Background(), cfg, sc, metric)
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", sc.Name)
	fmt.Printf("tried:    %d\n", best.Tried)
	fmt.Printf("%s: %.4f\n", metric, best.Value)
	for _, p := range params {
		fmt.Printf("  %s = %g\n", p, best.Params[p])
	}
	return nil
}

// parseGrid reads "knob=v1,v2,v3".
func parseGrid(spec string) (string, []float64, error) {
	name, list, ok := strings.Cut(spec, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("grid %q: want knob=v1,v2", spec)
	}
	var vals []float64
	for _, s := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return "", nil, fmt.Errorf("grid %q: %w", spec, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}
