// Package tune varies engine configuration and scores the result by
// replaying a scenario.
package tune

import (
	"fmt"
	"sort"

	"github.com/san-kum/choreo/internal/config"
)

// Knob is one tunable configuration value.
type Knob struct {
	Name string
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
}

func (k Knob) Get(c *config.Config) float64 { return k.get(c) }

func (k Knob) Set(c *config.Config, v float64) { k.set(c, v) }

var knobs = map[string]Knob{
	"hysteresis": {
		get: func(c *config.Config) float64 { return c.Resolver.Hysteresis },
		set: func(c *config.Config, v float64) { c.Resolver.Hysteresis = v },
	},
	"significance": {
		get: func(c *config.Config) float64 { return c.Resolver.Significance },
		set: func(c *config.Config, v float64) { c.Resolver.Significance = v },
	},
	"tau_energy_rise": {
		get: func(c *config.Config) float64 { return c.Dynamics.TauEnergyRise },
		set: func(c *config.Config, v float64) { c.Dynamics.TauEnergyRise = v },
	},
	"tau_energy_decay": {
		get: func(c *config.Config) float64 { return c.Dynamics.TauEnergyDecay },
		set: func(c *config.Config, v float64) { c.Dynamics.TauEnergyDecay = v },
	},
	"min_interval": {
		get: func(c *config.Config) float64 { return c.Broadcast.MinIntervalMs },
		set: func(c *config.Config, v float64) { c.Broadcast.MinIntervalMs = v },
	},
	"nominal_interval": {
		get: func(c *config.Config) float64 { return c.Broadcast.NominalIntervalMs },
		set: func(c *config.Config, v float64) { c.Broadcast.NominalIntervalMs = v },
	},
	"idle_ceiling": {
		get: func(c *config.Config) float64 { return c.Broadcast.IdleCeilingMs },
		set: func(c *config.Config, v float64) { c.Broadcast.IdleCeilingMs = v },
	},
	"relax_tau": {
		get: func(c *config.Config) float64 { return c.Broadcast.RelaxTauMs },
		set: func(c *config.Config, v float64) { c.Broadcast.RelaxTauMs = v },
	},
	"interp_tau": {
		get: func(c *config.Config) float64 { return c.Engine.InterpTauMs },
		set: func(c *config.Config, v float64) { c.Engine.InterpTauMs = v },
	},
}

func Lookup(name string) (Knob, error) {
	k, ok := knobs[name]
	if !ok {
		return Knob{}, fmt.Errorf("unknown knob %q", name)
	}
	k.Name = name
	return k, nil
}

func Knobs() []string {
	names := make([]string, 0, len(knobs))
	for n := range knobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// apply returns a validated copy of base with every value set.
func apply(base *config.Config, values map[string]float64) (*config.Config, error) {
	cfg := base.Clone()
	for name, v := range values {
		k, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		k.Set(cfg, v)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
