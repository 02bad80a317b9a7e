package config

import "sort"

// Presets are complete named configurations.
var Presets = map[string]func() *Config{
	"clear-seas": DefaultConfig,
	"calm":       calm,
	"kinetic":    kinetic,
}

// calm slows every response and damps the profile boosts.
func calm() *Config {
	cfg := DefaultConfig()
	cfg.Preset = "calm"
	cfg.Engine.InterpTauMs = 360
	cfg.Dynamics.TauPointerVelocity = 220
	cfg.Dynamics.TauScrollVelocity = 320
	cfg.Dynamics.TauEnergyRise = 600
	cfg.Dynamics.TauEnergyDecay = 12000
	cfg.Dynamics.RestingEnergy = 0.08
	cfg.Resolver.Hysteresis = 0.18
	cfg.Broadcast.NominalIntervalMs = 40
	for i := range cfg.Profiles {
		cfg.Profiles[i].Intensity *= 0.8
		cfg.Profiles[i].Chaos *= 0.6
		cfg.Profiles[i].Speed *= 0.8
	}
	return cfg
}

// kinetic reacts fast and switches sections eagerly.
func kinetic() *Config {
	cfg := DefaultConfig()
	cfg.Preset = "kinetic"
	cfg.Engine.InterpTauMs = 140
	cfg.Dynamics.TauPointerVelocity = 80
	cfg.Dynamics.TauScrollVelocity = 120
	cfg.Dynamics.TauEnergyRise = 200
	cfg.Dynamics.TauEnergyDecay = 5000
	cfg.Dynamics.RestingEnergy = 0.2
	cfg.Resolver.Hysteresis = 0.08
	cfg.Broadcast.NominalIntervalMs = 24
	for i := range cfg.Profiles {
		cfg.Profiles[i].Intensity = min(1.5, cfg.Profiles[i].Intensity*1.2)
		cfg.Profiles[i].Chaos = min(1, cfg.Profiles[i].Chaos*1.5)
		cfg.Profiles[i].Speed = min(3, cfg.Profiles[i].Speed*1.3)
	}
	return cfg
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
