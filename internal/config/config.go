package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/san-kum/choreo/internal/broadcast"
	"github.com/san-kum/choreo/internal/dynamics"
	"github.com/san-kum/choreo/internal/engine"
	"github.com/san-kum/choreo/internal/profile"
	"github.com/san-kum/choreo/internal/sampler"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFPS        = 60
	DefaultDuration   = 10.0
	DefaultMaxDelta   = 48.0
	DefaultFallbackDt = 16.0
	DefaultInterpTau  = 220.0
	DefaultAddr       = ":8740"
	DefaultTopic      = "choreo"
	DefaultDataDir    = "data"
)

type Config struct {
	Preset     string            `yaml:"preset"`
	Profiles   []ProfileConfig   `yaml:"profiles"`
	Aliases    map[string]string `yaml:"aliases"`
	Sections   []string          `yaml:"sections"`
	Hoverables []string          `yaml:"hoverables"`
	Viewport   ViewportConfig    `yaml:"viewport"`
	FPS        int               `yaml:"fps"`
	Duration   float64           `yaml:"duration"`
	Seed       int64             `yaml:"seed"`

	Engine    EngineConfig    `yaml:"engine"`
	Dynamics  DynamicsConfig  `yaml:"dynamics"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Broadcast BroadcastConfig `yaml:"broadcast"`

	Server  ServerConfig  `yaml:"server"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ProfileConfig is a keyed profile. The first entry is the fallback.
type ProfileConfig struct {
	Key             string `yaml:"key"`
	profile.Profile `yaml:",inline"`
}

type ViewportConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type EngineConfig struct {
	MaxDeltaMs      float64 `yaml:"max_delta_ms"`
	FallbackDeltaMs float64 `yaml:"fallback_delta_ms"`
	InterpTauMs     float64 `yaml:"interp_tau_ms"`
	ReducedMotion   bool    `yaml:"reduced_motion"`
}

type DynamicsConfig struct {
	TauPointer           float64 `yaml:"tau_pointer"`
	TauPointerVelocity   float64 `yaml:"tau_pointer_velocity"`
	TauScrollVelocity    float64 `yaml:"tau_scroll_velocity"`
	TauScrollProgress    float64 `yaml:"tau_scroll_progress"`
	TauHoverCount        float64 `yaml:"tau_hover_count"`
	TauHoverActivity     float64 `yaml:"tau_hover_activity"`
	TauEnergyRise        float64 `yaml:"tau_energy_rise"`
	TauEnergyDecay       float64 `yaml:"tau_energy_decay"`
	TauRGBOffset         float64 `yaml:"tau_rgb_offset"`
	TauMoire             float64 `yaml:"tau_moire"`
	RestingEnergy        float64 `yaml:"resting_energy"`
	RestingHoverActivity float64 `yaml:"resting_hover_activity"`
	HoverSaturation      float64 `yaml:"hover_saturation"`
}

type ResolverConfig struct {
	Significance float64 `yaml:"significance"`
	Hysteresis   float64 `yaml:"hysteresis"`
}

type BroadcastConfig struct {
	MinIntervalMs     float64            `yaml:"min_interval_ms"`
	NominalIntervalMs float64            `yaml:"nominal_interval_ms"`
	IdleCeilingMs     float64            `yaml:"idle_ceiling_ms"`
	RelaxTauMs        float64            `yaml:"relax_tau_ms"`
	Thresholds        map[string]float64 `yaml:"thresholds"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"` // file or sqlite
	Dir     string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func DefaultProfiles() []ProfileConfig {
	return []ProfileConfig{
		{Key: "hero", Profile: profile.Profile{Preset: "clear-seas", Intensity: 0.6, Chaos: 0.15, Speed: 1.0, Hue: 205, RGBOffset: 0.002, MoireIntensity: 0.12, Weight: 1}},
		{Key: "features", Profile: profile.Profile{Preset: "lattice", Intensity: 0.5, Chaos: 0.22, Speed: 0.9, Hue: 172, RGBOffset: 0.003, MoireIntensity: 0.2, Form: "lattice", FormMix: 0.35, Geometry: 3, Weight: 0.8}},
		{Key: "showcase", Profile: profile.Profile{Preset: "prism", Intensity: 0.75, Chaos: 0.3, Speed: 1.2, Hue: 280, RGBOffset: 0.006, MoireIntensity: 0.3, Form: "prism", FormMix: 0.55, Geometry: 11, Weight: 1}},
		{Key: "pricing", Profile: profile.Profile{Preset: "still", Intensity: 0.35, Chaos: 0.08, Speed: 0.7, Hue: 220, RGBOffset: 0.001, MoireIntensity: 0.05, Weight: 0.6}},
		{Key: "contact", Profile: profile.Profile{Preset: "ember", Intensity: 0.55, Chaos: 0.18, Speed: 0.85, Hue: 18, RGBOffset: 0.002, MoireIntensity: 0.1, Form: "orbit", FormMix: 0.25, Geometry: 7, Weight: 0.7}},
		{Key: "footer", Profile: profile.Profile{Preset: "dusk", Intensity: 0.25, Chaos: 0.05, Speed: 0.6, Hue: 240, RGBOffset: 0.001, MoireIntensity: 0.04, Weight: 0.4}},
	}
}

func DefaultAliases() map[string]string {
	return map[string]string{
		"legacy-hero":  "hero",
		"capabilities": "features",
		"gallery":      "showcase",
		"cta":          "contact",
	}
}

func DefaultConfig() *Config {
	d := dynamics.DefaultParams()
	g := broadcast.DefaultGateParams()
	profiles := DefaultProfiles()
	sections := make([]string, len(profiles))
	for i, p := range profiles {
		sections[i] = p.Key
	}
	return &Config{
		Preset:     "clear-seas",
		Profiles:   profiles,
		Aliases:    DefaultAliases(),
		Sections:   sections,
		Hoverables: []string{"card-1", "card-2", "card-3", "card-4"},
		Viewport:   ViewportConfig{Width: 1440, Height: 900},
		FPS:        DefaultFPS,
		Duration:   DefaultDuration,
		Engine: EngineConfig{
			MaxDeltaMs:      DefaultMaxDelta,
			FallbackDeltaMs: DefaultFallbackDt,
			InterpTauMs:     DefaultInterpTau,
		},
		Dynamics: DynamicsConfig{
			TauPointer:           d.TauPointer,
			TauPointerVelocity:   d.TauPointerVelocity,
			TauScrollVelocity:    d.TauScrollVelocity,
			TauScrollProgress:    d.TauScrollProgress,
			TauHoverCount:        d.TauHoverCount,
			TauHoverActivity:     d.TauHoverActivity,
			TauEnergyRise:        d.TauEnergyRise,
			TauEnergyDecay:       d.TauEnergyDecay,
			TauRGBOffset:         d.TauRGBOffset,
			TauMoire:             d.TauMoire,
			RestingEnergy:        d.RestingEnergy,
			RestingHoverActivity: d.RestingHoverActivity,
			HoverSaturation:      d.HoverSaturation,
		},
		Resolver: ResolverConfig{Significance: 0.05, Hysteresis: 0.12},
		Broadcast: BroadcastConfig{
			MinIntervalMs:     g.MinInterval,
			NominalIntervalMs: g.NominalInterval,
			IdleCeilingMs:     g.IdleCeiling,
			RelaxTauMs:        g.RelaxTau,
			Thresholds:        g.Thresholds,
		},
		Server:  ServerConfig{Addr: DefaultAddr},
		MQTT:    MQTTConfig{Topic: DefaultTopic},
		Storage: StorageConfig{Backend: "file", Dir: DefaultDataDir},
		Log:     LogConfig{Level: "info", Pretty: true},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Aliases = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Aliases == nil {
		cfg.Aliases = cfg.knownAliases(DefaultAliases())
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every tunable and builds the profile registry once.
func (c *Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"engine.max_delta_ms", c.Engine.MaxDeltaMs},
		{"engine.fallback_delta_ms", c.Engine.FallbackDeltaMs},
		{"engine.interp_tau_ms", c.Engine.InterpTauMs},
		{"dynamics.tau_pointer", c.Dynamics.TauPointer},
		{"dynamics.tau_pointer_velocity", c.Dynamics.TauPointerVelocity},
		{"dynamics.tau_scroll_velocity", c.Dynamics.TauScrollVelocity},
		{"dynamics.tau_scroll_progress", c.Dynamics.TauScrollProgress},
		{"dynamics.tau_hover_count", c.Dynamics.TauHoverCount},
		{"dynamics.tau_hover_activity", c.Dynamics.TauHoverActivity},
		{"dynamics.tau_energy_rise", c.Dynamics.TauEnergyRise},
		{"dynamics.tau_energy_decay", c.Dynamics.TauEnergyDecay},
		{"dynamics.tau_rgb_offset", c.Dynamics.TauRGBOffset},
		{"dynamics.tau_moire", c.Dynamics.TauMoire},
		{"broadcast.min_interval_ms", c.Broadcast.MinIntervalMs},
		{"broadcast.relax_tau_ms", c.Broadcast.RelaxTauMs},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return fmt.Errorf("%s must be positive, got %v", p.name, p.v)
		}
	}
	b := c.Broadcast
	if b.NominalIntervalMs < b.MinIntervalMs {
		return fmt.Errorf("broadcast.nominal_interval_ms (%v) below min_interval_ms (%v)", b.NominalIntervalMs, b.MinIntervalMs)
	}
	if b.IdleCeilingMs < b.MinIntervalMs+c.Engine.MaxDeltaMs {
		return fmt.Errorf("broadcast.idle_ceiling_ms (%v) must leave room for one max delta after min_interval_ms", b.IdleCeilingMs)
	}
	if c.Resolver.Significance < 0 || c.Resolver.Significance > 1 {
		return fmt.Errorf("resolver.significance must be in [0,1], got %v", c.Resolver.Significance)
	}
	if c.Resolver.Hysteresis < 0 || c.Resolver.Hysteresis > 1 {
		return fmt.Errorf("resolver.hysteresis must be in [0,1], got %v", c.Resolver.Hysteresis)
	}
	switch c.Storage.Backend {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("storage.backend %q: want file or sqlite", c.Storage.Backend)
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Profiles = append([]ProfileConfig(nil), c.Profiles...)
	out.Sections = append([]string(nil), c.Sections...)
	out.Hoverables = append([]string(nil), c.Hoverables...)
	if c.Aliases != nil {
		out.Aliases = make(map[string]string, len(c.Aliases))
		for k, v := range c.Aliases {
			out.Aliases[k] = v
		}
	}
	if c.Broadcast.Thresholds != nil {
		out.Broadcast.Thresholds = make(map[string]float64, len(c.Broadcast.Thresholds))
		for k, v := range c.Broadcast.Thresholds {
			out.Broadcast.Thresholds[k] = v
		}
	}
	return &out
}

// knownAliases keeps the aliases whose target is a configured profile.
func (c *Config) knownAliases(aliases map[string]string) map[string]string {
	keys := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		keys[p.Key] = true
	}
	out := make(map[string]string, len(aliases))
	for from, to := range aliases {
		if keys[to] {
			out[from] = to
		}
	}
	return out
}

// Registry builds the profile registry from the configured profiles.
func (c *Config) Registry() (*profile.Registry, error) {
	entries := make([]profile.Entry, len(c.Profiles))
	for i, p := range c.Profiles {
		entries[i] = profile.Entry{Key: p.Key, Profile: p.Profile}
	}
	return profile.NewRegistry(entries, c.Aliases)
}

// EngineParams converts the config into engine tunables.
func (c *Config) EngineParams() engine.Params {
	p := engine.DefaultParams()
	p.Sections = append([]string(nil), c.Sections...)
	p.Hoverables = append([]string(nil), c.Hoverables...)
	p.Viewport = sampler.Viewport{Width: c.Viewport.Width, Height: c.Viewport.Height}
	p.InterpTau = c.Engine.InterpTauMs
	p.MaxDelta = msDuration(c.Engine.MaxDeltaMs)
	p.FallbackDelta = msDuration(c.Engine.FallbackDeltaMs)
	p.ReducedMotion = c.Engine.ReducedMotion

	d := c.Dynamics
	p.Dynamics = dynamics.Params{
		TauPointer:           d.TauPointer,
		TauPointerVelocity:   d.TauPointerVelocity,
		TauScrollVelocity:    d.TauScrollVelocity,
		TauScrollProgress:    d.TauScrollProgress,
		TauHoverCount:        d.TauHoverCount,
		TauHoverActivity:     d.TauHoverActivity,
		TauEnergyRise:        d.TauEnergyRise,
		TauEnergyDecay:       d.TauEnergyDecay,
		TauRGBOffset:         d.TauRGBOffset,
		TauMoire:             d.TauMoire,
		RestingEnergy:        d.RestingEnergy,
		RestingHoverActivity: d.RestingHoverActivity,
		HoverSaturation:      d.HoverSaturation,
	}
	p.Resolver.SignificanceFloor = c.Resolver.Significance
	p.Resolver.HysteresisFloor = c.Resolver.Hysteresis

	thresholds := broadcast.DefaultThresholds()
	for k, v := range c.Broadcast.Thresholds {
		thresholds[k] = v
	}
	p.Gate = broadcast.GateParams{
		MinInterval:     c.Broadcast.MinIntervalMs,
		NominalInterval: c.Broadcast.NominalIntervalMs,
		IdleCeiling:     c.Broadcast.IdleCeilingMs,
		RelaxTau:        c.Broadcast.RelaxTauMs,
		Horizon:         c.Engine.MaxDeltaMs,
		Thresholds:      thresholds,
	}
	return p
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
