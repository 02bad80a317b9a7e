package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Preset != "clear-seas" {
		t.Errorf("expected preset clear-seas, got %s", cfg.Preset)
	}
	if len(cfg.Profiles) == 0 || cfg.Profiles[0].Key != "hero" {
		t.Fatal("expected hero to be the first profile")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("calm")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Engine.InterpTauMs != 360 {
		t.Errorf("expected interp tau 360, got %f", cfg.Engine.InterpTauMs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("calm preset invalid: %v", err)
	}
}

func TestGetPreset_Fresh(t *testing.T) {
	a := GetPreset("kinetic")
	a.Profiles[0].Intensity = 0
	b := GetPreset("kinetic")
	if b.Profiles[0].Intensity == 0 {
		t.Error("presets must not share state")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	want := []string{"calm", "clear-seas", "kinetic"}
	if len(presets) != len(want) {
		t.Fatalf("expected %v, got %v", want, presets)
	}
	for i := range want {
		if presets[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, presets[i])
		}
		if err := GetPreset(presets[i]).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", presets[i], err)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "choreo.yaml")
	cfg := DefaultConfig()
	cfg.Resolver.Hysteresis = 0.2
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Resolver.Hysteresis != 0.2 {
		t.Errorf("expected hysteresis 0.2, got %f", loaded.Resolver.Hysteresis)
	}
	if len(loaded.Profiles) != len(cfg.Profiles) {
		t.Errorf("expected %d profiles, got %d", len(cfg.Profiles), len(loaded.Profiles))
	}
	if loaded.Profiles[1].Form != "lattice" {
		t.Errorf("expected features form lattice, got %q", loaded.Profiles[1].Form)
	}
}

func TestLoad_PartialProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "choreo.yaml")
	data := []byte(`
profiles:
  - key: landing
    preset: clear-seas
    intensity: 0.7
    chaos: 0.1
    speed: 1
    hue: 190
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Aliases) != 0 {
		t.Errorf("aliases to missing profiles should be dropped, got %v", cfg.Aliases)
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatal(err)
	}
	if key, _ := reg.Lookup("hero"); key != "landing" {
		t.Errorf("expected fallback landing, got %s", key)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tau", func(c *Config) { c.Dynamics.TauEnergyRise = 0 }},
		{"nominal below min", func(c *Config) { c.Broadcast.NominalIntervalMs = 10 }},
		{"ceiling too tight", func(c *Config) { c.Broadcast.IdleCeilingMs = 50 }},
		{"hysteresis", func(c *Config) { c.Resolver.Hysteresis = 2 }},
		{"backend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"no profiles", func(c *Config) { c.Profiles = nil }},
		{"dangling alias", func(c *Config) { c.Aliases["old"] = "gone" }},
		{"profile range", func(c *Config) { c.Profiles[0].Chaos = 4 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestEngineParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broadcast.Thresholds = map[string]float64{"state.intensity": 0.01}
	p := cfg.EngineParams()

	if p.MaxDelta != 48*time.Millisecond {
		t.Errorf("expected max delta 48ms, got %v", p.MaxDelta)
	}
	if p.Gate.Thresholds["state.intensity"] != 0.01 {
		t.Errorf("threshold override lost")
	}
	if p.Gate.Thresholds["state.hue"] != 0.5 {
		t.Errorf("default thresholds should fill gaps")
	}
	if len(p.Sections) != 6 {
		t.Errorf("expected 6 sections, got %d", len(p.Sections))
	}
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	c := cfg.Clone()

	c.Profiles[0].Intensity = 0.1
	c.Aliases["extra"] = "hero"
	c.Broadcast.Thresholds["hue"] = 99
	c.Sections[0] = "changed"

	if cfg.Profiles[0].Intensity == 0.1 {
		t.Error("clone shares profiles")
	}
	if _, ok := cfg.Aliases["extra"]; ok {
		t.Error("clone shares aliases")
	}
	if cfg.Broadcast.Thresholds["hue"] == 99 {
		t.Error("clone shares thresholds")
	}
	if cfg.Sections[0] == "changed" {
		t.Error("clone shares sections")
	}
}
