// Package profile holds the static section profiles and resolves which one
// is active from viewport visibility.
package profile

import (
	"fmt"

	"github.com/san-kum/choreo/internal/signal"
)

// Profile is the authored base configuration of one page section.
type Profile struct {
	Preset         string  `yaml:"preset" json:"preset"`
	Intensity      float64 `yaml:"intensity" json:"intensity"`
	Chaos          float64 `yaml:"chaos" json:"chaos"`
	Speed          float64 `yaml:"speed" json:"speed"`
	Hue            float64 `yaml:"hue" json:"hue"`
	RGBOffset      float64 `yaml:"rgb_offset" json:"rgbOffset"`
	MoireIntensity float64 `yaml:"moire_intensity" json:"moireIntensity"`
	Form           string  `yaml:"form,omitempty" json:"form,omitempty"`
	FormMix        float64 `yaml:"form_mix,omitempty" json:"formMix,omitempty"`
	Geometry       float64 `yaml:"geometry,omitempty" json:"geometry,omitempty"`
	Weight         float64 `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// HasForm reports whether the profile drives the form fields.
func (p Profile) HasForm() bool { return p.Form != "" }

// Validate checks the base values against the output field ranges.
func (p Profile) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{signal.Intensity, p.Intensity},
		{signal.Chaos, p.Chaos},
		{signal.Speed, p.Speed},
		{signal.Hue, p.Hue},
		{signal.RGBOffset, p.RGBOffset},
		{signal.MoireIntensity, p.MoireIntensity},
	}
	if p.HasForm() {
		checks = append(checks,
			struct {
				name string
				v    float64
			}{signal.FormMix, p.FormMix},
			struct {
				name string
				v    float64
			}{signal.Geometry, p.Geometry},
		)
	}
	for _, c := range checks {
		spec, _ := signal.Spec(c.name)
		if !spec.Contains(c.v) {
			return &signal.RangeError{Name: c.name, Value: c.v, Min: spec.Min, Max: spec.Max}
		}
	}
	return nil
}

// Entry is a keyed profile, used to keep declaration order.
type Entry struct {
	Key     string
	Profile Profile
}

// Registry is an immutable profile table with an alias map. The first
// declared profile is the fallback for unknown ids.
type Registry struct {
	order    []string
	profiles map[string]Profile
	aliases  map[string]string
}

func NewRegistry(entries []Entry, aliases map[string]string) (*Registry, error) {
	if len(entries) == 0 {
		return nil, signal.ErrEmptyRegistry
	}
	r := &Registry{
		order:    make([]string, 0, len(entries)),
		profiles: make(map[string]Profile, len(entries)),
		aliases:  make(map[string]string, len(aliases)),
	}
	for _, e := range entries {
		if e.Key == "" {
			return nil, fmt.Errorf("profile: empty key")
		}
		if _, dup := r.profiles[e.Key]; dup {
			return nil, fmt.Errorf("profile %q: declared twice", e.Key)
		}
		if err := e.Profile.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", e.Key, err)
		}
		r.order = append(r.order, e.Key)
		r.profiles[e.Key] = e.Profile
	}
	for from, to := range aliases {
		if _, ok := r.profiles[to]; !ok {
			return nil, fmt.Errorf("alias %q -> %q: %w", from, to, signal.ErrUnknownAlias)
		}
		r.aliases[from] = to
	}
	return r, nil
}

// Lookup maps a section id to its canonical key and profile: direct hit,
// then alias, then the default profile.
func (r *Registry) Lookup(id string) (string, Profile) {
	if p, ok := r.profiles[id]; ok {
		return id, p
	}
	if key, ok := r.aliases[id]; ok {
		return key, r.profiles[key]
	}
	return r.Default()
}

// Get returns the profile registered under key, without alias or fallback.
func (r *Registry) Get(key string) (Profile, error) {
	p, ok := r.profiles[key]
	if !ok {
		return Profile{}, fmt.Errorf("%q: %w", key, signal.ErrUnknownProfile)
	}
	return p, nil
}

func (r *Registry) Default() (string, Profile) {
	key := r.order[0]
	return key, r.profiles[key]
}

func (r *Registry) Has(key string) bool {
	_, ok := r.profiles[key]
	return ok
}

// Keys returns profile keys in declaration order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}
