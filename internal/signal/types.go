package signal

import (
	"math"
	"sort"
)

// Output field names.
const (
	Intensity      = "intensity"
	Chaos          = "chaos"
	Speed          = "speed"
	Hue            = "hue"
	RGBOffset      = "rgbOffset"
	MoireIntensity = "moireIntensity"
	FormMix        = "formMix"
	Geometry       = "geometry"
)

// Vector is a named set of scalar fields.
type Vector map[string]float64

func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	c := make(Vector, len(v))
	for k, x := range v {
		c[k] = x
	}
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Keys returns the field names in sorted order.
func (v Vector) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SameKeys reports whether v and other define exactly the same fields.
func (v Vector) SameKeys(other Vector) bool {
	if len(v) != len(other) {
		return false
	}
	for k := range v {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// Or returns the value of name, or def when the field is absent.
func (v Vector) Or(name string, def float64) float64 {
	if x, ok := v[name]; ok {
		return x
	}
	return def
}

// FieldSpec declares the valid interval of an output field.
type FieldSpec struct {
	Name     string
	Min      float64
	Max      float64
	Wrap     bool // periodic over [Min, Max)
	Discrete bool // categorical id; snaps instead of interpolating
}

// Clamp forces x into the spec's interval. NaN and infinities map to Min.
func (f FieldSpec) Clamp(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return f.Min
	}
	if f.Wrap {
		span := f.Max - f.Min
		x = math.Mod(x-f.Min, span)
		if x < 0 {
			x += span
		}
		// math.Mod can return span for tiny negative inputs after the shift.
		if x >= span {
			x = 0
		}
		return x + f.Min
	}
	if f.Discrete {
		x = math.Round(x)
	}
	return math.Max(f.Min, math.Min(f.Max, x))
}

// Period returns the wrap period, or 0 for non-wrapping fields.
func (f FieldSpec) Period() float64 {
	if !f.Wrap {
		return 0
	}
	return f.Max - f.Min
}

// Contains reports whether x already satisfies the spec.
func (f FieldSpec) Contains(x float64) bool {
	if math.IsNaN(x) {
		return false
	}
	if f.Wrap {
		return x >= f.Min && x < f.Max
	}
	return x >= f.Min && x <= f.Max
}

// Fields lists every output field the synthesizer may produce.
var Fields = []FieldSpec{
	{Name: Intensity, Min: 0, Max: 1.5},
	{Name: Chaos, Min: 0, Max: 1},
	{Name: Speed, Min: 0.1, Max: 3},
	{Name: Hue, Min: 0, Max: 360, Wrap: true},
	{Name: RGBOffset, Min: 0, Max: 0.05},
	{Name: MoireIntensity, Min: 0, Max: 1},
	{Name: FormMix, Min: 0, Max: 1},
	{Name: Geometry, Min: 0, Max: 23, Discrete: true},
}

var fieldIndex = func() map[string]FieldSpec {
	m := make(map[string]FieldSpec, len(Fields))
	for _, f := range Fields {
		m[f.Name] = f
	}
	return m
}()

// Spec returns the declared spec for name.
func Spec(name string) (FieldSpec, bool) {
	f, ok := fieldIndex[name]
	return f, ok
}
