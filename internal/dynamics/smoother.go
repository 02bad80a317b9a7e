// Package dynamics reduces staged input signals to smoothed scalars.
//
// Every field is a first-order low-pass filter with its own time constant.
// Energy and hover activity relax toward declared resting values when a
// tick carries no fresh input, so an idle page settles instead of going
// abruptly silent.
package dynamics

import (
	"math"

	"github.com/san-kum/choreo/internal/lowpass"
	"github.com/san-kum/choreo/internal/sampler"
)

// Dynamics is a read-only snapshot of the smoothed signals.
type Dynamics struct {
	PointerX        float64 `json:"pointerX"`
	PointerY        float64 `json:"pointerY"`
	PointerVelocity float64 `json:"pointerVelocity"`
	ScrollVelocity  float64 `json:"scrollVelocity"`
	ScrollProgress  float64 `json:"scrollProgress"`
	HoverCount      float64 `json:"hoverCount"`
	HoverActivity   float64 `json:"hoverActivity"`
	Energy          float64 `json:"energy"`
	RGBOffset       float64 `json:"rgbOffset"`
	MoireIntensity  float64 `json:"moireIntensity"`
}

// Params holds time constants in milliseconds and resting values.
type Params struct {
	TauPointer         float64
	TauPointerVelocity float64
	TauScrollVelocity  float64
	TauScrollProgress  float64
	TauHoverCount      float64
	TauHoverActivity   float64
	TauEnergyRise      float64
	TauEnergyDecay     float64
	TauRGBOffset       float64
	TauMoire           float64

	RestingEnergy        float64
	RestingHoverActivity float64

	// HoverSaturation is the hovered-element count at which hover
	// activity reaches 1.
	HoverSaturation float64
}

func DefaultParams() Params {
	return Params{
		TauPointer:           160,
		TauPointerVelocity:   120,
		TauScrollVelocity:    180,
		TauScrollProgress:    240,
		TauHoverCount:        200,
		TauHoverActivity:     900,
		TauEnergyRise:        350,
		TauEnergyDecay:       9000,
		TauRGBOffset:         140,
		TauMoire:             260,
		RestingEnergy:        0.12,
		RestingHoverActivity: 0.04,
		HoverSaturation:      3,
	}
}

// Energy drive weights.
const (
	pointerDrive = 0.6
	scrollDrive  = 0.8
	hoverDrive   = 0.3
)

// Flourish carries the synthesizer's last rgbOffset/moire output back into
// the smoother, which owns their damped history.
type Flourish struct {
	RGBOffset      float64
	MoireIntensity float64
}

type Smoother struct {
	p        Params
	d        Dynamics
	flourish Flourish
	updates  uint64
}

func New(p Params) *Smoother {
	s := &Smoother{p: p}
	s.Reset()
	return s
}

// Reset returns every field to its neutral value.
func (s *Smoother) Reset() {
	s.d = Dynamics{
		Energy:        s.p.RestingEnergy,
		HoverActivity: s.p.RestingHoverActivity,
	}
	s.flourish = Flourish{}
	s.updates = 0
}

// Feed stages the flourish values to smooth toward on the next tick.
func (s *Smoother) Feed(f Flourish) {
	s.flourish = f
}

// Tick advances every filter by dt milliseconds toward raw.
func (s *Smoother) Tick(dt float64, raw sampler.Raw) {
	p := s.p
	d := &s.d

	d.PointerX = lowpass.Step(d.PointerX, raw.PointerX, dt, p.TauPointer)
	d.PointerY = lowpass.Step(d.PointerY, raw.PointerY, dt, p.TauPointer)
	d.PointerVelocity = lowpass.Step(d.PointerVelocity, raw.PointerVelocity, dt, p.TauPointerVelocity)
	d.ScrollVelocity = lowpass.Step(d.ScrollVelocity, raw.ScrollVelocity, dt, p.TauScrollVelocity)
	d.ScrollProgress = lowpass.Step(d.ScrollProgress, raw.ScrollProgress, dt, p.TauScrollProgress)
	d.HoverCount = lowpass.Step(d.HoverCount, float64(raw.Hovered), dt, p.TauHoverCount)

	hoverTarget := p.RestingHoverActivity
	if raw.Hovered > 0 {
		hoverTarget = math.Max(hoverTarget, math.Min(1, float64(raw.Hovered)/math.Max(1, p.HoverSaturation)))
	}
	d.HoverActivity = lowpass.Step(d.HoverActivity, hoverTarget, dt, p.TauHoverActivity)

	energyTarget := p.RestingEnergy
	if raw.Fresh() {
		drive := raw.PointerVelocity*pointerDrive + raw.ScrollVelocity*scrollDrive
		if raw.Hovered > 0 {
			drive += hoverTarget * hoverDrive
		}
		drive = math.Max(math.Min(1, drive), raw.Pulse)
		energyTarget = math.Max(drive, p.RestingEnergy)
	}
	tau := p.TauEnergyDecay
	if energyTarget > d.Energy {
		tau = p.TauEnergyRise
	}
	d.Energy = lowpass.Step(d.Energy, energyTarget, dt, tau)

	d.RGBOffset = lowpass.Step(d.RGBOffset, s.flourish.RGBOffset, dt, p.TauRGBOffset)
	d.MoireIntensity = lowpass.Step(d.MoireIntensity, s.flourish.MoireIntensity, dt, p.TauMoire)

	s.updates++
}

func (s *Smoother) Dynamics() Dynamics { return s.d }

// Updates returns how many times Tick has run since the last Reset.
func (s *Smoother) Updates() uint64 { return s.updates }

func (s *Smoother) Params() Params { return s.p }
