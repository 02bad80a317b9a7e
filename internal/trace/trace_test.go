package trace

import (
	"testing"

	"github.com/san-kum/choreo/internal/signal"
	"github.com/stretchr/testify/assert"
)

func sample() *Trace {
	return &Trace{Samples: []Sample{
		{At: 16, Dt: 16, Emitted: true, Live: signal.Vector{signal.Hue: 10, signal.Intensity: 0.5}},
		{At: 32, Dt: 16, Live: signal.Vector{signal.Hue: 12, signal.Intensity: 0.5, signal.FormMix: 0.2, "custom": 1}},
		{At: 80, Dt: 48, Emitted: true, Live: signal.Vector{signal.Hue: 14, signal.Intensity: 0.6}},
	}}
}

func TestTrace_Fields(t *testing.T) {
	assert.Equal(t, []string{signal.Intensity, signal.Hue, signal.FormMix, "custom"}, sample().Fields())
}

func TestTrace_Column(t *testing.T) {
	tr := sample()
	assert.Equal(t, []float64{10, 12, 14}, tr.Column(signal.Hue))
	assert.Equal(t, []float64{0, 0.2, 0.2}, tr.Column(signal.FormMix))
	assert.Equal(t, []float64{16, 32, 80}, tr.Times())
}

func TestTrace_Emits(t *testing.T) {
	tr := sample()
	assert.Equal(t, []float64{16, 80}, tr.Emits())
	assert.InDelta(t, 80.0/3, tr.MeanDt(), 1e-12)
	assert.Zero(t, (&Trace{}).MeanDt())
}
