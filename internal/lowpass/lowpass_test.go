package lowpass

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlpha(t *testing.T) {
	assert.InDelta(t, 1-math.Exp(-16.0/220.0), Alpha(16, 220), 1e-12)
	assert.InDelta(t, 0.0701, Alpha(16, 220), 1e-4)
	assert.Equal(t, 0.0, Alpha(0, 220))
	assert.Equal(t, 0.0, Alpha(-5, 220))
	assert.Equal(t, 0.0, Alpha(math.NaN(), 220))
	assert.Equal(t, 1.0, Alpha(16, 0))
}

func TestStep_FrameRateIndependent(t *testing.T) {
	one := Step(0, 1, 48, 200)

	three := 0.0
	for i := 0; i < 3; i++ {
		three = Step(three, 1, 16, 200)
	}

	assert.InDelta(t, one, three, 1e-12)
}

func TestStep_ConvergesMonotonically(t *testing.T) {
	x := 0.2
	target := 0.6
	prevGap := math.Abs(target - x)

	for i := 0; i < 500; i++ {
		x = Step(x, target, 16, 220)
		gap := math.Abs(target - x)
		assert.LessOrEqual(t, gap, prevGap)
		prevGap = gap
	}
	assert.InDelta(t, target, x, 1e-6)
}

func TestShortestArc(t *testing.T) {
	tests := []struct {
		from, to, want float64
	}{
		{10, 20, 10},
		{350, 10, 20},
		{10, 350, -20},
		{0, 180, 180},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ShortestArc(tt.from, tt.to, 360), 1e-9)
	}
}

func TestStepAngle_WrapsForward(t *testing.T) {
	x := 350.0
	for i := 0; i < 200; i++ {
		x = StepAngle(x, 10, 16, 100, 360)
		assert.GreaterOrEqual(t, x, 0.0)
		assert.Less(t, x, 360.0)
	}
	assert.InDelta(t, 10, x, 0.01)
}

func TestFilter(t *testing.T) {
	f := NewFilter(100, 0)
	f.Update(1, 100)
	assert.InDelta(t, 1-math.Exp(-1), f.Value(), 1e-12)

	f.Reset(0.5)
	assert.Equal(t, 0.5, f.Value())
}
