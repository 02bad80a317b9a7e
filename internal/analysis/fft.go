package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/san-kum/choreo/internal/trace"
)

// FlickerHz is the lowest frequency counted as flicker.
const FlickerHz = 3.0

var ErrShortTrace = errors.New("analysis: trace too short")

// FFT returns the discrete Fourier transform of data. Lengths that are not a
// power of two are zero-padded.
func FFT(data []float64) []complex128 {
	n := nextPow2(len(data))
	if n != len(data) {
		padded := make([]float64, n)
		copy(padded, data)
		data = padded
	}
	return fft(data)
}

func fft(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := fft(even)
	fodd := fft(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}
	return result
}

// PowerSpectrum returns the magnitude of the first half of the transform of
// data with its mean removed.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	out := FFT(centered)
	ps := make([]float64, len(out)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(out[i])
	}
	return ps
}

// Spectrum is the power spectrum of one field of a trace, treating ticks as
// evenly spaced at the trace's mean dt.
type Spectrum struct {
	Field      string
	SampleRate float64 // Hz
	Freqs      []float64
	Power      []float64
}

func Analyze(tr *trace.Trace, field string) (*Spectrum, error) {
	if tr == nil || len(tr.Samples) < 4 {
		return nil, ErrShortTrace
	}
	dt := tr.MeanDt()
	if dt <= 0 {
		return nil, ErrShortTrace
	}

	ps := PowerSpectrum(tr.Column(field))
	rate := 1000 / dt
	n := 2 * len(ps)
	freqs := make([]float64, len(ps))
	for i := range freqs {
		freqs[i] = float64(i) * rate / float64(n)
	}
	return &Spectrum{Field: field, SampleRate: rate, Freqs: freqs, Power: ps}, nil
}

// Dominant returns the strongest non-DC frequency and its power.
func (s *Spectrum) Dominant() (freq, power float64) {
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > power {
			freq, power = s.Freqs[i], s.Power[i]
		}
	}
	return freq, power
}

// BandPower sums power for lo <= f < hi, DC excluded.
func (s *Spectrum) BandPower(lo, hi float64) float64 {
	sum := 0.0
	for i := 1; i < len(s.Power); i++ {
		if s.Freqs[i] >= lo && s.Freqs[i] < hi {
			sum += s.Power[i]
		}
	}
	return sum
}

// FlickerRatio is the share of non-DC power at or above FlickerHz. A flat
// field reports 0.
func (s *Spectrum) FlickerRatio() float64 {
	total := s.BandPower(0, math.Inf(1))
	if total == 0 {
		return 0
	}
	return s.BandPower(FlickerHz, math.Inf(1)) / total
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
