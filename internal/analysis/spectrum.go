package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// ErrTooShort indicates fewer samples than a spectrum needs.
var ErrTooShort = errors.New("analysis: not enough samples")

// Spectrum is a one-sided amplitude spectrum.
type Spectrum struct {
	Freqs []float64 // [Hz]
	Power []float64
}

// PowerSpectrum returns the amplitude spectrum of samples taken at rate
// [Hz]. The mean is removed first so the DC bin does not dominate.
func PowerSpectrum(samples []float64, rate float64) (Spectrum, error) {
	n := len(samples)
	if n < 4 {
		return Spectrum{}, ErrTooShort
	}

	mean := stat.Mean(samples, nil)
	centered := make([]float64, n)
	for i, v := range samples {
		centered[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)

	s := Spectrum{
		Freqs: make([]float64, len(coeff)),
		Power: make([]float64, len(coeff)),
	}
	for i, c := range coeff {
		s.Freqs[i] = fft.Freq(i) * rate
		s.Power[i] = cmplx.Abs(c) / float64(n)
	}
	return s, nil
}

// Dominant returns the strongest non-DC bin.
func (s Spectrum) Dominant() (freq, power float64) {
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > power {
			freq, power = s.Freqs[i], s.Power[i]
		}
	}
	return freq, power
}

// SettlingTime returns the first time after which values stay within tol
// of target. ok is false if the signal never settles.
func SettlingTime(times, values []float64, target, tol float64) (t float64, ok bool) {
	last := -1
	for i, v := range values {
		if math.Abs(v-target) > tol {
			last = i
		}
	}
	switch {
	case last == len(values)-1:
		return 0, false
	case last < 0:
		return times[0], len(times) > 0
	}
	return times[last+1], true
}
