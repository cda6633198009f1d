package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDominantFrequency(t *testing.T) {
	const rate = 50.0
	samples := make([]float64, 500)
	for i := range samples {
		tm := float64(i) / rate
		samples[i] = 0.3 + 0.2*math.Sin(2*math.Pi*2*tm) + 0.05*math.Sin(2*math.Pi*7*tm)
	}

	spec, err := PowerSpectrum(samples, rate)
	require.NoError(t, err)
	assert.InDelta(t, rate/2, spec.Freqs[len(spec.Freqs)-1], 1e-9)

	f, p := spec.Dominant()
	assert.InDelta(t, 2.0, f, 0.1)
	assert.InDelta(t, 0.1, p, 0.01)
}

func TestPowerSpectrumTooShort(t *testing.T) {
	_, err := PowerSpectrum([]float64{1, 2}, 50)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestSettlingTime(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4, 5}

	tests := []struct {
		name   string
		values []float64
		want   float64
		ok     bool
	}{
		{"settles", []float64{0, 0.5, 0.85, 1.05, 0.98, 1.0}, 3, true},
		{"overshoot inside band late", []float64{0, 1.2, 1.0, 0.7, 1.0, 1.0}, 4, true},
		{"never", []float64{0, 0, 0, 0, 0, 0.5}, 0, false},
		{"already", []float64{1, 1, 1, 1, 1, 1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SettlingTime(times, tt.values, 1, 0.1)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
