package metrics

import (
	"github.com/san-kum/quadsim/internal/dynamo"
)

// Stability is the fraction of ticks flown upright with tilt at or below
// threshold [rad] and without a failure.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(rec dynamo.Record) {
	s.samples++
	if rec.State.Mode == dynamo.ModeFailed || rec.State.Tilt() > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
