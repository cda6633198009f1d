package metrics

import (
	"github.com/san-kum/quadsim/internal/dynamo"
)

// ControlEffort is the mean propeller force over a run [N].
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(rec dynamo.Record) {
	c.sum += rec.State.Forces.Sum() / dynamo.NumProps
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Saturation is the fraction of ticks on which the allocator hit a
// propeller bound.
type Saturation struct {
	name      string
	saturated int
	samples   int
}

func NewSaturation() *Saturation {
	return &Saturation{name: "saturation_ratio"}
}

func (s *Saturation) Name() string { return s.name }

func (s *Saturation) Observe(rec dynamo.Record) {
	if rec.Saturated {
		s.saturated++
	}
	s.samples++
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}
