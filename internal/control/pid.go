package control

import "math"

// PID is a fixed-rate PID controller. The integrator advances on every
// Update unless the caller asks it to hold; clamping the output alone never
// stops integration.
type PID struct {
	Kp   float64
	Ki   float64
	Kd   float64
	Min  float64
	Max  float64
	Freq float64

	integral float64
	prevErr  float64
	first    bool
}

func NewPID(kp, ki, kd, min, max, freq float64) *PID {
	return &PID{
		Kp:    kp,
		Ki:    ki,
		Kd:    kd,
		Min:   min,
		Max:   max,
		Freq:  freq,
		first: true,
	}
}

// Update runs one sample. ff is added to the output before clamping; hold
// freezes the integral for this sample.
func (p *PID) Update(err, ff float64, hold bool) float64 {
	if !hold {
		p.integral += err / p.Freq
	}

	derivative := 0.0
	if !p.first {
		derivative = (err - p.prevErr) * p.Freq
	}
	p.prevErr = err
	p.first = false

	u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative + ff
	return math.Max(p.Min, math.Min(p.Max, u))
}

// Reset zeroes the integral. The previous error is kept, so the next
// sample still differentiates against it.
func (p *PID) Reset() {
	p.integral = 0
}

// Integral returns the accumulated error integral.
func (p *PID) Integral() float64 {
	return p.integral
}
