package control

import (
	"fmt"
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/vehicle"
)

const (
	DefaultPoleQXY  = -5.0 // attitude x/y triple pole [1/s]
	DefaultPoleQZ   = -3.0 // attitude z triple pole [1/s]
	DefaultPoleAZ   = -8.0 // accel z pole [1/s]
	DefaultRatioMin = 0.10 // min collective thrust ratio
	DefaultRatioMax = 0.90 // max collective thrust ratio
)

// Gains is one PID gain set.
type Gains struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// Tuning places the closed-loop poles. Attitude loops get a triple pole per
// axis; Adjust is added to the derived gains.
//
// ThrustHold freezes the thrust integral while the collective output sits
// on a limit and the error pushes further into it. With it off the output
// clamp is the only bound and the integral drifts without limit under a
// sustained unreachable command.
type Tuning struct {
	PoleQ      [3]float64 `yaml:"pole_q"`
	PoleAZ     float64    `yaml:"pole_az"`
	Adjust     [3]Gains   `yaml:"adjust"`
	RatioMin   float64    `yaml:"ratio_min"`
	RatioMax   float64    `yaml:"ratio_max"`
	ThrustHold bool       `yaml:"thrust_hold"`
}

func DefaultTuning() Tuning {
	return Tuning{
		PoleQ:      [3]float64{DefaultPoleQXY, DefaultPoleQXY, DefaultPoleQZ},
		PoleAZ:     DefaultPoleAZ,
		RatioMin:   DefaultRatioMin,
		RatioMax:   DefaultRatioMax,
		ThrustHold: true,
	}
}

func (t Tuning) Validate() error {
	for i, p := range t.PoleQ {
		if p >= 0 {
			return fmt.Errorf("control: pole_q[%d] must be negative, got %g", i, p)
		}
	}
	if t.PoleAZ >= 0 {
		return fmt.Errorf("control: pole_az must be negative, got %g", t.PoleAZ)
	}
	if t.RatioMin < 0 || t.RatioMax > 1 || t.RatioMin >= t.RatioMax {
		return fmt.Errorf("control: thrust ratio range [%g, %g] invalid", t.RatioMin, t.RatioMax)
	}
	return nil
}

// AttitudeGains returns the PID gains for quaternion axis i that place a
// triple pole at PoleQ[i] for a rigid body of the given inertia.
func (t Tuning) AttitudeGains(i int, inertia float64) Gains {
	p := t.PoleQ[i]
	return Gains{
		Kp: 6*inertia*p*p + t.Adjust[i].Kp,
		Ki: -2*inertia*p*p*p + t.Adjust[i].Ki,
		Kd: -6*inertia*p + t.Adjust[i].Kd,
	}
}

// ThrustGain returns the integral gain of the collective thrust loop.
func (t Tuning) ThrustGain(mass float64) float64 {
	return -mass * t.PoleAZ
}

// Limits are the command and actuator bounds derived from Params and Tuning.
type Limits struct {
	AccMagMin float64 // [m/s^2]
	AccMagMax float64
	ThrustMin float64 // collective [N]
	ThrustMax float64
}

func NewLimits(p vehicle.Params, t Tuning) Limits {
	accMax := 4 * p.PropMax / p.Mass
	return Limits{
		AccMagMin: accMax * t.RatioMin,
		AccMagMax: accMax * t.RatioMax,
		ThrustMin: 4 * p.PropMax * t.RatioMin,
		ThrustMax: 4 * p.PropMax * t.RatioMax,
	}
}

// LimitAccel clamps a gravity-inclusive acceleration command so its z part
// lies in [AccMagMin, AccMagMax] and its total magnitude is at most
// AccMagMax. Only the horizontal part is scaled.
func (l Limits) LimitAccel(acc dynamo.Vec3) dynamo.Vec3 {
	acc.Z = math.Max(l.AccMagMin, math.Min(l.AccMagMax, acc.Z))
	normXY := acc.NormXY()
	if normXY == 0 {
		return acc
	}
	normXYMax := math.Sqrt(math.Max(0, l.AccMagMax*l.AccMagMax-acc.Z*acc.Z))
	if s := normXYMax / normXY; s < 1 {
		acc.X *= s
		acc.Y *= s
	}
	return acc
}
