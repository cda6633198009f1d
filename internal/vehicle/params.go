// Package vehicle holds the static model of the quadrotor and the linear
// maps derived from it.
package vehicle

import (
	"errors"
	"fmt"
)

// ErrInvalidParams indicates a model parameter outside its physical range.
var ErrInvalidParams = errors.New("vehicle: invalid parameters")

const (
	DefaultInertiaX = 1.15e-3 // [kg*m^2]
	DefaultInertiaY = 1.32e-3
	DefaultInertiaZ = 2.24e-3
	DefaultArmX     = 0.093 // [m]
	DefaultArmY     = 0.093
	DefaultArmZ     = 0.055 // yaw drag moment arm [m]
	DefaultMass     = 0.546 // [kg]
	DefaultGravity  = 9.807 // [m/s^2]
	DefaultPropMin  = 0.00  // [N]
	DefaultPropMax  = 2.46
	DefaultCtrlFreq = 50.0 // [Hz]
)

// Params are the per-vehicle constants. They are fixed for the lifetime of
// any controller or plant built from them.
type Params struct {
	Inertia  [3]float64 `yaml:"inertia"`   // principal moments [kg*m^2]
	Arm      [3]float64 `yaml:"arm"`       // roll, pitch and yaw moment arms [m]
	PropMin  float64    `yaml:"prop_min"`  // [N]
	PropMax  float64    `yaml:"prop_max"`  // [N]
	Mass     float64    `yaml:"mass"`      // [kg]
	Gravity  float64    `yaml:"gravity"`   // [m/s^2]
	CtrlFreq float64    `yaml:"ctrl_freq"` // [Hz]
}

func Default() Params {
	return Params{
		Inertia:  [3]float64{DefaultInertiaX, DefaultInertiaY, DefaultInertiaZ},
		Arm:      [3]float64{DefaultArmX, DefaultArmY, DefaultArmZ},
		PropMin:  DefaultPropMin,
		PropMax:  DefaultPropMax,
		Mass:     DefaultMass,
		Gravity:  DefaultGravity,
		CtrlFreq: DefaultCtrlFreq,
	}
}

// Validate checks that every parameter is physically meaningful.
func (p Params) Validate() error {
	for i, v := range p.Inertia {
		if v <= 0 {
			return fmt.Errorf("%w: inertia[%d] must be positive, got %g", ErrInvalidParams, i, v)
		}
	}
	for i, v := range p.Arm {
		if v <= 0 {
			return fmt.Errorf("%w: arm[%d] must be positive, got %g", ErrInvalidParams, i, v)
		}
	}
	if p.PropMax <= p.PropMin {
		return fmt.Errorf("%w: prop_max %g must exceed prop_min %g", ErrInvalidParams, p.PropMax, p.PropMin)
	}
	if p.Mass <= 0 {
		return fmt.Errorf("%w: mass must be positive, got %g", ErrInvalidParams, p.Mass)
	}
	if p.Gravity <= 0 {
		return fmt.Errorf("%w: gravity must be positive, got %g", ErrInvalidParams, p.Gravity)
	}
	if p.CtrlFreq <= 0 {
		return fmt.Errorf("%w: ctrl_freq must be positive, got %g", ErrInvalidParams, p.CtrlFreq)
	}
	if 4*p.PropMax <= p.Mass*p.Gravity {
		return fmt.Errorf("%w: max thrust %g N cannot lift %g N", ErrInvalidParams, 4*p.PropMax, p.Mass*p.Gravity)
	}
	return nil
}

// Period returns the control period [s].
func (p Params) Period() float64 {
	return 1 / p.CtrlFreq
}

// HoverForce returns the per-propeller force that balances gravity [N].
func (p Params) HoverForce() float64 {
	return p.Mass * p.Gravity / 4
}
