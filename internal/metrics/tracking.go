package metrics

import (
	"math"

	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
)

// AttitudeError is the largest angle between the vehicle and the
// orientation its command asks for [rad]. Disabled and failed ticks are
// ignored.
type AttitudeError struct {
	name    string
	gravity float64
	max     float64
}

func NewAttitudeError(gravity float64) *AttitudeError {
	return &AttitudeError{name: "max_attitude_error", gravity: gravity}
}

func (a *AttitudeError) Name() string { return a.name }

func (a *AttitudeError) Observe(rec dynamo.Record) {
	if rec.State.Mode != dynamo.ModeEnabled {
		return
	}
	acc := rec.Command.Accel
	acc.Z += a.gravity
	target := control.TargetOrientation(acc, rec.Command.Heading)
	a.max = math.Max(a.max, target.Inv().Mul(rec.State.Orientation).Angle())
}

func (a *AttitudeError) Value() float64 { return a.max }

func (a *AttitudeError) Reset() { a.max = 0 }

// ThrustIntegral tracks the peak magnitude of the collective thrust
// integrator. It reads the controller directly, so it only applies to
// local flight.
type ThrustIntegral struct {
	name string
	ctrl *control.Controller
	peak float64
}

func NewThrustIntegral(ctrl *control.Controller) *ThrustIntegral {
	return &ThrustIntegral{name: "peak_thrust_integral", ctrl: ctrl}
}

func (t *ThrustIntegral) Name() string { return t.name }

func (t *ThrustIntegral) Observe(dynamo.Record) {
	t.peak = math.Max(t.peak, math.Abs(t.ctrl.ThrustIntegral()))
}

func (t *ThrustIntegral) Value() float64 { return t.peak }

func (t *ThrustIntegral) Reset() { t.peak = 0 }
