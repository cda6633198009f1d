package control

import (
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/vehicle"
)

// Controller is the attitude/acceleration law. It tracks a world-frame
// acceleration and heading by tilting the thrust vector, with one PID per
// error-quaternion axis and an integral loop on body-z acceleration.
type Controller struct {
	params vehicle.Params
	tuning Tuning
	limits Limits
	mats   *vehicle.Matrices
	alloc  *Allocator

	quat [3]*PID
	accZ *PID

	saturated bool
	forces    dynamo.Forces
	torque    dynamo.Vec3
	thrust    float64
	target    dynamo.Quat
	attErr    dynamo.Quat
}

func New(p vehicle.Params, t Tuning) (*Controller, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	mats, err := vehicle.Derive(p)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		params: p,
		tuning: t,
		limits: NewLimits(p, t),
		mats:   mats,
		alloc:  NewAllocator(mats, p.PropMin, p.PropMax),
	}
	for i := range c.quat {
		g := t.AttitudeGains(i, p.Inertia[i])
		c.quat[i] = NewPID(g.Kp, g.Ki, g.Kd, math.Inf(-1), math.Inf(1), p.CtrlFreq)
	}
	c.accZ = NewPID(0, t.ThrustGain(p.Mass), 0, c.limits.ThrustMin, c.limits.ThrustMax, p.CtrlFreq)
	c.Reset()
	return c, nil
}

// Update runs one control tick and returns the regulated propeller forces.
// The saturation flag from the previous tick freezes the attitude
// integrators.
func (c *Controller) Update(s dynamo.Sensors, cmd dynamo.Command) dynamo.Forces {
	g := c.params.Gravity

	acc := cmd.Accel
	acc.Z += g
	acc = c.limits.LimitAccel(acc)

	c.target = TargetOrientation(acc, cmd.Heading)
	e := c.target.Inv().Mul(s.Orientation)
	if e.W < 0 {
		e = e.Neg()
	}
	c.attErr = e

	c.torque = dynamo.Vec3{
		X: c.quat[0].Update(-e.X, 0, c.saturated),
		Y: c.quat[1].Update(-e.Y, 0, c.saturated),
		Z: c.quat[2].Update(-e.Z, 0, c.saturated),
	}

	acc.Z -= g
	local := s.Orientation.Inv().Rotate(acc)
	errZ := local.Z - s.LocalAccel.Z
	hold := c.tuning.ThrustHold &&
		((c.thrust >= c.limits.ThrustMax && errZ > 0) ||
			(c.thrust <= c.limits.ThrustMin && errZ < 0))
	c.thrust = c.accZ.Update(errZ, 0, hold)

	a := c.alloc.Allocate(c.torque, c.thrust)
	c.saturated = a.Saturated
	c.forces = a.Forces
	return c.forces
}

// TargetOrientation returns the orientation whose body z-axis points along
// acc with the given heading. A zero acc yields the heading rotation alone.
func TargetOrientation(acc dynamo.Vec3, heading float64) dynamo.Quat {
	qz := dynamo.AxisAngle(dynamo.ZHat, heading)
	if acc.IsZero() {
		return qz
	}
	a := acc.Unit()
	sz, cz := math.Sincos(heading)
	tx := math.Asin(clampUnit(sz*a.X - cz*a.Y))
	ty := math.Asin(clampUnit((cz*a.X + sz*a.Y) / math.Cos(tx)))
	qx := dynamo.AxisAngle(dynamo.XHat, tx)
	qy := dynamo.AxisAngle(dynamo.YHat, ty)
	return qz.Mul(qy).Mul(qx)
}

func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

// Reset clears all integrators, the saturation flag and cached outputs.
func (c *Controller) Reset() {
	for _, p := range c.quat {
		p.Reset()
	}
	c.accZ.Reset()
	c.saturated = false
	c.forces = dynamo.Forces{}
	c.torque = dynamo.Vec3{}
	c.thrust = 0
	c.target = dynamo.Identity
	c.attErr = dynamo.Identity
}

func (c *Controller) Saturated() bool             { return c.saturated }
func (c *Controller) Forces() dynamo.Forces       { return c.forces }
func (c *Controller) Torque() dynamo.Vec3         { return c.torque }
func (c *Controller) Thrust() float64             { return c.thrust }
func (c *Controller) Target() dynamo.Quat         { return c.target }
func (c *Controller) AttitudeError() dynamo.Quat  { return c.attErr }
func (c *Controller) Limits() Limits              { return c.limits }
func (c *Controller) Params() vehicle.Params      { return c.params }
func (c *Controller) Matrices() *vehicle.Matrices { return c.mats }

// ThrustIntegral returns the accumulated body-z acceleration error.
func (c *Controller) ThrustIntegral() float64 {
	return c.accZ.Integral()
}
