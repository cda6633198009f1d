package plant

import (
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/vehicle"
)

// Step advances prev by dt under forces. The vehicle fails if it has
// flipped or was already failed; forces are zeroed whenever the resulting
// mode is not Enabled.
func Step(m *vehicle.Matrices, gravity, dt float64, prev dynamo.VehicleState, forces dynamo.Forces, mode dynamo.Mode) dynamo.VehicleState {
	if prev.Mode == dynamo.ModeFailed || dynamo.Flipped(prev.Orientation) {
		mode = dynamo.ModeFailed
	}
	if mode != dynamo.ModeEnabled {
		forces = dynamo.Forces{}
	}

	alpha := m.AngularAccel(forces)
	q := prev.Orientation
	w := prev.AngularVel
	if n := w.Norm(); n > 0 {
		dq := dynamo.AxisAngle(w.Scale(1/n), n*dt)
		q = q.Mul(dq).Canonical()
	}
	w = w.Add(alpha.Scale(dt))

	acc := q.Rotate(m.LinearAccel(forces)).Sub(dynamo.Vec3{Z: gravity})

	return dynamo.VehicleState{
		Orientation: q,
		AngularVel:  w,
		Accel:       acc,
		Forces:      forces,
		Mode:        mode,
	}
}

// Quadrotor holds the simulated vehicle between ticks.
type Quadrotor struct {
	params vehicle.Params
	mats   *vehicle.Matrices
	dt     float64

	state dynamo.VehicleState
	vel   dynamo.Vec3 // world [m/s]
	pos   dynamo.Vec3 // world [m]
}

func New(p vehicle.Params) (*Quadrotor, error) {
	m, err := vehicle.Derive(p)
	if err != nil {
		return nil, err
	}
	q := &Quadrotor{params: p, mats: m, dt: p.Period()}
	q.Reset()
	return q, nil
}

// Step applies forces for one control period and returns the new state.
func (q *Quadrotor) Step(forces dynamo.Forces, mode dynamo.Mode) dynamo.VehicleState {
	q.state = Step(q.mats, q.params.Gravity, q.dt, q.state, forces, mode)
	q.vel = q.vel.Add(q.state.Accel.Scale(q.dt))
	q.pos = q.pos.Add(q.vel.Scale(q.dt))
	return q.state
}

// Reset returns the vehicle to the initial state: level, at rest, Disabled.
func (q *Quadrotor) Reset() {
	q.state = dynamo.InitialState()
	q.vel = dynamo.Vec3{}
	q.pos = dynamo.Vec3{}
}

// SetState replaces the current state, e.g. to start from a tilted pose.
func (q *Quadrotor) SetState(s dynamo.VehicleState) {
	q.state = s
}

func (q *Quadrotor) State() dynamo.VehicleState { return q.state }
func (q *Quadrotor) Velocity() dynamo.Vec3      { return q.vel }
func (q *Quadrotor) Position() dynamo.Vec3      { return q.pos }
func (q *Quadrotor) Params() vehicle.Params     { return q.params }
func (q *Quadrotor) Dt() float64                { return q.dt }

// RotationalEnergy returns 0.5 * w' I w for the current state [J].
func (q *Quadrotor) RotationalEnergy() float64 {
	w := q.state.AngularVel
	in := q.params.Inertia
	return 0.5 * (in[0]*w.X*w.X + in[1]*w.Y*w.Y + in[2]*w.Z*w.Z)
}
