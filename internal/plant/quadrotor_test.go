package plant

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/vehicle"
)

func newTestPlant(t *testing.T) *Quadrotor {
	t.Helper()
	q, err := New(vehicle.Default())
	require.NoError(t, err)
	return q
}

func hover(p vehicle.Params) dynamo.Forces {
	h := p.HoverForce()
	return dynamo.Forces{h, h, h, h}
}

func TestStep_Hover(t *testing.T) {
	q := newTestPlant(t)
	s := q.Step(hover(q.Params()), dynamo.ModeEnabled)

	assert.Equal(t, dynamo.ModeEnabled, s.Mode)
	assert.InDelta(t, 0, s.Accel.Norm(), 1e-9)
	assert.InDelta(t, 0, s.AngularVel.Norm(), 1e-12)
	assert.Equal(t, hover(q.Params()), s.Forces)
}

func TestStep_FreeFallWhenDisabled(t *testing.T) {
	q := newTestPlant(t)
	s := q.Step(hover(q.Params()), dynamo.ModeDisabled)

	assert.Equal(t, dynamo.Forces{}, s.Forces)
	assert.InDelta(t, -q.Params().Gravity, s.Accel.Z, 1e-12)
}

func TestStep_DisabledMatchesZeroForce(t *testing.T) {
	p := vehicle.Default()
	m, err := vehicle.Derive(p)
	require.NoError(t, err)
	r := rand.New(rand.NewSource(5))

	for i := 0; i < 100; i++ {
		prev := dynamo.VehicleState{
			Orientation: dynamo.AxisAngle(dynamo.Vec3{X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()}, r.Float64()),
			AngularVel:  dynamo.Vec3{X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()},
			Mode:        dynamo.ModeEnabled,
		}
		f := dynamo.Forces{r.Float64() * 2, r.Float64() * 2, r.Float64() * 2, r.Float64() * 2}

		got := Step(m, p.Gravity, p.Period(), prev, f, dynamo.ModeDisabled)
		want := Step(m, p.Gravity, p.Period(), prev, dynamo.Forces{}, dynamo.ModeEnabled)

		assert.Equal(t, dynamo.Forces{}, got.Forces)
		assert.Equal(t, want.Orientation, got.Orientation)
		assert.Equal(t, want.AngularVel, got.AngularVel)
		assert.Equal(t, want.Accel, got.Accel)
	}
}

func TestStep_FlippedFails(t *testing.T) {
	p := vehicle.Default()
	m, err := vehicle.Derive(p)
	require.NoError(t, err)

	for _, mode := range []dynamo.Mode{dynamo.ModeDisabled, dynamo.ModeEnabled, dynamo.ModeFailed} {
		prev := dynamo.VehicleState{Orientation: dynamo.AxisAngle(dynamo.YHat, 2.2), Mode: dynamo.ModeEnabled}
		s := Step(m, p.Gravity, p.Period(), prev, hover(p), mode)
		assert.Equal(t, dynamo.ModeFailed, s.Mode, "commanded %v", mode)
		assert.Equal(t, dynamo.Forces{}, s.Forces)
	}
}

func TestStep_FailedIsSticky(t *testing.T) {
	q := newTestPlant(t)
	q.SetState(dynamo.VehicleState{Orientation: dynamo.Identity, Mode: dynamo.ModeFailed})

	for i := 0; i < 5; i++ {
		s := q.Step(hover(q.Params()), dynamo.ModeEnabled)
		assert.Equal(t, dynamo.ModeFailed, s.Mode)
		assert.Equal(t, dynamo.Forces{}, s.Forces)
	}

	q.Reset()
	assert.Equal(t, dynamo.ModeDisabled, q.State().Mode)
}

func TestStep_RollTorqueIntegrates(t *testing.T) {
	q := newTestPlant(t)
	p := q.Params()
	h := p.HoverForce()
	d := 0.05
	// props 0 and 2 sit on +y: pushing them up rolls about +x
	f := dynamo.Forces{h + d, h - d, h + d, h - d}

	s := q.Step(f, dynamo.ModeEnabled)
	assert.Greater(t, s.AngularVel.X, 0.0)
	assert.InDelta(t, 0, s.AngularVel.Y, 1e-12)
	assert.InDelta(t, 0, s.AngularVel.Z, 1e-12)
	// orientation lags angular velocity by one tick
	assert.Equal(t, dynamo.Identity, s.Orientation)

	s = q.Step(f, dynamo.ModeEnabled)
	roll, _, _ := s.Orientation.Euler()
	assert.Greater(t, roll, 0.0)
	assert.InDelta(t, 1, s.Orientation.Norm(), 1e-12)
	assert.GreaterOrEqual(t, s.Orientation.W, 0.0)
	assert.Greater(t, q.RotationalEnergy(), 0.0)
}

func TestStep_OrientationStaysUnit(t *testing.T) {
	q := newTestPlant(t)
	q.SetState(dynamo.VehicleState{
		Orientation: dynamo.Identity,
		AngularVel:  dynamo.Vec3{X: 0.3, Y: -0.2, Z: 4},
		Mode:        dynamo.ModeEnabled,
	})
	for i := 0; i < 1000; i++ {
		s := q.Step(hover(q.Params()), dynamo.ModeEnabled)
		require.InDelta(t, 1, s.Orientation.Norm(), 1e-9)
		require.GreaterOrEqual(t, s.Orientation.W, 0.0)
	}
}

func TestQuadrotor_KinematicsTrackAccel(t *testing.T) {
	q := newTestPlant(t)
	n := 50
	for i := 0; i < n; i++ {
		q.Step(dynamo.Forces{}, dynamo.ModeDisabled)
	}
	g := q.Params().Gravity
	T := float64(n) * q.Dt()
	assert.InDelta(t, -g*T, q.Velocity().Z, 1e-9)
	assert.Less(t, q.Position().Z, 0.0)
	assert.InDelta(t, 0, math.Hypot(q.Position().X, q.Position().Y), 1e-12)
}
