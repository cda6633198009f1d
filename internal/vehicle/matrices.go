package vehicle

import (
	"fmt"

	"github.com/san-kum/quadsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// propSigns gives the arm sign (x, y) of each propeller in allocation order.
var propSigns = [dynamo.NumProps][2]float64{
	{+1, +1},
	{+1, -1},
	{-1, +1},
	{-1, -1},
}

// Matrices are the actuation maps derived once from Params.
type Matrices struct {
	// AngAlloc maps body torque [N*m] to differential prop force [N] (4x3).
	AngAlloc *mat.Dense
	// LinAlloc maps collective thrust [N] to common-mode prop force [N] (4x1).
	LinAlloc *mat.Dense
	// AngDyn maps prop forces [N] to body angular acceleration [rad/s^2] (3x4).
	AngDyn *mat.Dense
	// LinDyn maps prop forces [N] to body linear acceleration [m/s^2] (3x4).
	LinDyn *mat.Dense
}

// Geometry returns the 3x4 map from prop forces to body torque. Roll torque
// is y*F, pitch torque is -x*F, and yaw reaction torque alternates with the
// spin direction (sign x*y).
func Geometry(p Params) *mat.Dense {
	g := mat.NewDense(3, dynamo.NumProps, nil)
	for i, s := range propSigns {
		g.Set(0, i, p.Arm[1]*s[1])
		g.Set(1, i, -p.Arm[0]*s[0])
		g.Set(2, i, p.Arm[2]*s[0]*s[1])
	}
	return g
}

// Derive computes the actuation matrices. The allocation maps are the
// Moore-Penrose pseudo-inverses of the torque and thrust maps.
func Derive(p Params) (*Matrices, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	geom := Geometry(p)
	angAlloc, err := pinv(geom)
	if err != nil {
		return nil, fmt.Errorf("vehicle: torque allocation: %w", err)
	}

	thrust := mat.NewDense(1, dynamo.NumProps, []float64{1, 1, 1, 1})
	linAlloc, err := pinv(thrust)
	if err != nil {
		return nil, fmt.Errorf("vehicle: thrust allocation: %w", err)
	}

	invInertia := mat.NewDiagDense(3, []float64{
		1 / p.Inertia[0], 1 / p.Inertia[1], 1 / p.Inertia[2],
	})
	angDyn := mat.NewDense(3, dynamo.NumProps, nil)
	angDyn.Mul(invInertia, geom)

	linDyn := mat.NewDense(3, dynamo.NumProps, nil)
	for i := 0; i < dynamo.NumProps; i++ {
		linDyn.Set(2, i, 1/p.Mass)
	}

	return &Matrices{
		AngAlloc: angAlloc,
		LinAlloc: linAlloc,
		AngDyn:   angDyn,
		LinDyn:   linDyn,
	}, nil
}

// pinv returns a^T (a a^T)^-1 for a full row rank a.
func pinv(a *mat.Dense) (*mat.Dense, error) {
	r, c := a.Dims()
	var aat mat.Dense
	aat.Mul(a, a.T())
	var inv mat.Dense
	if err := inv.Inverse(&aat); err != nil {
		return nil, err
	}
	out := mat.NewDense(c, r, nil)
	out.Mul(a.T(), &inv)
	return out, nil
}

// AllocTorque returns AngAlloc * tau.
func (m *Matrices) AllocTorque(tau dynamo.Vec3) dynamo.Forces {
	in := mat.NewVecDense(3, []float64{tau.X, tau.Y, tau.Z})
	var out mat.VecDense
	out.MulVec(m.AngAlloc, in)
	return forcesFrom(&out)
}

// AllocThrust returns LinAlloc * thrust.
func (m *Matrices) AllocThrust(thrust float64) dynamo.Forces {
	in := mat.NewVecDense(1, []float64{thrust})
	var out mat.VecDense
	out.MulVec(m.LinAlloc, in)
	return forcesFrom(&out)
}

// AngularAccel returns AngDyn * f.
func (m *Matrices) AngularAccel(f dynamo.Forces) dynamo.Vec3 {
	return mulForces(m.AngDyn, f)
}

// LinearAccel returns LinDyn * f, in the body frame.
func (m *Matrices) LinearAccel(f dynamo.Forces) dynamo.Vec3 {
	return mulForces(m.LinDyn, f)
}

func mulForces(a *mat.Dense, f dynamo.Forces) dynamo.Vec3 {
	in := mat.NewVecDense(dynamo.NumProps, f[:])
	var out mat.VecDense
	out.MulVec(a, in)
	return dynamo.Vec3{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

func forcesFrom(v *mat.VecDense) dynamo.Forces {
	var f dynamo.Forces
	for i := range f {
		f[i] = v.AtVec(i)
	}
	return f
}
