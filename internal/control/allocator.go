package control

import (
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/vehicle"
)

// Allocation is the result of one force regulation.
type Allocation struct {
	Forces    dynamo.Forces
	Angular   dynamo.Forces // torque-producing part before scaling
	Linear    dynamo.Forces // thrust-producing part
	Scale     float64       // factor applied to Angular, in [0, 1]
	Saturated bool
}

// Allocator turns a body torque and a collective thrust into propeller
// forces inside [Min, Max]. Thrust always wins: when torque and thrust do
// not fit together, the torque part is scaled down uniformly.
type Allocator struct {
	mats *vehicle.Matrices
	Min  float64
	Max  float64
}

func NewAllocator(m *vehicle.Matrices, min, max float64) *Allocator {
	return &Allocator{mats: m, Min: min, Max: max}
}

func (a *Allocator) Allocate(tau dynamo.Vec3, thrust float64) Allocation {
	fAng := a.mats.AllocTorque(tau)
	fLin := a.mats.AllocThrust(thrust)
	return a.Regulate(fAng, fLin)
}

// Regulate combines the angular and linear force parts. For each prop the
// largest angular scale that keeps it in bounds is found; the smallest over
// all props is applied. The prop that set the scale lands exactly on its
// bound.
func (a *Allocator) Regulate(fAng, fLin dynamo.Forces) Allocation {
	scale := 1.0
	binding := -1
	var bound float64
	for i := range fAng {
		var p, b float64
		switch {
		case fAng[i] > 0:
			b = a.Max
			p = (a.Max - fLin[i]) / fAng[i]
		case fAng[i] < 0:
			b = a.Min
			p = (a.Min - fLin[i]) / fAng[i]
		default:
			continue
		}
		if p > 0 && p < scale {
			scale = p
			binding = i
			bound = b
		}
	}

	var out dynamo.Forces
	for i := range out {
		out[i] = scale*fAng[i] + fLin[i]
	}
	if binding >= 0 {
		out[binding] = bound
	}

	return Allocation{
		Forces:    out,
		Angular:   fAng,
		Linear:    fLin,
		Scale:     scale,
		Saturated: binding >= 0,
	}
}

// ClampForces bounds each force to [min, max].
func ClampForces(f dynamo.Forces, min, max float64) dynamo.Forces {
	for i := range f {
		f[i] = math.Max(min, math.Min(max, f[i]))
	}
	return f
}
