package metrics

import (
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
)

// Energy is the mean rotational kinetic energy 0.5*w'Iw over a run [J].
type Energy struct {
	name        string
	inertia     [3]float64
	samples     int
	totalEnergy float64
}

func NewEnergy(inertia [3]float64) *Energy {
	return &Energy{
		name:    "rotational_energy",
		inertia: inertia,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(rec dynamo.Record) {
	e.totalEnergy += rotational(e.inertia, rec.State.AngularVel)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// PeakEnergy is the largest rotational energy seen in a run [J].
type PeakEnergy struct {
	name    string
	inertia [3]float64
	peak    float64
}

func NewPeakEnergy(inertia [3]float64) *PeakEnergy {
	return &PeakEnergy{
		name:    "peak_rotational_energy",
		inertia: inertia,
	}
}

func (e *PeakEnergy) Name() string { return e.name }

func (e *PeakEnergy) Observe(rec dynamo.Record) {
	e.peak = math.Max(e.peak, rotational(e.inertia, rec.State.AngularVel))
}

func (e *PeakEnergy) Value() float64 { return e.peak }

func (e *PeakEnergy) Reset() { e.peak = 0 }

func rotational(inertia [3]float64, w dynamo.Vec3) float64 {
	return 0.5 * (inertia[0]*w.X*w.X + inertia[1]*w.Y*w.Y + inertia[2]*w.Z*w.Z)
}
