// Package metrics holds per-run flight metrics. Each one observes the
// records of a run and reduces them to a single number.
package metrics

import (
	"github.com/san-kum/quadsim/internal/sim"
	"github.com/san-kum/quadsim/internal/vehicle"
)

// DefaultTiltLimit is the stability threshold used by Standard [rad].
const DefaultTiltLimit = 0.5

// Standard returns the metrics every run reports for a vehicle.
func Standard(p vehicle.Params) []sim.Metric {
	return []sim.Metric{
		NewControlEffort(),
		NewSaturation(),
		NewAttitudeError(p.Gravity),
		NewStability(DefaultTiltLimit),
		NewEnergy(p.Inertia),
		NewPeakEnergy(p.Inertia),
	}
}
