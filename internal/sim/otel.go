package sim

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/san-kum/quadsim/internal/sim"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	ticks     metric.Int64Counter
	saturated metric.Int64Counter
	failures  metric.Int64Counter
}

// newInstruments uses the global OTel meter (no-op if not configured).
// Instruments that cannot be created fall back to no-ops.
func newInstruments() instruments {
	m := meter()
	var nm noop.Meter
	in := instruments{}

	var err error
	if in.ticks, err = m.Int64Counter("sim.ticks",
		metric.WithDescription("Control ticks simulated")); err != nil {
		in.ticks, _ = nm.Int64Counter("sim.ticks")
	}
	if in.saturated, err = m.Int64Counter("sim.ticks.saturated",
		metric.WithDescription("Ticks where the allocator scaled torque")); err != nil {
		in.saturated, _ = nm.Int64Counter("sim.ticks.saturated")
	}
	if in.failures, err = m.Int64Counter("sim.failures",
		metric.WithDescription("Flights that ended in the Failed mode")); err != nil {
		in.failures, _ = nm.Int64Counter("sim.failures")
	}
	return in
}
