package sim

import (
	"context"

	"github.com/san-kum/quadsim/internal/dynamo"
)

// FlightController produces propeller forces for the current state. It is
// the local control law or a link to one running elsewhere.
type FlightController interface {
	Forces(ctx context.Context, st dynamo.VehicleState, cmd dynamo.Command) (dynamo.Forces, error)
}

// Saturator is implemented by flight controllers that report actuator
// saturation.
type Saturator interface {
	Saturated() bool
}

// Moder is implemented by flight controllers that own the vehicle mode.
type Moder interface {
	Mode() dynamo.Mode
}

type Metric interface {
	Name() string
	Observe(rec dynamo.Record)
	Value() float64
	Reset()
}

type Observer interface {
	OnTick(rec dynamo.Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(rec dynamo.Record)

func (f ObserverFunc) OnTick(rec dynamo.Record) { f(rec) }

type Config struct {
	Duration   float64 // [s]
	RealTime   bool    // pace ticks at the control period
	StopOnFail bool
}

type Result struct {
	Records  []dynamo.Record
	Metrics  map[string]float64
	Timeouts int
}

// Final returns the last recorded state, or the initial state for an empty
// run.
func (r *Result) Final() dynamo.VehicleState {
	if len(r.Records) == 0 {
		return dynamo.InitialState()
	}
	return r.Records[len(r.Records)-1].State
}
