package sim

import (
	"context"

	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
)

// Local runs the control law in process.
type Local struct {
	sup *control.Supervisor
}

func NewLocal(sup *control.Supervisor) *Local {
	return &Local{sup: sup}
}

func (l *Local) Forces(_ context.Context, st dynamo.VehicleState, cmd dynamo.Command) (dynamo.Forces, error) {
	return l.sup.Update(st.Sensors(), cmd), nil
}

func (l *Local) Saturated() bool   { return l.sup.Saturated() }
func (l *Local) Mode() dynamo.Mode { return l.sup.Mode() }

func (l *Local) Supervisor() *control.Supervisor { return l.sup }
