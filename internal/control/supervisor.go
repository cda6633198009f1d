package control

import "github.com/san-kum/quadsim/internal/dynamo"

// Supervisor is the embedded-side mode machine. It starts Disabled, follows
// the commanded mode while healthy, and latches Failed once the vehicle
// flips. Only Reset leaves Failed.
type Supervisor struct {
	ctrl *Controller
	mode dynamo.Mode
}

func NewSupervisor(ctrl *Controller) *Supervisor {
	return &Supervisor{ctrl: ctrl, mode: dynamo.ModeDisabled}
}

// Update advances the mode machine and returns the forces to apply. Forces
// are zero unless the resulting mode is Enabled, and clamped to the
// propeller limits when it is.
func (s *Supervisor) Update(sn dynamo.Sensors, cmd dynamo.Command) dynamo.Forces {
	switch {
	case s.mode == dynamo.ModeFailed:
		// latched
	case dynamo.Flipped(sn.Orientation), cmd.Mode == dynamo.ModeFailed:
		s.mode = dynamo.ModeFailed
	case cmd.Mode == dynamo.ModeEnabled:
		if s.mode != dynamo.ModeEnabled {
			s.ctrl.Reset()
		}
		s.mode = dynamo.ModeEnabled
	default:
		s.mode = dynamo.ModeDisabled
	}

	if s.mode != dynamo.ModeEnabled {
		return dynamo.Forces{}
	}
	f := s.ctrl.Update(sn, cmd)
	p := s.ctrl.Params()
	return ClampForces(f, p.PropMin, p.PropMax)
}

func (s *Supervisor) Mode() dynamo.Mode { return s.mode }

func (s *Supervisor) Saturated() bool { return s.ctrl.Saturated() }

func (s *Supervisor) Controller() *Controller { return s.ctrl }

// Reset returns to Disabled and clears the controller.
func (s *Supervisor) Reset() {
	s.mode = dynamo.ModeDisabled
	s.ctrl.Reset()
}
