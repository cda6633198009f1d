package control

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/san-kum/quadsim/internal/dynamo"
)

func TestSupervisor_Transitions(t *testing.T) {
	s := NewSupervisor(newTestController(t))
	assert.Equal(t, dynamo.ModeDisabled, s.Mode())

	enabled := dynamo.Command{Mode: dynamo.ModeEnabled}
	flipped := dynamo.Sensors{Orientation: dynamo.AxisAngle(dynamo.XHat, 2.0)}

	f := s.Update(level(0), dynamo.Command{})
	assert.Equal(t, dynamo.Forces{}, f)
	assert.Equal(t, dynamo.ModeDisabled, s.Mode())

	f = s.Update(level(0), enabled)
	assert.Equal(t, dynamo.ModeEnabled, s.Mode())
	assert.Greater(t, f.Sum(), 0.0)

	s.Update(flipped, enabled)
	assert.Equal(t, dynamo.ModeFailed, s.Mode())

	// latched even when upright and commanded on
	f = s.Update(level(0), enabled)
	assert.Equal(t, dynamo.ModeFailed, s.Mode())
	assert.Equal(t, dynamo.Forces{}, f)

	s.Reset()
	assert.Equal(t, dynamo.ModeDisabled, s.Mode())
}

func TestSupervisor_EnableResetsController(t *testing.T) {
	s := NewSupervisor(newTestController(t))
	enabled := dynamo.Command{Mode: dynamo.ModeEnabled}

	for i := 0; i < 20; i++ {
		s.Update(level(-3), enabled)
	}
	assert.NotZero(t, s.Controller().ThrustIntegral())

	s.Update(level(0), dynamo.Command{Mode: dynamo.ModeDisabled})
	s.Update(level(0), enabled)
	// one tick of zero error since the reset
	assert.Zero(t, s.Controller().ThrustIntegral())
}

func TestSupervisor_ForcesWithinLimits(t *testing.T) {
	s := NewSupervisor(newTestController(t))
	p := s.Controller().Params()
	tilted := dynamo.Sensors{Orientation: dynamo.AxisAngle(dynamo.YHat, 1.2)}
	cmd := dynamo.Command{Accel: dynamo.Vec3{X: 20, Z: 20}, Mode: dynamo.ModeEnabled}

	for i := 0; i < 50; i++ {
		f := s.Update(tilted, cmd)
		for j := range f {
			assert.GreaterOrEqual(t, f[j], p.PropMin)
			assert.LessOrEqual(t, f[j], p.PropMax)
		}
	}
}

func TestSupervisor_CommandedFailure(t *testing.T) {
	s := NewSupervisor(newTestController(t))
	s.Update(level(0), dynamo.Command{Mode: dynamo.ModeFailed})
	assert.Equal(t, dynamo.ModeFailed, s.Mode())
}
