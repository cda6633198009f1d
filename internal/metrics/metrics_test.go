package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/vehicle"
)

func record(st dynamo.VehicleState, sat bool) dynamo.Record {
	return dynamo.Record{State: st, Saturated: sat, Command: dynamo.Command{Mode: dynamo.ModeEnabled}}
}

func enabled() dynamo.VehicleState {
	st := dynamo.InitialState()
	st.Mode = dynamo.ModeEnabled
	return st
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	st := enabled()
	st.Forces = dynamo.Forces{1, 1, 1, 1}
	m.Observe(record(st, false))
	st.Forces = dynamo.Forces{2, 2, 3, 3}
	m.Observe(record(st, false))

	if got := m.Value(); math.Abs(got-1.75) > 1e-12 {
		t.Errorf("expected mean force 1.75, got %f", got)
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero effort after reset")
	}
}

func TestSaturation(t *testing.T) {
	m := NewSaturation()
	for i, sat := range []bool{true, false, false, true} {
		m.Observe(dynamo.Record{Tick: i, Saturated: sat})
	}
	if got := m.Value(); got != 0.5 {
		t.Errorf("expected ratio 0.5, got %f", got)
	}
}

func TestEnergy(t *testing.T) {
	inertia := [3]float64{1, 2, 4}
	mean := NewEnergy(inertia)
	peak := NewPeakEnergy(inertia)

	st := enabled()
	st.AngularVel = dynamo.Vec3{X: 1, Y: 1, Z: 1}
	mean.Observe(record(st, false))
	peak.Observe(record(st, false))
	st.AngularVel = dynamo.Vec3{}
	mean.Observe(record(st, false))
	peak.Observe(record(st, false))

	if got := peak.Value(); math.Abs(got-3.5) > 1e-12 {
		t.Errorf("expected peak energy 3.5, got %f", got)
	}
	if got := mean.Value(); math.Abs(got-1.75) > 1e-12 {
		t.Errorf("expected mean energy 1.75, got %f", got)
	}

	mean.Reset()
	peak.Reset()
	if mean.Value() != 0 || peak.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestStability(t *testing.T) {
	tests := []struct {
		name  string
		state func() dynamo.VehicleState
		want  float64
	}{
		{"level", enabled, 1},
		{"tilted", func() dynamo.VehicleState {
			st := enabled()
			st.Orientation = dynamo.AxisAngle(dynamo.XHat, 0.8)
			return st
		}, 0},
		{"failed", func() dynamo.VehicleState {
			st := enabled()
			st.Mode = dynamo.ModeFailed
			return st
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStability(0.5)
			m.Observe(record(tt.state(), false))
			if got := m.Value(); got != tt.want {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestAttitudeError(t *testing.T) {
	m := NewAttitudeError(vehicle.DefaultGravity)

	st := enabled()
	st.Orientation = dynamo.AxisAngle(dynamo.ZHat, 0.3)
	m.Observe(record(st, false))
	if got := m.Value(); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("expected 0.3 rad heading error, got %f", got)
	}

	st.Orientation = dynamo.AxisAngle(dynamo.XHat, 1.2)
	st.Mode = dynamo.ModeDisabled
	m.Observe(record(st, false))
	if got := m.Value(); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("disabled tick should be ignored, got %f", got)
	}
}

func TestThrustIntegral(t *testing.T) {
	ctrl, err := control.New(vehicle.Default(), control.DefaultTuning())
	if err != nil {
		t.Fatal(err)
	}
	m := NewThrustIntegral(ctrl)

	cmd := dynamo.Command{Mode: dynamo.ModeEnabled}
	s := dynamo.Sensors{Orientation: dynamo.Identity, LocalAccel: dynamo.Vec3{Z: -1}}
	for i := 0; i < 5; i++ {
		ctrl.Update(s, cmd)
		m.Observe(dynamo.Record{Tick: i})
	}
	if m.Value() <= 0 {
		t.Error("expected a non-zero thrust integral")
	}
	if got, want := m.Value(), math.Abs(ctrl.ThrustIntegral()); got != want {
		t.Errorf("expected peak %f, got %f", want, got)
	}
}

func TestStandard(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range Standard(vehicle.Default()) {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %q", m.Name())
		}
		seen[m.Name()] = true
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 metrics, got %d", len(seen))
	}
}
