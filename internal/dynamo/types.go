package dynamo

import (
	"fmt"
	"math"
	"strings"
)

// NumProps is the propeller count of the X quad.
const NumProps = 4

// Forces holds propeller forces [N] in allocation order:
// 0 = (+x,+y), 1 = (+x,-y), 2 = (-x,+y), 3 = (-x,-y).
type Forces [NumProps]float64

func (f Forces) Sum() float64 {
	return f[0] + f[1] + f[2] + f[3]
}

func (f Forces) Scale(s float64) Forces {
	return Forces{f[0] * s, f[1] * s, f[2] * s, f[3] * s}
}

func (f Forces) Add(o Forces) Forces {
	return Forces{f[0] + o[0], f[1] + o[1], f[2] + o[2], f[3] + o[3]}
}

func (f Forces) IsFinite() bool {
	for _, v := range f {
		if !finite(v) {
			return false
		}
	}
	return true
}

// Mode is the vehicle operating mode.
type Mode uint8

const (
	ModeDisabled Mode = iota
	ModeEnabled
	ModeFailed
)

func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeEnabled:
		return "enabled"
	case ModeFailed:
		return "failed"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode accepts the names produced by String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "":
		return ModeDisabled, nil
	case "enabled":
		return ModeEnabled, nil
	case "failed":
		return ModeFailed, nil
	}
	return ModeDisabled, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Command is one tick of operator input. Accel is in the world frame and
// excludes gravity.
type Command struct {
	Accel   Vec3
	Heading float64
	Mode    Mode
}

// Sensors is what the flight controller reads each tick.
type Sensors struct {
	Orientation Quat
	AngularVel  Vec3 // body frame [rad/s]
	LocalAccel  Vec3 // body frame, gravity removed [m/s^2]
}

// VehicleState is the plant output for one tick.
type VehicleState struct {
	Orientation Quat
	AngularVel  Vec3 // body frame [rad/s]
	Accel       Vec3 // world frame [m/s^2]
	Forces      Forces
	Mode        Mode
}

// InitialState is level, at rest and disabled.
func InitialState() VehicleState {
	return VehicleState{Orientation: Identity}
}

// LocalAccel returns the linear acceleration in the body frame.
func (s VehicleState) LocalAccel() Vec3 {
	return s.Orientation.Inv().Rotate(s.Accel)
}

// Sensors returns the synthetic IMU reading for this state.
func (s VehicleState) Sensors() Sensors {
	return Sensors{
		Orientation: s.Orientation,
		AngularVel:  s.AngularVel,
		LocalAccel:  s.LocalAccel(),
	}
}

func (s VehicleState) IsValid() bool {
	return s.Orientation.IsFinite() && s.AngularVel.IsFinite() &&
		s.Accel.IsFinite() && s.Forces.IsFinite()
}

// Flipped reports whether the body z-axis points below the horizon.
func Flipped(q Quat) bool {
	return q.Rotate(ZHat).Z < 0
}

// Record is one logged tick.
type Record struct {
	Tick      int
	Time      float64
	State     VehicleState
	Command   Command
	Saturated bool
}

// Tilt returns the angle between the body z-axis and world z [rad].
func (s VehicleState) Tilt() float64 {
	z := s.Orientation.Rotate(ZHat).Z
	return math.Acos(math.Max(-1, math.Min(1, z)))
}

// CommandSource supplies the operator command for flight time t [s].
type CommandSource interface {
	Command(t float64) Command
}

// CommandFunc adapts a function to CommandSource.
type CommandFunc func(t float64) Command

func (f CommandFunc) Command(t float64) Command { return f(t) }
