package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
)

// Telemetry is the state report sent to a teleop remote.
type Telemetry struct {
	Sensors dynamo.Sensors
	Forces  dynamo.Forces
}

type writer struct {
	b []byte
}

func (w *writer) f32(vs ...float64) {
	for _, v := range vs {
		w.b = binary.LittleEndian.AppendUint32(w.b, math.Float32bits(float32(v)))
	}
}

type reader struct {
	b []byte
}

func (r *reader) f32() float64 {
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.b))
	r.b = r.b[4:]
	return float64(v)
}

func (r *reader) vec() dynamo.Vec3 {
	return dynamo.Vec3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *reader) quat() dynamo.Quat {
	return dynamo.Quat{W: r.f32(), X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *reader) forces() dynamo.Forces {
	return dynamo.Forces{r.f32(), r.f32(), r.f32(), r.f32()}
}

func checkLen(b []byte, n int, what string) error {
	if len(b) != n {
		return fmt.Errorf("%w: %s wants %d bytes, got %d", ErrPayloadLength, what, n, len(b))
	}
	return nil
}

func (w *writer) sensors(s dynamo.Sensors) {
	q, o, a := s.Orientation, s.AngularVel, s.LocalAccel
	w.f32(q.W, q.X, q.Y, q.Z)
	w.f32(o.X, o.Y, o.Z)
	w.f32(a.X, a.Y, a.Z)
}

func (r *reader) sensors() dynamo.Sensors {
	return dynamo.Sensors{Orientation: r.quat(), AngularVel: r.vec(), LocalAccel: r.vec()}
}

// EncodeUpdate packs the synthetic IMU reading sent host to device.
func EncodeUpdate(s dynamo.Sensors) []byte {
	w := writer{b: make([]byte, 0, UpdateSize)}
	w.sensors(s)
	return w.b
}

func DecodeUpdate(b []byte) (dynamo.Sensors, error) {
	if err := checkLen(b, UpdateSize, "update"); err != nil {
		return dynamo.Sensors{}, err
	}
	r := reader{b: b}
	return r.sensors(), nil
}

// EncodeForces packs propeller forces sent device to host.
func EncodeForces(f dynamo.Forces) []byte {
	w := writer{b: make([]byte, 0, ForcesSize)}
	w.f32(f[:]...)
	return w.b
}

func DecodeForces(b []byte) (dynamo.Forces, error) {
	if err := checkLen(b, ForcesSize, "forces"); err != nil {
		return dynamo.Forces{}, err
	}
	r := reader{b: b}
	return r.forces(), nil
}

// EncodeCommand packs a teleop command. The mode is not carried.
func EncodeCommand(c dynamo.Command) []byte {
	w := writer{b: make([]byte, 0, CommandSize)}
	w.f32(c.Accel.X, c.Accel.Y, c.Accel.Z, c.Heading)
	return w.b
}

// DecodeCommand unpacks a teleop command with Mode left at its zero value.
func DecodeCommand(b []byte) (dynamo.Command, error) {
	if err := checkLen(b, CommandSize, "command"); err != nil {
		return dynamo.Command{}, err
	}
	r := reader{b: b}
	return dynamo.Command{Accel: r.vec(), Heading: r.f32()}, nil
}

func EncodeTelemetry(t Telemetry) []byte {
	w := writer{b: make([]byte, 0, TelemetrySize)}
	w.sensors(t.Sensors)
	w.f32(t.Forces[:]...)
	return w.b
}

func DecodeTelemetry(b []byte) (Telemetry, error) {
	if err := checkLen(b, TelemetrySize, "telemetry"); err != nil {
		return Telemetry{}, err
	}
	r := reader{b: b}
	return Telemetry{Sensors: r.sensors(), Forces: r.forces()}, nil
}
