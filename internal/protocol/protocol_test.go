package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/quadsim/internal/dynamo"
)

func f32(v float64) float64 { return float64(float32(v)) }

func TestUpdate_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		in := dynamo.Sensors{
			Orientation: dynamo.AxisAngle(dynamo.Vec3{X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()}, r.Float64()*3),
			AngularVel:  dynamo.Vec3{X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()},
			LocalAccel:  dynamo.Vec3{X: r.NormFloat64() * 10, Y: r.NormFloat64() * 10, Z: r.NormFloat64() * 10},
		}
		b := EncodeUpdate(in)
		require.Len(t, b, UpdateSize)

		out, err := DecodeUpdate(b)
		require.NoError(t, err)
		assert.Equal(t, dynamo.Quat{W: f32(in.Orientation.W), X: f32(in.Orientation.X), Y: f32(in.Orientation.Y), Z: f32(in.Orientation.Z)}, out.Orientation)
		assert.Equal(t, dynamo.Vec3{X: f32(in.AngularVel.X), Y: f32(in.AngularVel.Y), Z: f32(in.AngularVel.Z)}, out.AngularVel)
		assert.Equal(t, dynamo.Vec3{X: f32(in.LocalAccel.X), Y: f32(in.LocalAccel.Y), Z: f32(in.LocalAccel.Z)}, out.LocalAccel)
	}
}

func TestUpdate_Layout(t *testing.T) {
	in := dynamo.Sensors{
		Orientation: dynamo.Quat{W: 1, X: 2, Y: 3, Z: 4},
		AngularVel:  dynamo.Vec3{X: 5, Y: 6, Z: 7},
		LocalAccel:  dynamo.Vec3{X: 8, Y: 9, Z: 10},
	}
	b := EncodeUpdate(in)
	for i := 0; i < 10; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		assert.Equal(t, float32(i+1), got, "field %d", i)
	}
	// 1.0f little-endian
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3F}, b[:4])
}

func TestForces_RoundTrip(t *testing.T) {
	in := dynamo.Forces{0.1, 1.25, 2.46, 0}
	b := EncodeForces(in)
	require.Len(t, b, ForcesSize)
	assert.Equal(t, []byte{0x00, 0x00, 0xA0, 0x3F}, b[4:8])

	out, err := DecodeForces(b)
	require.NoError(t, err)
	for i := range in {
		assert.Equal(t, f32(in[i]), out[i])
	}
}

func TestTeleop_RoundTrip(t *testing.T) {
	cmd := dynamo.Command{Accel: dynamo.Vec3{X: 1, Y: -2, Z: 0.5}, Heading: 1.5, Mode: dynamo.ModeEnabled}
	b := EncodeCommand(cmd)
	require.Len(t, b, CommandSize)
	got, err := DecodeCommand(b)
	require.NoError(t, err)
	assert.Equal(t, dynamo.Command{Accel: cmd.Accel, Heading: cmd.Heading}, got)

	tel := Telemetry{
		Sensors: dynamo.Sensors{Orientation: dynamo.Identity, AngularVel: dynamo.Vec3{Z: 0.25}, LocalAccel: dynamo.Vec3{Z: -1}},
		Forces:  dynamo.Forces{1, 1.5, 2, 0.5},
	}
	b = EncodeTelemetry(tel)
	require.Len(t, b, TelemetrySize)
	gotTel, err := DecodeTelemetry(b)
	require.NoError(t, err)
	assert.Equal(t, tel, gotTel)
}

func TestDecode_WrongLength(t *testing.T) {
	_, err := DecodeUpdate(make([]byte, 44))
	assert.ErrorIs(t, err, ErrPayloadLength)
	_, err = DecodeForces(nil)
	assert.ErrorIs(t, err, ErrPayloadLength)
	_, err = DecodeCommand(make([]byte, 15))
	assert.ErrorIs(t, err, ErrPayloadLength)
	_, err = DecodeTelemetry(make([]byte, 57))
	assert.ErrorIs(t, err, ErrPayloadLength)
}

func TestEncoder_WriteFrame(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, HostSchema)

	payload := EncodeForces(dynamo.Forces{1, 2, 3, 4})
	require.NoError(t, enc.WriteFrame(IDUpdate, payload))
	assert.Equal(t, append([]byte{StartByte, IDUpdate}, payload...), buf.Bytes())

	assert.ErrorIs(t, enc.WriteFrame(0x07, payload), ErrUnknownID)
	assert.ErrorIs(t, enc.WriteFrame(IDUpdate, payload[:8]), ErrPayloadLength)
}

func TestDecoder_Resync(t *testing.T) {
	good := EncodeForces(dynamo.Forces{1, 2, 3, 4})

	var stream []byte
	stream = append(stream, 0x12, 0x34)                  // line noise
	stream = append(stream, StartByte, 0x09, 0xAA, 0xBB) // unknown id
	stream = append(stream, StartByte, StartByte, IDUpdate)
	stream = append(stream, good...)

	dec := NewDecoder(bytes.NewReader(stream), HostSchema)
	fr, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, IDUpdate, fr.ID)
	assert.Equal(t, good, fr.Payload)
	assert.Equal(t, 7, dec.Skipped())

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_Sequence(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, TeleopDeviceSchema)
	require.NoError(t, enc.WriteFrame(IDStart, nil))
	require.NoError(t, enc.WriteFrame(IDTeleop, EncodeCommand(dynamo.Command{Heading: 2})))

	dec := NewDecoder(&buf, TeleopDeviceSchema)
	fr, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, IDStart, fr.ID)
	assert.Empty(t, fr.Payload)

	fr, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, IDTeleop, fr.ID)
	cmd, err := DecodeCommand(fr.Payload)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cmd.Heading)
}

func TestDecoder_ShortPayload(t *testing.T) {
	stream := append([]byte{StartByte, IDUpdate}, make([]byte, 10)...)
	dec := NewDecoder(bytes.NewReader(stream), DeviceSchema)
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrShortPayload)
}
