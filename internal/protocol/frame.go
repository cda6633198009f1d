package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const StartByte byte = 0xFF

// Message ids.
const (
	IDUpdate byte = 0x00 // HIL update exchange
	IDStart  byte = 0x00 // teleop start
	IDTeleop byte = 0x01 // teleop command / telemetry
)

// Payload sizes [bytes].
const (
	UpdateSize    = 40
	ForcesSize    = 16
	StartSize     = 0
	CommandSize   = 16
	TelemetrySize = 56
)

var (
	ErrUnknownID     = errors.New("protocol: unknown message id")
	ErrPayloadLength = errors.New("protocol: payload length does not match id")
	ErrShortPayload  = errors.New("protocol: short payload")
)

// Schema maps each message id a reader accepts to its payload length.
type Schema map[byte]int

// Schemas for each end of each link, named by the receiving side.
var (
	HostSchema         = Schema{IDUpdate: ForcesSize}
	DeviceSchema       = Schema{IDUpdate: UpdateSize}
	TeleopDeviceSchema = Schema{IDStart: StartSize, IDTeleop: CommandSize}
	TeleopRemoteSchema = Schema{IDTeleop: TelemetrySize}
)

// Frame is one decoded message.
type Frame struct {
	ID      byte
	Payload []byte
}

// Encoder writes frames whose payload lengths are checked against a
// schema for the receiving side.
type Encoder struct {
	w      io.Writer
	schema Schema
	buf    []byte
}

func NewEncoder(w io.Writer, peer Schema) *Encoder {
	return &Encoder{w: w, schema: peer}
}

// WriteFrame sends one frame in a single Write.
func (e *Encoder) WriteFrame(id byte, payload []byte) error {
	n, ok := e.schema[id]
	if !ok {
		return fmt.Errorf("%w: 0x%02x", ErrUnknownID, id)
	}
	if len(payload) != n {
		return fmt.Errorf("%w: id 0x%02x wants %d bytes, got %d", ErrPayloadLength, id, n, len(payload))
	}
	e.buf = append(e.buf[:0], StartByte, id)
	e.buf = append(e.buf, payload...)
	_, err := e.w.Write(e.buf)
	return err
}

// Decoder reads frames from a byte stream. Bytes outside a frame and frames
// with ids missing from the schema are skipped; the decoder resyncs on the
// next start byte.
type Decoder struct {
	r      *bufio.Reader
	schema Schema

	skipped int
}

func NewDecoder(r io.Reader, schema Schema) *Decoder {
	return &Decoder{r: bufio.NewReader(r), schema: schema}
}

// Next blocks until a complete frame arrives. The returned payload is
// freshly allocated. A stream that ends inside a payload yields
// ErrShortPayload.
func (d *Decoder) Next() (Frame, error) {
	if err := d.sync(); err != nil {
		return Frame{}, err
	}
	for {
		id, err := d.r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		if id == StartByte {
			if _, ok := d.schema[id]; !ok {
				d.skipped++
				continue
			}
		}
		n, ok := d.schema[id]
		if !ok {
			d.skipped += 2
			if err := d.sync(); err != nil {
				return Frame{}, err
			}
			continue
		}

		payload := make([]byte, n)
		if _, err := io.ReadFull(d.r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, fmt.Errorf("%w: id 0x%02x", ErrShortPayload, id)
			}
			return Frame{}, err
		}
		return Frame{ID: id, Payload: payload}, nil
	}
}

// sync consumes bytes up to and including the next start byte.
func (d *Decoder) sync() error {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if b == StartByte {
			return nil
		}
		d.skipped++
	}
}

// Skipped returns how many bytes were discarded while resyncing.
func (d *Decoder) Skipped() int {
	return d.skipped
}
