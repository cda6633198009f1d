package teleop

import (
	"fmt"
	"io"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/protocol"
)

// Remote is the operator side of a teleop link.
type Remote struct {
	enc *protocol.Encoder
	dec *protocol.Decoder
}

func NewRemote(rw io.ReadWriter) *Remote {
	return &Remote{
		enc: protocol.NewEncoder(rw, protocol.TeleopDeviceSchema),
		dec: protocol.NewDecoder(rw, protocol.TeleopRemoteSchema),
	}
}

func (r *Remote) Start() error {
	return r.enc.WriteFrame(protocol.IDStart, nil)
}

// Update sends cmd and waits for the telemetry reply. The mode is not sent.
func (r *Remote) Update(cmd dynamo.Command) (protocol.Telemetry, error) {
	if err := r.enc.WriteFrame(protocol.IDTeleop, protocol.EncodeCommand(cmd)); err != nil {
		return protocol.Telemetry{}, fmt.Errorf("teleop: send: %w", err)
	}
	fr, err := r.dec.Next()
	if err != nil {
		return protocol.Telemetry{}, fmt.Errorf("teleop: receive: %w", err)
	}
	return protocol.DecodeTelemetry(fr.Payload)
}
