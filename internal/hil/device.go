package hil

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/protocol"
)

// Device is the flight-controller end of the HIL link, run in software. It
// answers every update with the forces its Supervisor produces, so a host
// Bridge can be exercised without hardware.
type Device struct {
	rw     io.ReadWriter
	enc    *protocol.Encoder
	dec    *protocol.Decoder
	sup    *control.Supervisor
	src    dynamo.CommandSource
	period float64
	log    zerolog.Logger

	ticks int
}

func NewDevice(rw io.ReadWriter, sup *control.Supervisor, src dynamo.CommandSource, log zerolog.Logger) *Device {
	return &Device{
		rw:     rw,
		enc:    protocol.NewEncoder(rw, protocol.HostSchema),
		dec:    protocol.NewDecoder(rw, protocol.DeviceSchema),
		sup:    sup,
		src:    src,
		period: sup.Controller().Params().Period(),
		log:    log,
	}
}

// Run serves updates until the stream ends or ctx is done. Cancelling ctx
// closes rw when it is closable, which unblocks a pending read.
func (d *Device) Run(ctx context.Context) error {
	if c, ok := d.rw.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
	}

	d.log.Info().Msg("device serving")
	for {
		fr, err := d.dec.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				d.log.Info().Int("ticks", d.ticks).Msg("link closed")
				return nil
			}
			return fmt.Errorf("hil: device read: %w", err)
		}

		s, err := protocol.DecodeUpdate(fr.Payload)
		if err != nil {
			return fmt.Errorf("hil: device: %w", err)
		}
		if err := d.enc.WriteFrame(protocol.IDUpdate, protocol.EncodeForces(d.Step(s))); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("hil: device write: %w", err)
		}
	}
}

// Step runs the supervisor for one received reading.
func (d *Device) Step(s dynamo.Sensors) dynamo.Forces {
	cmd := d.src.Command(float64(d.ticks) * d.period)
	prev := d.sup.Mode()
	f := d.sup.Update(s, cmd)
	if m := d.sup.Mode(); m != prev {
		d.log.Info().Int("tick", d.ticks).Stringer("from", prev).Stringer("to", m).Msg("mode change")
	}
	d.ticks++
	return f
}

func (d *Device) Ticks() int { return d.ticks }
