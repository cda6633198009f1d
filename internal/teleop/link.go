// Package teleop carries operator commands from a remote to the flight
// controller and state reports back, over the same framed protocol as the
// HIL link.
//
// The remote sends a start message once, then one command per update; the
// flight controller answers every command with a telemetry frame.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/protocol"
)

// Link is the flight-controller side. It is a dynamo.CommandSource: until
// the remote sends start, commands are Disabled; after that they are
// Enabled with the last acceleration and heading received.
type Link struct {
	rw  io.ReadWriter
	enc *protocol.Encoder
	dec *protocol.Decoder
	log zerolog.Logger

	mu        sync.Mutex
	cmd       dynamo.Command
	tel       protocol.Telemetry
	started   chan struct{}
	startOnce sync.Once
	updates   int
}

func NewLink(rw io.ReadWriter, log zerolog.Logger) *Link {
	return &Link{
		rw:      rw,
		enc:     protocol.NewEncoder(rw, protocol.TeleopRemoteSchema),
		dec:     protocol.NewDecoder(rw, protocol.TeleopDeviceSchema),
		log:     log,
		tel:     protocol.Telemetry{Sensors: dynamo.InitialState().Sensors()},
		started: make(chan struct{}),
	}
}

// Serve handles remote messages until the stream ends or ctx is done.
func (l *Link) Serve(ctx context.Context) error {
	if c, ok := l.rw.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
	}
	for {
		fr, err := l.dec.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("teleop: read: %w", err)
		}

		switch fr.ID {
		case protocol.IDStart:
			l.startOnce.Do(func() {
				close(l.started)
				l.log.Info().Msg("remote start")
			})

		case protocol.IDTeleop:
			cmd, err := protocol.DecodeCommand(fr.Payload)
			if err != nil {
				return fmt.Errorf("teleop: %w", err)
			}
			l.mu.Lock()
			l.cmd = cmd
			l.updates++
			tel := l.tel
			l.mu.Unlock()

			if err := l.enc.WriteFrame(protocol.IDTeleop, protocol.EncodeTelemetry(tel)); err != nil {
				return fmt.Errorf("teleop: write: %w", err)
			}
		}
	}
}

// WaitStart blocks until the remote sends start.
func (l *Link) WaitStart(ctx context.Context) error {
	select {
	case <-l.started:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Link) Started() bool {
	select {
	case <-l.started:
		return true
	default:
		return false
	}
}

func (l *Link) Command(float64) dynamo.Command {
	l.mu.Lock()
	cmd := l.cmd
	l.mu.Unlock()
	if l.Started() {
		cmd.Mode = dynamo.ModeEnabled
	}
	return cmd
}

// OnTick publishes the latest state for the next telemetry reply.
func (l *Link) OnTick(rec dynamo.Record) {
	l.mu.Lock()
	l.tel = protocol.Telemetry{Sensors: rec.State.Sensors(), Forces: rec.State.Forces}
	l.mu.Unlock()
}

func (l *Link) Updates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}
