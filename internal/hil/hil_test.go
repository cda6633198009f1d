package hil

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/protocol"
	"github.com/san-kum/quadsim/internal/vehicle"
)

var enabled = dynamo.CommandFunc(func(float64) dynamo.Command {
	return dynamo.Command{Mode: dynamo.ModeEnabled}
})

func newSupervisor(t *testing.T) *control.Supervisor {
	t.Helper()
	c, err := control.New(vehicle.Default(), control.DefaultTuning())
	require.NoError(t, err)
	return control.NewSupervisor(c)
}

func TestBridge_DeviceRoundTrip(t *testing.T) {
	host, dev := net.Pipe()
	b, err := NewBridge(host, WithTimeout(time.Second))
	require.NoError(t, err)
	defer b.Close()

	d := NewDevice(dev, newSupervisor(t), enabled, zerolog.Nop())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(context.Background()) }()

	ref := newSupervisor(t)
	st := dynamo.InitialState()
	for i := 0; i < 20; i++ {
		st.Orientation = dynamo.AxisAngle(dynamo.XHat, 0.01*float64(i))
		st.AngularVel = dynamo.Vec3{X: 0.1}

		got, err := b.Forces(context.Background(), st, dynamo.Command{})
		require.NoError(t, err)

		// the device sees the reading after float32 packing
		s, err := protocol.DecodeUpdate(protocol.EncodeUpdate(st.Sensors()))
		require.NoError(t, err)
		want := ref.Update(s, enabled.Command(0))
		for j := range want {
			assert.InDelta(t, want[j], got[j], 1e-6, "tick %d prop %d", i, j)
		}
	}
	assert.Equal(t, 20, d.Ticks())

	require.NoError(t, b.Close())
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("device did not stop after the host closed")
	}
}

func TestBridge_Timeout(t *testing.T) {
	host, dev := net.Pipe()
	defer dev.Close()
	go io.Copy(io.Discard, dev) // never answers

	b, err := NewBridge(host, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	defer b.Close()

	start := time.Now()
	_, err = b.Exchange(context.Background(), dynamo.InitialState().Sensors())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, dynamo.ErrLinkTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestBridge_ContextCanceled(t *testing.T) {
	host, dev := net.Pipe()
	defer dev.Close()
	go io.Copy(io.Discard, dev)

	b, err := NewBridge(host, WithTimeout(5*time.Second))
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = b.Exchange(ctx, dynamo.InitialState().Sensors())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBridge_Closed(t *testing.T) {
	host, dev := net.Pipe()
	defer dev.Close()

	b, err := NewBridge(host)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = b.Exchange(context.Background(), dynamo.InitialState().Sensors())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBridge_CloseStopsReader(t *testing.T) {
	host, dev := net.Pipe()
	defer dev.Close()

	b, err := NewBridge(host)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	select {
	case <-b.readDone:
	case <-time.After(time.Second):
		t.Fatal("reader still running after Close")
	}
}

func TestBridge_PeerHangsUp(t *testing.T) {
	host, dev := net.Pipe()
	b, err := NewBridge(host, WithTimeout(time.Second))
	require.NoError(t, err)
	defer b.Close()

	go func() {
		buf := make([]byte, 2+protocol.UpdateSize)
		io.ReadFull(dev, buf)
		dev.Close()
	}()

	_, err = b.Exchange(context.Background(), dynamo.InitialState().Sensors())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBridge_DropsLateResponse(t *testing.T) {
	host, dev := net.Pipe()
	defer dev.Close()

	b, err := NewBridge(host, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	defer b.Close()

	late := dynamo.Forces{1, 1, 1, 1}
	fresh := dynamo.Forces{2, 2, 2, 2}
	go func() {
		enc := protocol.NewEncoder(dev, protocol.HostSchema)
		dec := protocol.NewDecoder(dev, protocol.DeviceSchema)

		if _, err := dec.Next(); err != nil {
			return
		}
		time.Sleep(60 * time.Millisecond)
		enc.WriteFrame(protocol.IDUpdate, protocol.EncodeForces(late))

		if _, err := dec.Next(); err != nil {
			return
		}
		enc.WriteFrame(protocol.IDUpdate, protocol.EncodeForces(fresh))
	}()

	_, err = b.Exchange(context.Background(), dynamo.Sensors{})
	require.True(t, errors.Is(err, ErrTimeout), "first exchange: %v", err)

	time.Sleep(150 * time.Millisecond)
	got, err := b.Exchange(context.Background(), dynamo.Sensors{})
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestBridge_LateResponseBackToBack(t *testing.T) {
	host, dev := net.Pipe()
	defer dev.Close()

	b, err := NewBridge(host, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	defer b.Close()

	late := dynamo.Forces{1, 1, 1, 1}
	fresh := dynamo.Forces{2, 2, 2, 2}
	go func() {
		enc := protocol.NewEncoder(dev, protocol.HostSchema)
		dec := protocol.NewDecoder(dev, protocol.DeviceSchema)

		if _, err := dec.Next(); err != nil {
			return
		}
		time.Sleep(30 * time.Millisecond)
		enc.WriteFrame(protocol.IDUpdate, protocol.EncodeForces(late))

		for {
			if _, err := dec.Next(); err != nil {
				return
			}
			enc.WriteFrame(protocol.IDUpdate, protocol.EncodeForces(fresh))
		}
	}()

	_, err = b.Exchange(context.Background(), dynamo.Sensors{})
	require.ErrorIs(t, err, ErrTimeout)

	// the runner asks again straight after a timeout
	for i := 0; i < 3; i++ {
		got, err := b.Exchange(context.Background(), dynamo.Sensors{})
		require.NoError(t, err, "exchange %d", i)
		assert.Equal(t, fresh, got, "exchange %d", i)
	}
}

func TestDevice_StopsOnCancel(t *testing.T) {
	_, dev := net.Pipe()
	d := NewDevice(dev, newSupervisor(t), enabled, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("device ignored cancellation")
	}
}
