package hil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/protocol"
)

const DefaultTimeout = 100 * time.Millisecond

var (
	// ErrTimeout is returned when the device does not answer in time. It
	// matches dynamo.ErrLinkTimeout.
	ErrTimeout = fmt.Errorf("hil: no response from device: %w", dynamo.ErrLinkTimeout)

	ErrClosed = errors.New("hil: bridge closed")
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithTimeout bounds each exchange.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(b *Bridge) {
		b.log = log
	}
}

// Bridge is the host end of the HIL link. Each Exchange sends one synthetic
// IMU update and waits, bounded by the timeout and the context, for the
// device's propeller forces.
type Bridge struct {
	rw      io.ReadWriteCloser
	enc     *protocol.Encoder
	dec     *protocol.Decoder
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.Mutex // one exchange at a time
	frames chan protocol.Frame
	owed   int // answers still due to exchanges that gave up

	done      chan struct{}
	readDone  chan struct{}
	readErr   error
	closeOnce sync.Once

	exchanges metric.Int64Counter
	timeouts  metric.Int64Counter
	stale     metric.Int64Counter
	latency   metric.Float64Histogram
}

// NewBridge starts reading device frames from rw. The Bridge owns rw: Close
// closes it, which is what stops the reader. Uses the global OTel meter for
// metrics (no-op if not configured).
func NewBridge(rw io.ReadWriteCloser, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		rw:       rw,
		enc:      protocol.NewEncoder(rw, protocol.DeviceSchema),
		dec:      protocol.NewDecoder(rw, protocol.HostSchema),
		timeout:  DefaultTimeout,
		log:      zerolog.Nop(),
		frames:   make(chan protocol.Frame, 4),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	m := meter()
	var err error

	b.exchanges, err = m.Int64Counter(
		"hil.exchanges",
		metric.WithDescription("Completed update exchanges"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exchange counter: %w", err)
	}

	b.timeouts, err = m.Int64Counter(
		"hil.timeouts",
		metric.WithDescription("Exchanges that got no response in time"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating timeout counter: %w", err)
	}

	b.stale, err = m.Int64Counter(
		"hil.frames.stale",
		metric.WithDescription("Late responses discarded before an exchange"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stale counter: %w", err)
	}

	b.latency, err = m.Float64Histogram(
		"hil.exchange.latency",
		metric.WithDescription("Round trip time of an update exchange"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}

	go b.readLoop()
	return b, nil
}

func (b *Bridge) readLoop() {
	defer close(b.readDone)
	for {
		fr, err := b.dec.Next()
		if err != nil {
			b.readErr = err
			return
		}
		select {
		case b.frames <- fr:
		case <-b.done:
			return
		}
	}
}

// Exchange sends s and returns the forces the device answers with. On
// timeout it returns an error matching ErrTimeout; the caller decides the
// fallback.
func (b *Bridge) Exchange(ctx context.Context, s dynamo.Sensors) (dynamo.Forces, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return dynamo.Forces{}, ErrClosed
	default:
	}

	// drop answers already queued for exchanges that gave up
	for drained := false; !drained; {
		select {
		case <-b.frames:
			b.discard(ctx)
		default:
			drained = true
		}
	}

	start := time.Now()
	if err := b.enc.WriteFrame(protocol.IDUpdate, protocol.EncodeUpdate(s)); err != nil {
		return dynamo.Forces{}, fmt.Errorf("hil: send update: %w", err)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	for {
		select {
		case fr := <-b.frames:
			// answers arrive in request order, so the first owed ones
			// belong to exchanges that already gave up
			if b.owed > 0 {
				b.discard(ctx)
				continue
			}
			f, err := protocol.DecodeForces(fr.Payload)
			if err != nil {
				return dynamo.Forces{}, fmt.Errorf("hil: %w", err)
			}
			rtt := time.Since(start)
			b.exchanges.Add(ctx, 1)
			b.latency.Record(ctx, rtt.Seconds())
			b.log.Trace().Dur("rtt", rtt).Floats64("forces", f[:]).Msg("exchange")
			return f, nil

		case <-b.readDone:
			if b.readErr != nil && !errors.Is(b.readErr, io.EOF) {
				return dynamo.Forces{}, fmt.Errorf("hil: read: %w", b.readErr)
			}
			return dynamo.Forces{}, ErrClosed

		case <-ctx.Done():
			b.owed++
			return dynamo.Forces{}, ctx.Err()

		case <-timer.C:
			b.owed++
			b.timeouts.Add(ctx, 1)
			b.log.Warn().Dur("timeout", b.timeout).Int("owed", b.owed).Msg("device did not answer")
			return dynamo.Forces{}, ErrTimeout
		}
	}
}

// discard drops one stale answer.
func (b *Bridge) discard(ctx context.Context) {
	if b.owed > 0 {
		b.owed--
	}
	b.stale.Add(ctx, 1)
}

// Forces runs one exchange for the given state. The command is ignored:
// the device reads its own command source.
func (b *Bridge) Forces(ctx context.Context, st dynamo.VehicleState, _ dynamo.Command) (dynamo.Forces, error) {
	return b.Exchange(ctx, st.Sensors())
}

func (b *Bridge) Timeout() time.Duration { return b.timeout }

// Close closes the underlying stream, which ends the reader.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.rw.Close()
	})
	return err
}
