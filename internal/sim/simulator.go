package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/plant"
)

// Simulator closes the loop: command source, flight controller, plant.
// Each tick is computed fully and then published, so Snapshot may be read
// from other goroutines while Run is in progress.
type Simulator struct {
	plant     *plant.Quadrotor
	fc        FlightController
	src       dynamo.CommandSource
	metrics   []Metric
	observers []Observer
	log       zerolog.Logger
	inst      instruments

	last atomic.Pointer[dynamo.Record]
}

func New(p *plant.Quadrotor, fc FlightController, src dynamo.CommandSource) *Simulator {
	return &Simulator{
		plant:     p,
		fc:        fc,
		src:       src,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       zerolog.Nop(),
		inst:      newInstruments(),
	}
}

func (s *Simulator) AddMetric(m Metric)           { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)       { s.observers = append(s.observers, o) }
func (s *Simulator) SetLogger(log zerolog.Logger) { s.log = log }

// Snapshot returns the most recent tick, or false before the first one.
func (s *Simulator) Snapshot() (dynamo.Record, bool) {
	r := s.last.Load()
	if r == nil {
		return dynamo.Record{}, false
	}
	return *r, true
}

// Run flies for cfg.Duration from the plant's current state. A flight
// controller timeout is not fatal: that tick applies zero force and the
// vehicle fails.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	dt := s.plant.Dt()
	steps := int(math.Round(cfg.Duration / dt))
	result := &Result{
		Records: make([]dynamo.Record, 0, steps),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	var pace <-chan time.Time
	if cfg.RealTime {
		ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
		pace = ticker.C
	}

	st := s.plant.State()
	s.log.Info().Int("ticks", steps).Float64("dt", dt).Bool("realtime", cfg.RealTime).Msg("flight start")

	for i := 0; i < steps; i++ {
		t := float64(i) * dt
		select {
		case <-ctx.Done():
			return result, s.canceled(ctx, i, t)
		default:
		}

		cmd := s.src.Command(t)
		forces, err := s.fc.Forces(ctx, st, cmd)
		mode := cmd.Mode
		if mo, ok := s.fc.(Moder); ok {
			mode = mo.Mode()
		}
		switch {
		case err == nil:
		case errors.Is(err, dynamo.ErrLinkTimeout):
			result.Timeouts++
			s.log.Warn().Int("tick", i).Err(err).Msg("flight controller timeout, cutting motors")
			forces = dynamo.Forces{}
			mode = dynamo.ModeFailed
		case ctx.Err() != nil:
			return result, s.canceled(ctx, i, t)
		default:
			return result, &dynamo.TickError{Tick: i, Time: t, Wrapped: err}
		}

		prevMode := st.Mode
		st = s.plant.Step(forces, mode)
		if !st.IsValid() {
			return result, &dynamo.TickError{Tick: i, Time: t, Wrapped: dynamo.ErrInvalidState}
		}

		rec := dynamo.Record{Tick: i, Time: t, State: st, Command: cmd, Saturated: saturated(s.fc)}
		s.publish(ctx, rec)
		result.Records = append(result.Records, rec)

		if st.Mode != prevMode {
			s.log.Info().Int("tick", i).Stringer("from", prevMode).Stringer("to", st.Mode).Msg("mode change")
			if st.Mode == dynamo.ModeFailed {
				s.inst.failures.Add(ctx, 1)
			}
		}
		if cfg.StopOnFail && st.Mode == dynamo.ModeFailed {
			break
		}

		if pace != nil {
			select {
			case <-ctx.Done():
				return result, s.canceled(ctx, i+1, t+dt)
			case <-pace:
			}
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	s.log.Info().Int("ticks", len(result.Records)).Stringer("mode", st.Mode).Msg("flight end")
	return result, nil
}

func (s *Simulator) publish(ctx context.Context, rec dynamo.Record) {
	s.last.Store(&rec)
	for _, m := range s.metrics {
		m.Observe(rec)
	}
	for _, obs := range s.observers {
		obs.OnTick(rec)
	}
	attrs := metric.WithAttributes(attribute.String("mode", rec.State.Mode.String()))
	s.inst.ticks.Add(ctx, 1, attrs)
	if rec.Saturated {
		s.inst.saturated.Add(ctx, 1)
	}
}

func (s *Simulator) canceled(ctx context.Context, tick int, t float64) error {
	return &dynamo.TickError{
		Tick:    tick,
		Time:    t,
		Wrapped: fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err()),
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if s.plant == nil || s.fc == nil || s.src == nil {
		return fmt.Errorf("simulator needs a plant, a flight controller and a command source")
	}
	return nil
}

func saturated(fc FlightController) bool {
	if st, ok := fc.(Saturator); ok {
		return st.Saturated()
	}
	return false
}
