// Package scenario provides scripted command sources: piecewise-constant
// commands keyed by flight time, plus an initial attitude disturbance.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/quadsim/internal/dynamo"
)

var ErrEmpty = errors.New("scenario: no segments")

// Segment holds a command from time T until the next segment starts.
type Segment struct {
	T       float64     `yaml:"t"`
	Accel   [3]float64  `yaml:"accel"`
	Heading float64     `yaml:"heading"`
	Mode    dynamo.Mode `yaml:"mode"`
}

// Initial perturbs the starting state.
type Initial struct {
	Roll  float64    `yaml:"roll"`
	Pitch float64    `yaml:"pitch"`
	Yaw   float64    `yaml:"yaw"`
	Rate  [3]float64 `yaml:"rate"`
}

type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Duration    float64   `yaml:"duration"`
	Initial     Initial   `yaml:"initial"`
	Segments    []Segment `yaml:"segments"`
}

// Command returns the active segment's command. Before the first segment
// the vehicle is commanded Disabled.
func (s *Scenario) Command(t float64) dynamo.Command {
	i := sort.Search(len(s.Segments), func(i int) bool { return s.Segments[i].T > t }) - 1
	if i < 0 {
		return dynamo.Command{Mode: dynamo.ModeDisabled}
	}
	seg := s.Segments[i]
	return dynamo.Command{
		Accel:   dynamo.Vec3From(seg.Accel),
		Heading: seg.Heading,
		Mode:    seg.Mode,
	}
}

// InitialState returns the starting vehicle state.
func (s *Scenario) InitialState() dynamo.VehicleState {
	in := s.Initial
	q := dynamo.AxisAngle(dynamo.ZHat, in.Yaw).
		Mul(dynamo.AxisAngle(dynamo.YHat, in.Pitch)).
		Mul(dynamo.AxisAngle(dynamo.XHat, in.Roll))
	st := dynamo.InitialState()
	st.Orientation = q.Canonical()
	st.AngularVel = dynamo.Vec3From(in.Rate)
	return st
}

func (s *Scenario) Validate() error {
	if len(s.Segments) == 0 {
		return fmt.Errorf("%w: %q", ErrEmpty, s.Name)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("scenario %q: duration must be positive, got %g", s.Name, s.Duration)
	}
	for i := 1; i < len(s.Segments); i++ {
		if s.Segments[i].T < s.Segments[i-1].T {
			return fmt.Errorf("scenario %q: segment %d starts before segment %d", s.Name, i, i-1)
		}
	}
	return nil
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Scenario{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func Save(path string, s *Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
