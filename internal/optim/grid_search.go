// Package optim searches controller tunings by flying every combination in
// a parameter grid.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/sim"
)

var (
	ErrUnknownParam = errors.New("optim: unknown tuning parameter")
	ErrNoTrials     = errors.New("optim: no trial completed")
	ErrLostVehicle  = errors.New("optim: vehicle failed")
)

// Tunables maps parameter names to the Tuning field they set.
var Tunables = map[string]func(*control.Tuning, float64){
	"pole_qxy":  func(t *control.Tuning, v float64) { t.PoleQ[0], t.PoleQ[1] = v, v },
	"pole_qx":   func(t *control.Tuning, v float64) { t.PoleQ[0] = v },
	"pole_qy":   func(t *control.Tuning, v float64) { t.PoleQ[1] = v },
	"pole_qz":   func(t *control.Tuning, v float64) { t.PoleQ[2] = v },
	"pole_az":   func(t *control.Tuning, v float64) { t.PoleAZ = v },
	"ratio_min": func(t *control.Tuning, v float64) { t.RatioMin = v },
	"ratio_max": func(t *control.Tuning, v float64) { t.RatioMax = v },
}

// Apply sets the named parameters on t.
func Apply(t *control.Tuning, params map[string]float64) error {
	for name, v := range params {
		set, ok := Tunables[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParam, name)
		}
		set(t, v)
	}
	return nil
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, name := range params {
		if _, ok := Tunables[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParam, name)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("optim: no values for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// ParseGrid reads "name=v1,v2,..." specs.
func ParseGrid(specs []string) (*GridSearch, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("optim: grid spec %q is not name=v1,v2", spec)
		}
		var vals []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("optim: %s: %w", name, err)
			}
			vals = append(vals, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, vals)
	}
	return NewGridSearch(names, ranges)
}

// Points enumerates every combination in the grid.
func (g *GridSearch) Points() []map[string]float64 {
	var points []map[string]float64
	g.collect(0, make(map[string]float64), &points)
	return points
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		p := make(map[string]float64, len(current))
		for k, v := range current {
			p[k] = v
		}
		*out = append(*out, p)
		return
	}
	for _, val := range g.ranges[depth] {
		current[g.paramNames[depth]] = val
		g.collect(depth+1, current, out)
	}
}

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// BuildFunc assembles the flight for one grid point.
type BuildFunc func(params map[string]float64) (*sim.Simulator, error)

// Search flies every grid point concurrently and returns the trials sorted
// best (lowest metric) first. Points whose flight could not be built, did
// not finish or ended with the vehicle failed are kept with their error and
// sorted last.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, cfg sim.Config, metricName string) ([]Trial, error) {
	points := g.Points()
	batch := sim.NewBatch()
	for i, p := range points {
		batch.Add(sim.Job{
			Name:   fmt.Sprintf("trial %d", i),
			Build:  func() (*sim.Simulator, error) { return build(p) },
			Config: cfg,
		})
	}

	results, _ := batch.Run(ctx)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	trials := make([]Trial, len(points))
	completed := 0
	for i, p := range points {
		trials[i] = Trial{Params: p, Value: math.Inf(1)}
		r := results[i]
		if r == nil {
			trials[i].Err = errors.New("flight did not complete")
			continue
		}
		if r.Final().Mode == dynamo.ModeFailed {
			trials[i].Err = ErrLostVehicle
			continue
		}
		v, ok := r.Metrics[metricName]
		if !ok {
			trials[i].Err = fmt.Errorf("optim: flight reported no metric %q", metricName)
			continue
		}
		trials[i].Value = v
		completed++
	}
	if completed == 0 {
		return trials, ErrNoTrials
	}

	sort.SliceStable(trials, func(i, j int) bool {
		return trials[i].Value < trials[j].Value
	})
	return trials, nil
}
