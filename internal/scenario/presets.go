package scenario

import (
	"math"
	"sort"

	"github.com/san-kum/quadsim/internal/dynamo"
)

var enabled = dynamo.ModeEnabled

var Presets = map[string]*Scenario{
	"hover": {
		Name: "hover", Description: "level hover from rest", Duration: 10,
		Segments: []Segment{{T: 0, Mode: enabled}},
	},
	"yaw_step": {
		Name: "yaw_step", Description: "hover, then a quarter-turn heading step", Duration: 10,
		Segments: []Segment{
			{T: 0, Mode: enabled},
			{T: 2, Heading: math.Pi / 2, Mode: enabled},
		},
	},
	"climb": {
		Name: "climb", Description: "climb, coast, descend", Duration: 8,
		Segments: []Segment{
			{T: 0, Mode: enabled},
			{T: 1, Accel: [3]float64{0, 0, 2}, Mode: enabled},
			{T: 3, Mode: enabled},
			{T: 4, Accel: [3]float64{0, 0, -2}, Mode: enabled},
			{T: 6, Mode: enabled},
		},
	},
	"translate": {
		Name: "translate", Description: "lateral acceleration pulses along x then y", Duration: 8,
		Segments: []Segment{
			{T: 0, Mode: enabled},
			{T: 1, Accel: [3]float64{2, 0, 0}, Mode: enabled},
			{T: 2, Accel: [3]float64{-2, 0, 0}, Mode: enabled},
			{T: 3, Mode: enabled},
			{T: 4, Accel: [3]float64{0, 2, 0}, Mode: enabled},
			{T: 5, Accel: [3]float64{0, -2, 0}, Mode: enabled},
			{T: 6, Mode: enabled},
		},
	},
	"recover": {
		Name: "recover", Description: "level out from an 80 degree roll", Duration: 5,
		Initial:  Initial{Roll: 1.4},
		Segments: []Segment{{T: 0, Mode: enabled}},
	},
	"flip": {
		Name: "flip", Description: "start inverted past the safety limit", Duration: 2,
		Initial:  Initial{Roll: 2.0},
		Segments: []Segment{{T: 0, Mode: enabled}},
	},
	"idle": {
		Name: "idle", Description: "disabled: motors off, free fall", Duration: 2,
		Segments: []Segment{{T: 0, Mode: dynamo.ModeDisabled}},
	},
}

// Get returns a copy of the named preset, or nil.
func Get(name string) *Scenario {
	s, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *s
	c.Segments = append([]Segment(nil), s.Segments...)
	return &c
}

func List() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
