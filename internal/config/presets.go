package config

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrUnknownPreset = errors.New("config: unknown preset")

// Presets are named variations applied on top of DefaultConfig.
var Presets = map[string]func(*Config){
	"default": func(*Config) {},
	"bench": func(c *Config) {
		c.Run.RealTime = false
		c.Log.Pretty = false
	},
	"realtime": func(c *Config) {
		c.Run.RealTime = true
	},
	"hil": func(c *Config) {
		c.HIL.Port = "/dev/ttyUSB0"
		c.HIL.Timeout = 250 * time.Millisecond
		c.Run.RealTime = true
		c.Run.StopOnFail = true
	},
	"heavy": func(c *Config) {
		c.Vehicle.Mass = 0.7
	},
	"gentle": func(c *Config) {
		c.Control.PoleQ = [3]float64{-3, -3, -2}
		c.Control.PoleAZ = -5
	},
	"aggressive": func(c *Config) {
		c.Control.PoleQ = [3]float64{-8, -8, -5}
		c.Control.PoleAZ = -12
	},
}

func GetPreset(name string) (*Config, error) {
	apply, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
