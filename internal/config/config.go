package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/hil"
	"github.com/san-kum/quadsim/internal/vehicle"
)

const (
	DefaultScenario = "hover"
	DefaultLogLevel = "info"
	DefaultLogsDir  = "./flightlogs"
	EnvPrefix       = "QUADSIM"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Vehicle vehicle.Params `yaml:"vehicle"`
	Control control.Tuning `yaml:"control"`
	HIL     HILConfig      `yaml:"hil"`
	Run     RunConfig      `yaml:"run"`
	Log     LogConfig      `yaml:"log"`
}

type HILConfig struct {
	Port    string        `yaml:"port"`
	Baud    int           `yaml:"baud"`
	Timeout time.Duration `yaml:"timeout"`
}

type RunConfig struct {
	Scenario   string  `yaml:"scenario"`
	Duration   float64 `yaml:"duration"` // [s], 0 uses the scenario's own
	RealTime   bool    `yaml:"realtime"`
	StopOnFail bool    `yaml:"stop_on_fail"`
	LogsDir    string  `yaml:"logs_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func DefaultConfig() *Config {
	return &Config{
		Vehicle: vehicle.Default(),
		Control: control.DefaultTuning(),
		HIL: HILConfig{
			Baud:    hil.DefaultBaud,
			Timeout: hil.DefaultTimeout,
		},
		Run: RunConfig{
			Scenario: DefaultScenario,
			LogsDir:  DefaultLogsDir,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Pretty: true,
		},
	}
}

// Load reads a YAML config over the defaults, so a file only needs the
// keys it changes.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML config over base, which it modifies and returns.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides HIL and logging settings from QUADSIM_* environment
// variables, e.g. QUADSIM_HIL_PORT or QUADSIM_LOG_LEVEL.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"hil.port", "hil.baud", "hil.timeout", "log.level", "log.pretty", "run.logs_dir"} {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}

	if v.IsSet("hil.port") {
		cfg.HIL.Port = v.GetString("hil.port")
	}
	if v.IsSet("hil.baud") {
		cfg.HIL.Baud = v.GetInt("hil.baud")
	}
	if v.IsSet("hil.timeout") {
		d, err := time.ParseDuration(v.GetString("hil.timeout"))
		if err != nil {
			return fmt.Errorf("%w: %s_HIL_TIMEOUT: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.HIL.Timeout = d
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.pretty") {
		cfg.Log.Pretty = v.GetBool("log.pretty")
	}
	if v.IsSet("run.logs_dir") {
		cfg.Run.LogsDir = v.GetString("run.logs_dir")
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Vehicle.Validate(); err != nil {
		return err
	}
	if err := c.Control.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Run.Duration < 0 {
		return fmt.Errorf("%w: run.duration must not be negative, got %g", ErrInvalidConfig, c.Run.Duration)
	}
	if c.HIL.Baud <= 0 {
		return fmt.Errorf("%w: hil.baud must be positive, got %d", ErrInvalidConfig, c.HIL.Baud)
	}
	if c.HIL.Timeout <= 0 {
		return fmt.Errorf("%w: hil.timeout must be positive, got %s", ErrInvalidConfig, c.HIL.Timeout)
	}
	return nil
}
