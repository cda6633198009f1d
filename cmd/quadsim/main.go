package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/logging"
	"github.com/san-kum/quadsim/internal/scenario"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	pretty     bool

	duration   float64
	realTime   bool
	stopOnFail bool
	noSave     bool
	teleopPort string

	port    string
	baud    int
	timeout time.Duration

	series    []string
	pngPath   string
	outPath   string
	plotWidth int
	plotRows  int
	settleTol float64

	grid       []string
	metricName string
	topN       int
)

// main registers the quadsim commands and exits with status 1 if the
// selected command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:          "quadsim",
		Short:        "quadrotor flight control simulator and hardware-in-the-loop bridge",
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", config.DefaultLogsDir, "flight log directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "default", "config preset")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level")
	pf.BoolVar(&pretty, "pretty", true, "human-readable logs")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "fly a scenario against the local flight controller",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFlight,
	}
	flightFlags(runCmd)
	runCmd.Flags().StringVar(&teleopPort, "teleop", "", "serial port of a teleop remote to take commands from")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "fly a scenario in real time with a live telemetry view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	flightFlags(liveCmd)
	liveCmd.Flags().StringVar(&teleopPort, "teleop", "", "serial port of a teleop remote to take commands from")

	hilCmd := &cobra.Command{
		Use:   "hil [scenario]",
		Short: "fly a scenario against a flight controller on a serial port",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHIL,
	}
	flightFlags(hilCmd)
	linkFlags(hilCmd)
	hilCmd.Flags().DurationVar(&timeout, "timeout", 0, "per-exchange response timeout")

	benchCmd := &cobra.Command{
		Use:   "bench [scenario...]",
		Short: "fly scenarios in parallel and compare their metrics",
		RunE:  benchScenarios,
	}
	benchCmd.Flags().Float64Var(&duration, "time", 0, "flight duration in seconds (0 uses each scenario's)")

	deviceCmd := &cobra.Command{
		Use:   "device [scenario]",
		Short: "serve the flight controller on a serial port",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDevice,
	}
	linkFlags(deviceCmd)
	deviceCmd.Flags().StringVar(&teleopPort, "teleop", "", "serial port of a teleop remote to take commands from")

	remoteCmd := &cobra.Command{
		Use:   "remote [scenario]",
		Short: "drive a flight controller's teleop link with a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRemote,
	}
	linkFlags(remoteCmd)

	portsCmd := &cobra.Command{
		Use:   "ports",
		Short: "list serial ports",
		RunE:  listPorts,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored flights",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored flight",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&series, "series", []string{"roll", "pitch", "yaw"}, "series to plot")
	plotCmd.Flags().StringVar(&pngPath, "png", "", "write the plot to a PNG file instead")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "terminal plot width")
	plotCmd.Flags().IntVar(&plotRows, "height", 12, "terminal plot height")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "report oscillation and settling of a stored flight",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringSliceVar(&series, "series", []string{"roll", "pitch", "yaw", "az"}, "series to analyze")
	analyzeCmd.Flags().Float64Var(&settleTol, "tol", 0.02, "settling band as a fraction of the peak")

	tuneCmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "grid-search controller poles on a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneGains,
	}
	tuneCmd.Flags().StringArrayVar(&grid, "grid", []string{"pole_qxy=-3,-5,-8", "pole_qz=-2,-3,-5"}, "parameter values as name=v1,v2,...")
	tuneCmd.Flags().StringVar(&metricName, "metric", "max_attitude_error", "metric to minimize")
	tuneCmd.Flags().IntVar(&topN, "top", 10, "number of tunings to show")
	tuneCmd.Flags().Float64Var(&duration, "time", 0, "flight duration in seconds (0 uses the scenario's)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored flight as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "output", "o", "-", "output file (- for stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list config presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list built-in scenarios",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range scenario.List() {
				sc := scenario.Get(name)
				fmt.Printf("  %-10s %5.1fs  %s\n", name, sc.Duration, sc.Description)
			}
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, hilCmd, benchCmd, deviceCmd, remoteCmd, portsCmd,
		tuneCmd, listCmd, plotCmd, analyzeCmd, exportCmd, presetsCmd, scenariosCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func flightFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&duration, "time", 0, "flight duration in seconds (0 uses the scenario's)")
	cmd.Flags().BoolVar(&realTime, "realtime", false, "pace ticks at the control rate")
	cmd.Flags().BoolVar(&stopOnFail, "stop-on-fail", false, "end the flight when the vehicle fails")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the flight log")
}

func linkFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&port, "port", "", "serial port")
	cmd.Flags().IntVar(&baud, "baud", 0, "baud rate")
}

// setup resolves the configuration (preset, then file, then environment,
// then flags) and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.GetPreset(preset)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("%w (available: %s)", err, strings.Join(config.ListPresets(), ", "))
	}
	if configFile != "" {
		if cfg, err = config.LoadOver(configFile, cfg); err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, zerolog.Nop(), err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Run.LogsDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("pretty") {
		cfg.Log.Pretty = pretty
	}
	if flags.Changed("time") {
		cfg.Run.Duration = duration
	}
	if flags.Changed("realtime") {
		cfg.Run.RealTime = realTime
	}
	if flags.Changed("stop-on-fail") {
		cfg.Run.StopOnFail = stopOnFail
	}
	if flags.Changed("port") {
		cfg.HIL.Port = port
	}
	if flags.Changed("baud") {
		cfg.HIL.Baud = baud
	}
	if flags.Changed("timeout") {
		cfg.HIL.Timeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Pretty, os.Stderr)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}

// loadScenario accepts a built-in scenario name or a YAML file path.
func loadScenario(cfg *config.Config, args []string) (*scenario.Scenario, error) {
	name := cfg.Run.Scenario
	if len(args) > 0 {
		name = args[0]
	}
	if sc := scenario.Get(name); sc != nil {
		return sc, nil
	}
	if _, err := os.Stat(name); err == nil {
		return scenario.Load(name)
	}
	return nil, fmt.Errorf("unknown scenario %q (built-in: %s)", name, strings.Join(scenario.List(), ", "))
}
