package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/hil"
	"github.com/san-kum/quadsim/internal/metrics"
	"github.com/san-kum/quadsim/internal/plant"
	"github.com/san-kum/quadsim/internal/scenario"
	"github.com/san-kum/quadsim/internal/sim"
	"github.com/san-kum/quadsim/internal/storage"
	"github.com/san-kum/quadsim/internal/teleop"
	"github.com/san-kum/quadsim/internal/viz"
)

// flight is one assembled closed loop plus whatever it has to release.
type flight struct {
	sim     *sim.Simulator
	source  string
	cfg     sim.Config
	closers []io.Closer
}

func (f *flight) Close() {
	for _, c := range f.closers {
		c.Close()
	}
}

func newSupervisor(cfg *config.Config) (*control.Supervisor, error) {
	ctrl, err := control.New(cfg.Vehicle, cfg.Control)
	if err != nil {
		return nil, err
	}
	return control.NewSupervisor(ctrl), nil
}

// buildFlight wires plant, flight controller, command source and metrics.
// With useHIL the flight controller is the device on cfg.HIL.Port.
func buildFlight(ctx context.Context, cfg *config.Config, sc *scenario.Scenario, useHIL bool, log zerolog.Logger) (*flight, error) {
	p, err := plant.New(cfg.Vehicle)
	if err != nil {
		return nil, err
	}
	p.SetState(sc.InitialState())

	f := &flight{
		source: "local",
		cfg: sim.Config{
			Duration:   sc.Duration,
			RealTime:   cfg.Run.RealTime,
			StopOnFail: cfg.Run.StopOnFail,
		},
	}
	if cfg.Run.Duration > 0 {
		f.cfg.Duration = cfg.Run.Duration
	}

	var (
		fc      sim.FlightController
		extra   []sim.Metric
		src     dynamo.CommandSource = sc
		teleLnk *teleop.Link
	)

	if teleopPort != "" {
		tp, err := hil.OpenSerial(teleopPort, cfg.HIL.Baud)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, tp)
		teleLnk = teleop.NewLink(tp, log.With().Str("link", "teleop").Logger())
		go func() {
			if err := teleLnk.Serve(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("teleop link stopped")
			}
		}()
		src = teleLnk
	}

	if useHIL {
		if cfg.HIL.Port == "" {
			f.Close()
			return nil, errors.New("no serial port: set --port, hil.port or QUADSIM_HIL_PORT")
		}
		sp, err := hil.OpenSerial(cfg.HIL.Port, cfg.HIL.Baud)
		if err != nil {
			f.Close()
			return nil, err
		}
		bridge, err := hil.NewBridge(sp, hil.WithTimeout(cfg.HIL.Timeout), hil.WithLogger(log))
		if err != nil {
			sp.Close()
			f.Close()
			return nil, err
		}
		f.closers = append(f.closers, bridge)
		log.Info().Str("port", cfg.HIL.Port).Int("baud", cfg.HIL.Baud).Dur("timeout", cfg.HIL.Timeout).Msg("hil link open")
		fc, f.source = bridge, "hil"
	} else {
		sup, err := newSupervisor(cfg)
		if err != nil {
			f.Close()
			return nil, err
		}
		fc = sim.NewLocal(sup)
		extra = append(extra, metrics.NewThrustIntegral(sup.Controller()))
	}

	f.sim = sim.New(p, fc, src)
	f.sim.SetLogger(log)
	for _, m := range append(metrics.Standard(cfg.Vehicle), extra...) {
		f.sim.AddMetric(m)
	}
	if teleLnk != nil {
		f.sim.AddObserver(teleLnk)
	}
	return f, nil
}

func runFlight(cmd *cobra.Command, args []string) error {
	return fly(cmd, args, false)
}

func runHIL(cmd *cobra.Command, args []string) error {
	return fly(cmd, args, true)
}

func fly(cmd *cobra.Command, args []string, useHIL bool) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	sc, err := loadScenario(cfg, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f, err := buildFlight(ctx, cfg, sc, useHIL, log)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Printf("flying %s (%s)...\n", sc.Name, f.source)
	start := time.Now()
	result, err := f.sim.Run(ctx, f.cfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	if err := saveFlight(cfg, sc, f, result); err != nil {
		return err
	}
	printSummary(result)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	sc, err := loadScenario(cfg, args)
	if err != nil {
		return err
	}
	cfg.Run.RealTime = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// log lines would tear the full-screen view
	f, err := buildFlight(ctx, cfg, sc, false, zerolog.Nop())
	if err != nil {
		return err
	}
	defer f.Close()

	prog := tea.NewProgram(viz.NewLiveModel(f.sim, cfg.Vehicle, sc.Name))

	type outcome struct {
		result *sim.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := f.sim.Run(ctx, f.cfg)
		done <- outcome{result, err}
		prog.Send(viz.DoneMsg{Err: err})
	}()

	if _, err := prog.Run(); err != nil {
		return err
	}
	cancel()

	out := <-done
	if out.err != nil {
		if errors.Is(out.err, dynamo.ErrContextCanceled) {
			fmt.Println("flight aborted")
			return nil
		}
		return out.err
	}
	if err := saveFlight(cfg, sc, f, out.result); err != nil {
		return err
	}
	printSummary(out.result)
	return nil
}

func saveFlight(cfg *config.Config, sc *scenario.Scenario, f *flight, result *sim.Result) error {
	if noSave {
		return nil
	}
	st := storage.New(cfg.Run.LogsDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Scenario: sc.Name,
		Source:   f.source,
		Dt:       cfg.Vehicle.Period(),
		Duration: f.cfg.Duration,
	}, result)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func printSummary(result *sim.Result) {
	final := result.Final()
	fmt.Printf("ticks: %d\n", len(result.Records))
	fmt.Printf("final mode: %s\n", final.Mode)
	if result.Timeouts > 0 {
		fmt.Printf("link timeouts: %d\n", result.Timeouts)
	}

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
}

// benchScenarios flies scenarios concurrently on local controllers.
func benchScenarios(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	names := args
	if len(names) == 0 {
		names = scenario.List()
	}

	batch := sim.NewBatch()
	for _, name := range names {
		sc := scenario.Get(name)
		if sc == nil {
			return fmt.Errorf("unknown scenario %q", name)
		}
		runCfg := sim.Config{Duration: sc.Duration}
		if cfg.Run.Duration > 0 {
			runCfg.Duration = cfg.Run.Duration
		}
		batch.Add(sim.Job{
			Name: name,
			Build: func() (*sim.Simulator, error) {
				f, err := buildFlight(context.Background(), cfg, sc, false, zerolog.Nop())
				if err != nil {
					return nil, err
				}
				return f.sim, nil
			},
			Config: runCfg,
		})
	}

	start := time.Now()
	results, err := batch.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%d flights in %v\n\n", len(results), time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tTICKS\tMODE\tSATURATION\tMAX ERR\tEFFORT\tSTABILITY")
	for i, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%s\t%.3f\t%.4f\t%.4f\t%.3f\n",
			names[i],
			len(r.Records),
			r.Final().Mode,
			r.Metrics["saturation_ratio"],
			r.Metrics["max_attitude_error"],
			r.Metrics["control_effort"],
			r.Metrics["stability"],
		)
	}
	return w.Flush()
}
