package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/quadsim/internal/optim"
	"github.com/san-kum/quadsim/internal/sim"
)

// tuneGains flies a scenario once per point of the --grid and ranks the
// tunings by --metric.
func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	sc, err := loadScenario(cfg, args)
	if err != nil {
		return err
	}
	gs, err := optim.ParseGrid(grid)
	if err != nil {
		return fmt.Errorf("%w (tunable: %s)", err, strings.Join(tunables(), ", "))
	}

	runCfg := sim.Config{Duration: sc.Duration, StopOnFail: true}
	if cfg.Run.Duration > 0 {
		runCfg.Duration = cfg.Run.Duration
	}

	build := func(params map[string]float64) (*sim.Simulator, error) {
		c := *cfg
		if err := optim.Apply(&c.Control, params); err != nil {
			return nil, err
		}
		f, err := buildFlight(cmd.Context(), &c, sc, false, zerolog.Nop())
		if err != nil {
			return nil, err
		}
		return f.sim, nil
	}

	points := len(gs.Points())
	log.Info().Str("scenario", sc.Name).Int("points", points).Str("metric", metricName).Msg("tuning")
	start := time.Now()
	trials, err := gs.Search(cmd.Context(), build, runCfg, metricName)
	if err != nil {
		return err
	}
	fmt.Printf("%d flights in %v\n\n", points, time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tPARAMS\t%s\n", strings.ToUpper(metricName))
	for i, tr := range trials {
		if i >= topN {
			break
		}
		value := fmt.Sprintf("%.6f", tr.Value)
		if tr.Err != nil {
			value = tr.Err.Error()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, formatParams(tr.Params), value)
	}
	return w.Flush()
}

func formatParams(params map[string]float64) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%g", name, params[name])
	}
	return strings.Join(parts, " ")
}

func tunables() []string {
	names := make([]string, 0, len(optim.Tunables))
	for name := range optim.Tunables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
