package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/quadsim/internal/analysis"
	"github.com/san-kum/quadsim/internal/storage"
	"github.com/san-kum/quadsim/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	runs, err := storage.New(cfg.Run.LogsDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tSOURCE\tTIME\tDURATION\tTICKS\tMODE\tTIMEOUTS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%d\t%s\t%d\n",
			run.ID,
			run.Scenario,
			run.Source,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Ticks,
			run.FinalMode,
			run.Timeouts,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	runID := args[0]

	st := storage.New(cfg.Run.LogsDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadTicks(runID)
	if err != nil {
		return err
	}

	if pngPath != "" {
		if err := viz.SavePNG(pngPath, meta.ID, records, series); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", pngPath)
		return nil
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s (%s)\n", meta.Scenario, meta.Source)
	fmt.Printf("samples: %d\n\n", len(records))

	graph, err := viz.Plot(records, series, plotWidth, plotRows)
	if err != nil {
		return err
	}
	fmt.Println(graph)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	return storage.New(cfg.Run.LogsDir).ExportJSON(args[0], outPath)
}

// analyzeRun prints the dominant oscillation and settling time of each
// requested series of a stored flight.
func analyzeRun(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	st := storage.New(cfg.Run.LogsDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	records, err := st.LoadTicks(args[0])
	if err != nil {
		return err
	}
	ss, err := viz.LookupSeries(series...)
	if err != nil {
		return err
	}

	times := make([]float64, len(records))
	for i, r := range records {
		times[i] = r.Time
	}

	fmt.Printf("run: %s (%s, %d ticks)\n\n", meta.ID, meta.Scenario, len(records))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERIES\tFINAL\tPEAK\tDOMINANT\tSETTLED")
	for _, s := range ss {
		values := make([]float64, len(records))
		peak := 0.0
		for i, r := range records {
			values[i] = s.Value(r)
			peak = math.Max(peak, math.Abs(values[i]))
		}

		dominant := "-"
		spec, err := analysis.PowerSpectrum(values, 1/meta.Dt)
		switch {
		case err == nil:
			if f, _ := spec.Dominant(); f > 0 {
				dominant = fmt.Sprintf("%.2f Hz", f)
			}
		case !errors.Is(err, analysis.ErrTooShort):
			return err
		}

		final := 0.0
		settled := "never"
		if n := len(values); n > 0 {
			final = values[n-1]
			band := math.Max(settleTol*peak, 1e-9)
			if t, ok := analysis.SettlingTime(times, values, final, band); ok {
				settled = fmt.Sprintf("%.2fs", t)
			}
		}

		fmt.Fprintf(w, "%s\t%.4f %s\t%.4f\t%s\t%s\n", s.Name, final, s.Unit, peak, dominant, settled)
	}
	return w.Flush()
}
