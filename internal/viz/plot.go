package viz

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/quadsim/internal/dynamo"
)

var (
	ErrUnknownSeries = errors.New("viz: unknown series")
	ErrNoData        = errors.New("viz: nothing to plot")
)

// Series extracts one plotted quantity from a record.
type Series struct {
	Name  string
	Unit  string
	Value func(dynamo.Record) float64
}

func euler(i int) func(dynamo.Record) float64 {
	return func(r dynamo.Record) float64 {
		roll, pitch, yaw := r.State.Orientation.Euler()
		return [3]float64{roll, pitch, yaw}[i] * 180 / math.Pi
	}
}

func force(i int) func(dynamo.Record) float64 {
	return func(r dynamo.Record) float64 { return r.State.Forces[i] }
}

var series = map[string]Series{
	"roll":   {"roll", "deg", euler(0)},
	"pitch":  {"pitch", "deg", euler(1)},
	"yaw":    {"yaw", "deg", euler(2)},
	"tilt":   {"tilt", "deg", func(r dynamo.Record) float64 { return r.State.Tilt() * 180 / math.Pi }},
	"wx":     {"wx", "rad/s", func(r dynamo.Record) float64 { return r.State.AngularVel.X }},
	"wy":     {"wy", "rad/s", func(r dynamo.Record) float64 { return r.State.AngularVel.Y }},
	"wz":     {"wz", "rad/s", func(r dynamo.Record) float64 { return r.State.AngularVel.Z }},
	"az":     {"az", "m/s^2", func(r dynamo.Record) float64 { return r.State.Accel.Z }},
	"f0":     {"f0", "N", force(0)},
	"f1":     {"f1", "N", force(1)},
	"f2":     {"f2", "N", force(2)},
	"f3":     {"f3", "N", force(3)},
	"thrust": {"thrust", "N", func(r dynamo.Record) float64 { return r.State.Forces.Sum() }},
}

// LookupSeries resolves series names as accepted by Plot.
func LookupSeries(names ...string) ([]Series, error) {
	out := make([]Series, 0, len(names))
	for _, n := range names {
		s, ok := series[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownSeries, n, strings.Join(SeriesNames(), ", "))
		}
		out = append(out, s)
	}
	return out, nil
}

func SeriesNames() []string {
	names := make([]string, 0, len(series))
	for n := range series {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func extract(records []dynamo.Record, ss []Series) [][]float64 {
	data := make([][]float64, len(ss))
	for i, s := range ss {
		data[i] = make([]float64, len(records))
		for j, r := range records {
			data[i][j] = s.Value(r)
		}
	}
	return data
}

var graphColors = []asciigraph.AnsiColor{
	asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow, asciigraph.Cyan, asciigraph.Magenta,
}

// Plot renders the named series of a flight log as a terminal chart.
func Plot(records []dynamo.Record, names []string, width, height int) (string, error) {
	if len(records) < 2 {
		return "", ErrNoData
	}
	ss, err := LookupSeries(names...)
	if err != nil {
		return "", err
	}

	legend := make([]string, len(ss))
	for i, s := range ss {
		legend[i] = fmt.Sprintf("%s [%s]", s.Name, s.Unit)
	}
	colors := make([]asciigraph.AnsiColor, len(ss))
	for i := range ss {
		colors[i] = graphColors[i%len(graphColors)]
	}

	return asciigraph.PlotMany(extract(records, ss),
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(strings.Join(legend, "  "))), nil
}

// SavePNG writes the named series against flight time to a PNG file.
func SavePNG(path, title string, records []dynamo.Record, names []string) error {
	if len(records) < 2 {
		return ErrNoData
	}
	ss, err := LookupSeries(names...)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = ss[0].Unit
	p.Add(plotter.NewGrid())

	data := extract(records, ss)
	for i, s := range ss {
		pts := make(plotter.XYs, len(records))
		for j, r := range records {
			pts[j].X = r.Time
			pts[j].Y = data[i][j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	return savePlotPNG(p, 8, 5, path)
}

func savePlotPNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(150),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}
