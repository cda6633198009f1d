package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/vehicle"
)

const (
	canvasWidth     = 60
	canvasHeight    = 22
	historyCapacity = 300
	frameRate       = 60
)

// Source publishes the latest flight record. sim.Simulator satisfies it.
type Source interface {
	Snapshot() (dynamo.Record, bool)
}

// DoneMsg tells the view the flight has ended.
type DoneMsg struct{ Err error }

type frameMsg time.Time

// LiveModel is a read-only view of a flight running in another goroutine.
// It samples the source at the frame rate and never blocks the flight.
type LiveModel struct {
	src    Source
	params vehicle.Params
	title  string

	canvas *Canvas
	camera *Camera

	rec      dynamo.Record
	have     bool
	lastTick int
	tilt     []float64
	forces   [dynamo.NumProps][]float64

	frozen     bool
	showForces bool
	done       bool
	err        error
}

func NewLiveModel(src Source, p vehicle.Params, title string) LiveModel {
	return LiveModel{
		src:      src,
		params:   p,
		title:    title,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		camera:   NewCamera(),
		lastTick: -1,
		tilt:     make([]float64, 0, historyCapacity),
	}
}

func nextFrame() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m LiveModel) Init() tea.Cmd {
	return nextFrame()
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.frozen = !m.frozen
		case "f":
			m.showForces = !m.showForces
		case "x":
			m.camera.Tilt(0.1)
		case "X":
			m.camera.Tilt(-0.1)
		case "z":
			m.camera.Orbit(0.1)
		case "Z":
			m.camera.Orbit(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.sample()
	case frameMsg:
		if !m.frozen {
			m.sample()
		}
		return m, nextFrame()
	}
	return m, nil
}

// sample pulls the newest record and appends it to the histories once per
// flight tick.
func (m *LiveModel) sample() {
	rec, ok := m.src.Snapshot()
	if !ok || rec.Tick == m.lastTick {
		return
	}
	m.rec, m.have, m.lastTick = rec, true, rec.Tick

	m.tilt = appendCapped(m.tilt, rec.State.Tilt()*180/math.Pi)
	for i, f := range rec.State.Forces {
		m.forces[i] = appendCapped(m.forces[i], f)
	}
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[len(s)-historyCapacity:]
	}
	return s
}

func (m LiveModel) View() string {
	m.canvas.Clear()
	st := dynamo.InitialState()
	if m.have {
		st = m.rec.State
	}
	QuadFrame(m.params, st.Orientation, st.Forces).Draw(m.canvas, m.camera)

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	if !m.have {
		s.WriteString(labelStyle.Render("waiting for first tick") + "\n")
	} else {
		s.WriteString(m.stats(st))
		if g := m.graph(); g != "" {
			s.WriteString(graphStyle.Render(g) + "\n")
		}
	}
	s.WriteString(helpStyle.Render("SP:Freeze F:Graph X/Z:Camera +/-:Zoom Q:Quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.canvas.String()),
		statsStyle.Render(s.String()))
}

func (m LiveModel) status() string {
	switch {
	case m.done && m.err != nil:
		return warnStyle.Render("STOPPED: " + m.err.Error())
	case m.done:
		return valueStyle.Render("FLIGHT COMPLETE")
	case m.frozen:
		return warnStyle.Render("FROZEN")
	}
	return valueStyle.Render("LIVE")
}

func (m LiveModel) stats(st dynamo.VehicleState) string {
	var s strings.Builder
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + value + "\n")
	}
	roll, pitch, yaw := st.Orientation.Euler()
	deg := 180 / math.Pi

	row("Time", valueStyle.Render(fmt.Sprintf("%.2fs  tick %d", m.rec.Time, m.rec.Tick)))
	row("Mode", modeBadge(st.Mode))
	if m.rec.Saturated {
		row("Actuators", warnStyle.Render("SATURATED"))
	} else {
		row("Actuators", valueStyle.Render("ok"))
	}
	row("Attitude", valueStyle.Render(fmt.Sprintf("r %6.1f° p %6.1f° y %6.1f°", roll*deg, pitch*deg, yaw*deg)))
	row("Rates", valueStyle.Render(fmt.Sprintf("%6.2f %6.2f %6.2f", st.AngularVel.X, st.AngularVel.Y, st.AngularVel.Z)))
	row("Accel", valueStyle.Render(fmt.Sprintf("%6.2f %6.2f %6.2f", st.Accel.X, st.Accel.Y, st.Accel.Z)))
	s.WriteString("\n")
	for i, f := range st.Forces {
		row(fmt.Sprintf("Prop %d", i), bar(f, m.params.PropMin, m.params.PropMax, 16)+valueStyle.Render(fmt.Sprintf(" %.3fN", f)))
	}
	return s.String()
}

func (m LiveModel) graph() string {
	if m.showForces {
		if len(m.forces[0]) < 2 {
			return ""
		}
		return asciigraph.PlotMany(m.forces[:],
			asciigraph.Height(6), asciigraph.Width(36),
			asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow),
			asciigraph.Caption("Prop forces [N]"))
	}
	if len(m.tilt) < 2 {
		return ""
	}
	return asciigraph.Plot(m.tilt, asciigraph.Height(6), asciigraph.Width(36), asciigraph.Caption("Tilt [deg]"))
}
