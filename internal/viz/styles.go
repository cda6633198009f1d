package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/quadsim/internal/dynamo"
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).
			Width(46)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaa00")).Bold(true)

	modeStyles = map[dynamo.Mode]lipgloss.Style{
		dynamo.ModeDisabled: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00")),
		dynamo.ModeEnabled:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88")),
		dynamo.ModeFailed:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444")),
	}

	barFull  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff"))
	barEmpty = lipgloss.NewStyle().Foreground(lipgloss.Color("#444466"))
)

func modeBadge(m dynamo.Mode) string {
	return modeStyles[m].Render(strings.ToUpper(m.String()))
}

// bar renders v in [lo, hi] as a fixed-width gauge.
func bar(v, lo, hi float64, width int) string {
	ratio := 0.0
	if hi > lo {
		ratio = (v - lo) / (hi - lo)
	}
	filled := int(max(0, min(1, ratio)) * float64(width))
	return barFull.Render(strings.Repeat("█", filled)) + barEmpty.Render(strings.Repeat("░", width-filled))
}
