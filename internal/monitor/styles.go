package monitor

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a monitor color scheme.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	High    lipgloss.Color
	Mid     lipgloss.Color
	Low     lipgloss.Color
}

var (
	ThemeClearSeas = Theme{
		Name:    "clear-seas",
		Primary: lipgloss.Color("#00ccff"),
		Accent:  lipgloss.Color("#7df9ff"),
		Text:    lipgloss.Color("#e6f7ff"),
		Muted:   lipgloss.Color("#5c6f80"),
		High:    lipgloss.Color("#00ff88"),
		Mid:     lipgloss.Color("#ffcc00"),
		Low:     lipgloss.Color("#ff6655"),
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#dddddd"),
		Muted:   lipgloss.Color("#888888"),
		High:    lipgloss.Color("#ffffff"),
		Mid:     lipgloss.Color("#aaaaaa"),
		Low:     lipgloss.Color("#666666"),
	}

	ThemeRetro = Theme{
		Name:    "retro",
		Primary: lipgloss.Color("#00ff00"),
		Accent:  lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		High:    lipgloss.Color("#88ff88"),
		Mid:     lipgloss.Color("#00cc00"),
		Low:     lipgloss.Color("#007700"),
	}

	Themes = []Theme{ThemeClearSeas, ThemeMinimal, ThemeRetro}
)

type styles struct {
	header lipgloss.Style
	panel  lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	active lipgloss.Style
	graph  lipgloss.Style
	help   lipgloss.Style
	status lipgloss.Style
	paused lipgloss.Style
	high   lipgloss.Style
	mid    lipgloss.Style
	low    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(t.Muted),
		panel:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Muted).Padding(0, 1),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(16),
		value:  lipgloss.NewStyle().Foreground(t.Text),
		active: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		graph:  lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 0),
		help:   lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		status: lipgloss.NewStyle().Bold(true).Foreground(t.High),
		paused: lipgloss.NewStyle().Bold(true).Foreground(t.Mid),
		high:   lipgloss.NewStyle().Foreground(t.High),
		mid:    lipgloss.NewStyle().Foreground(t.Mid),
		low:    lipgloss.NewStyle().Foreground(t.Low),
	}
}

// bar renders a filled gauge for a fraction in [0, 1].
func (s styles) bar(frac float64, width int) string {
	if math.IsNaN(frac) {
		frac = 0
	}
	filled := int(math.Round(frac * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	b := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case frac > 0.7:
		return s.high.Render(b)
	case frac > 0.3:
		return s.mid.Render(b)
	default:
		return s.low.Render(b)
	}
}
