package formatter

import (
	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusColor returns the style for a visit outcome.
func StatusColor(s domain.LogStatus) lipgloss.Style {
	switch s {
	case domain.LogCompleted:
		return StyleGreen
	case domain.LogSkipped:
		return StyleBlue
	case domain.LogFailed:
		return StyleRed
	case domain.LogCancelled:
		return StyleYellow
	default:
		return StyleDim
	}
}

// StatusPill renders a visit outcome such as "✔ completed".
func StatusPill(s domain.LogStatus) string {
	icon := "●"
	switch s {
	case domain.LogCompleted:
		icon = "✔"
	case domain.LogSkipped:
		icon = "⊘"
	case domain.LogFailed:
		icon = "✖"
	case domain.LogCancelled:
		icon = "○"
	}
	return StatusColor(s).Render(icon + " " + s.String())
}

// MethodBadge renders a cleaning method label.
func MethodBadge(m domain.CleaningMethod) string {
	if m == domain.MethodWet {
		return StyleBlue.Render(m.String())
	}
	return StylePurple.Render(m.String())
}
