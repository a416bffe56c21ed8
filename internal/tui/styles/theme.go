// Package styles holds the Catppuccin Mocha palette and the shared
// lipgloss styles of the monitor.
package styles

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha color palette
var (
	Base     = lipgloss.Color("#1e1e2e")
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Surface2 = lipgloss.Color("#585b70")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8")
	Subtext1 = lipgloss.Color("#bac2de")
	Text     = lipgloss.Color("#cdd6f4")

	Blue   = lipgloss.Color("#89b4fa")
	Sky    = lipgloss.Color("#89dceb")
	Green  = lipgloss.Color("#a6e3a1")
	Yellow = lipgloss.Color("#f9e2af")
	Peach  = lipgloss.Color("#fab387")
	Red    = lipgloss.Color("#f38ba8")
	Mauve  = lipgloss.Color("#cba6f7")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Surface2).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Surface2).
			Padding(1, 2).
			Margin(1, 0)

	// CLI output
	InfoStyle    = lipgloss.NewStyle().Foreground(Mauve).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(Green).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(Overlay0)
)

// LinkState is the connection state shown by the indicator
type LinkState int

const (
	LinkOpen LinkState = iota
	LinkWaiting
	LinkClosed
	LinkUnavailable
)

// Indicator returns the styled single-character state marker
func Indicator(state LinkState) string {
	switch state {
	case LinkOpen:
		return lipgloss.NewStyle().Foreground(Green).Render("●")
	case LinkWaiting:
		return lipgloss.NewStyle().Foreground(Yellow).Render("○")
	case LinkClosed:
		return lipgloss.NewStyle().Foreground(Red).Render("○")
	default:
		return lipgloss.NewStyle().Foreground(Red).Render("✗")
	}
}
