package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-irbridge"
	"github.com/allbin/go-irbridge/internal/tui/styles"
)

// StatusBar renders the bottom line of the monitor from a bridge status
type StatusBar struct {
	width  int
	status irbridge.Status
	notice string
}

func NewStatusBar() *StatusBar {
	return &StatusBar{}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetStatus(status irbridge.Status) {
	sb.status = status
}

// SetNotice shows a short message, e.g. the last observer notification
func (sb *StatusBar) SetNotice(notice string) {
	sb.notice = notice
}

func (sb *StatusBar) linkState() styles.LinkState {
	switch {
	case sb.status.Open:
		return styles.LinkOpen
	case !sb.status.Available:
		return styles.LinkUnavailable
	case sb.status.Active == irbridge.KindTCP:
		return styles.LinkWaiting
	default:
		return styles.LinkClosed
	}
}

// View renders the bar: input mode, transport and state on the left;
// counters and time on the right
func (sb *StatusBar) View(insert bool, timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeText, modeColor := "NORMAL", styles.Blue
	if insert {
		modeText, modeColor = "INSERT", styles.Green
	}
	mode := lipgloss.NewStyle().
		Foreground(styles.Base).
		Background(modeColor).
		Bold(true).
		Padding(0, 1).
		Render(modeText)

	label := sb.status.Label
	if label == "" {
		label = irbridge.KindNone.Label()
	}
	if sb.status.Port != "" {
		label += " " + sb.status.Port
	}
	transport := lipgloss.NewStyle().Foreground(styles.Mauve).Bold(true).Padding(0, 1).Render(label)

	divider := lipgloss.NewStyle().Foreground(styles.Surface2).Padding(0, 1).Render("│")

	left := lipgloss.JoinHorizontal(lipgloss.Left, mode, transport, styles.Indicator(sb.linkState()), divider)
	if sb.notice != "" {
		notice := lipgloss.NewStyle().Foreground(styles.Peach).Padding(0, 1).Render(sb.notice)
		left = lipgloss.JoinHorizontal(lipgloss.Left, left, notice)
	}

	st := sb.status.Stats
	counters := fmt.Sprintf("TX %d  RX %d", st.BytesSent, st.BytesReceived)
	if st.BytesDropped > 0 {
		counters += fmt.Sprintf("  DROP %d", st.BytesDropped)
	}
	if errs := st.WriteErrors + st.ReadErrors; errs > 0 {
		counters += fmt.Sprintf("  ERR %d", errs)
	}
	details := lipgloss.NewStyle().Foreground(styles.Subtext0).Padding(0, 1).Render(counters)
	clock := lipgloss.NewStyle().Foreground(styles.Subtext1).Padding(0, 1).Render(timestamp)
	right := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, left, spacer, right))
}
