package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-irbridge/internal/tui/styles"
)

// Frame is one burst of bytes crossing the bridge
type Frame struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	Result    int // return value of Bridge.Write for TX frames
}

// TXStatus classifies a write result the way Bridge.Write reports it
func (f Frame) TXStatus() string {
	switch {
	case !f.IsTX:
		return ""
	case f.Result < 0:
		return "ERROR"
	case f.Result == 0 && len(f.Data) > 0:
		return "DISABLED"
	case f.Result < len(f.Data):
		return "PARTIAL"
	default:
		return "WRITTEN"
	}
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

type Formatter struct {
	mode DisplayMode
}

func NewFormatter(showHex, showASCII bool) *Formatter {
	return &Formatter{mode: DisplayMode{ShowHex: showHex, ShowASCII: showASCII}}
}

func (f *Formatter) Mode() DisplayMode {
	return f.mode
}

func (f *Formatter) ToggleHex() {
	f.mode.ShowHex = !f.mode.ShowHex
}

func (f *Formatter) ToggleASCII() {
	f.mode.ShowASCII = !f.mode.ShowASCII
}

// Format renders one frame as a single line
func (f *Formatter) Format(frame Frame) string {
	timestamp := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Render(fmt.Sprintf("[%s]", frame.Timestamp.Format("15:04:05.000")))

	var indicator string
	if frame.IsTX {
		color, text := styles.Peach, "TX"
		switch frame.TXStatus() {
		case "WRITTEN":
			color, text = styles.Green, "TX ✓"
		case "PARTIAL":
			color, text = styles.Yellow, fmt.Sprintf("TX %d/%d", frame.Result, len(frame.Data))
		case "DISABLED":
			color, text = styles.Overlay0, "TX -"
		case "ERROR":
			color, text = styles.Red, "TX ✗"
		}
		indicator = lipgloss.NewStyle().Foreground(color).Bold(true).Render("↗ " + text)
	} else {
		indicator = lipgloss.NewStyle().Foreground(styles.Sky).Bold(true).Render("↙ RX")
	}

	return fmt.Sprintf("%s %s: %s", timestamp, indicator, strings.Join(f.payload(frame.Data), "  "))
}

func (f *Formatter) payload(data []byte) []string {
	var parts []string
	if f.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", data))
	}
	if f.mode.ShowASCII {
		parts = append(parts, "ASCII: "+printable(data))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(data)))
	}
	return parts
}

// printable replaces bytes outside printable ASCII with dots
func printable(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// FormatAll renders frames in order
func (f *Formatter) FormatAll(frames []Frame) []string {
	lines := make([]string, len(frames))
	for i, frame := range frames {
		lines[i] = f.Format(frame)
	}
	return lines
}
