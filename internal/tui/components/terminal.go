package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxFrames bounds the scrollback
const maxFrames = 2000

// Terminal is a scrolling log of frames that follows the newest line
type Terminal struct {
	viewport  viewport.Model
	formatter *Formatter
	frames    []Frame
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewFormatter(true, true),
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

func (t *Terminal) Add(frame Frame) {
	t.frames = append(t.frames, frame)
	if len(t.frames) > maxFrames {
		t.frames = t.frames[len(t.frames)-maxFrames:]
	}
	t.refresh()
}

func (t *Terminal) Frames() []Frame {
	return t.frames
}

func (t *Terminal) Clear() {
	t.frames = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.refresh()
}

func (t *Terminal) ToggleASCII() {
	t.formatter.ToggleASCII()
	t.refresh()
}

func (t *Terminal) Mode() DisplayMode {
	return t.formatter.Mode()
}

func (t *Terminal) refresh() {
	t.viewport.SetContent(strings.Join(t.formatter.FormatAll(t.frames), "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	// Key messages stay with the monitor's own bindings
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
