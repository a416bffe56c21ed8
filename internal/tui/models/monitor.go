// Package models holds the bubbletea models of the CLI.
package models

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-irbridge"
	"github.com/allbin/go-irbridge/internal/tui/components"
	"github.com/allbin/go-irbridge/internal/tui/keys"
	"github.com/allbin/go-irbridge/internal/tui/styles"
)

// FrameInterval is how often the monitor polls the bridge, about one
// emulated video frame
const FrameInterval = 16 * time.Millisecond

// maxReadsPerTick bounds the reads drained in one poll
const maxReadsPerTick = 16

// Bridge is the part of *irbridge.Bridge the monitor drives
type Bridge interface {
	Open() bool
	Close()
	Write(data []byte) int
	Read(buf []byte) int
	Status() irbridge.Status
}

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// TickMsg drives the polling loop
type TickMsg time.Time

// TransportChangedMsg carries a status observer notification into the UI
type TransportChangedMsg struct {
	Available bool
	Label     string
}

// MonitorModel stands in for the emulation core: it polls the bridge every
// frame, shows what arrives and writes what the user types
type MonitorModel struct {
	bridge    Bridge
	terminal  *components.Terminal
	input     *components.Input
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.MonitorKeys

	mode  InputMode
	ready bool
	buf   []byte
	now   func() time.Time
}

func NewMonitorModel(bridge Bridge) *MonitorModel {
	return &MonitorModel{
		bridge:    bridge,
		terminal:  components.NewTerminal(80, 20),
		input:     components.NewInput(),
		statusBar: components.NewStatusBar(),
		help:      help.New(),
		keys:      keys.NewMonitorKeys(),
		buf:       make([]byte, 256),
		now:       time.Now,
	}
}

func tick() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *MonitorModel) Init() tea.Cmd {
	m.statusBar.SetStatus(m.bridge.Status())
	return tick()
}

// Mode returns the current input mode
func (m *MonitorModel) Mode() InputMode {
	return m.mode
}

// Frames returns the logged traffic
func (m *MonitorModel) Frames() []components.Frame {
	return m.terminal.Frames()
}

func (m *MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// status bar 1 line, input box 3 lines
		m.terminal.SetSize(msg.Width, msg.Height-4)
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.ready = true
		return m, m.terminal.Update(msg)

	case TickMsg:
		m.poll()
		return m, tick()

	case TransportChangedMsg:
		state := "unavailable"
		if msg.Available {
			state = "available"
		}
		m.statusBar.SetNotice(fmt.Sprintf("%s %s", msg.Label, state))
		return m, nil

	case tea.MouseMsg:
		return m, m.terminal.Update(msg)

	case tea.KeyMsg:
		if m.mode == InputModeInsert {
			return m, m.updateInsert(msg)
		}
		return m, m.updateNormal(msg)
	}
	return m, nil
}

func (m *MonitorModel) updateInsert(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.mode = InputModeNormal
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.Enter):
		m.send()
		return nil
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
		return nil
	case key.Matches(msg, m.keys.Up):
		m.input.HistoryUp()
		return nil
	case key.Matches(msg, m.keys.Down):
		m.input.HistoryDown()
		return nil
	case msg.Type == tea.KeyCtrlC:
		return tea.Quit
	}
	return m.input.Update(msg)
}

func (m *MonitorModel) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.InsertMode):
		m.mode = InputModeInsert
		return m.input.Focus()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()
	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.ToggleHex()
	case key.Matches(msg, m.keys.ToggleASCII):
		m.terminal.ToggleASCII()
	case key.Matches(msg, m.keys.Open):
		if m.bridge.Open() {
			m.statusBar.SetNotice("open requested")
		} else {
			m.statusBar.SetNotice("open failed")
		}
	case key.Matches(msg, m.keys.Close):
		m.bridge.Close()
		m.statusBar.SetNotice("closed")
	}
	return nil
}

// poll drains the bridge like the emulation core does once per frame
func (m *MonitorModel) poll() {
	for i := 0; i < maxReadsPerTick; i++ {
		n := m.bridge.Read(m.buf)
		if n <= 0 {
			break
		}
		data := make([]byte, n)
		copy(data, m.buf[:n])
		m.terminal.Add(components.Frame{Timestamp: m.now(), Data: data})
	}
	m.statusBar.SetStatus(m.bridge.Status())
}

func (m *MonitorModel) send() {
	line := m.input.Value()
	data, err := m.input.Payload()
	if err != nil {
		m.statusBar.SetNotice(err.Error())
		return
	}
	if len(data) == 0 {
		return
	}
	n := m.bridge.Write(data)
	m.terminal.Add(components.Frame{Timestamp: m.now(), Data: data, IsTX: true, Result: n})
	m.input.AddToHistory(line)
	m.input.Reset()
}

func (m *MonitorModel) View() string {
	content := "Initializing..."
	if m.ready {
		content = m.terminal.View()
	}

	sections := []string{
		styles.ContentBorderStyle.Render(content),
		m.input.View(m.mode == InputModeInsert),
	}
	if m.help.ShowAll {
		sections = append(sections, styles.HelpStyle.Render(m.help.View(m.keys)))
	}
	sections = append(sections, m.statusBar.View(m.mode == InputModeInsert, m.now().Format("15:04:05")))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
