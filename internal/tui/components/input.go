package components

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-irbridge/internal/tui/styles"
)

type SendingMode int

const (
	SendingModeHex SendingMode = iota
	SendingModeASCII
)

func (s SendingMode) String() string {
	if s == SendingModeASCII {
		return "ASCII"
	}
	return "HEX"
}

const historyLimit = 100

// Input is the line editor used to inject bytes into the bridge
type Input struct {
	textInput    textinput.Model
	sendingMode  SendingMode
	history      []string
	historyIndex int
	pending      string // line being edited before history navigation
	width        int
}

func NewInput() *Input {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Prompt = ""
	ti.Placeholder = hexPlaceholder

	return &Input{
		textInput:    ti,
		sendingMode:  SendingModeHex,
		historyIndex: -1,
	}
}

const (
	hexPlaceholder   = "Enter hex (e.g. 5AA501 or 5A A5 01)..."
	asciiPlaceholder = "Type text and press Enter to send..."
)

func (i *Input) SetWidth(width int) {
	i.width = width
	usable := width - 6
	if usable < 20 {
		usable = 20
	}
	i.textInput.Width = usable
}

func (i *Input) Focus() tea.Cmd {
	return i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) Reset() {
	i.textInput.SetValue("")
}

func (i *Input) Mode() SendingMode {
	return i.sendingMode
}

func (i *Input) ToggleSendingMode() {
	if i.sendingMode == SendingModeHex {
		i.sendingMode = SendingModeASCII
		i.textInput.Placeholder = asciiPlaceholder
	} else {
		i.sendingMode = SendingModeHex
		i.textInput.Placeholder = hexPlaceholder
	}
}

// Payload converts the current line to bytes according to the sending mode
func (i *Input) Payload() ([]byte, error) {
	return ParsePayload(i.textInput.Value(), i.sendingMode)
}

// ParsePayload converts text to bytes. Hex input may contain spaces and
// 0x prefixes.
func ParsePayload(text string, mode SendingMode) ([]byte, error) {
	if mode == SendingModeASCII {
		return []byte(text), nil
	}
	cleaned := strings.NewReplacer(" ", "", "0x", "", "0X", "", ",", "").Replace(text)
	if len(cleaned)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even length")
	}
	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

func (i *Input) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return cmd
}

// View renders the input box; outside insert mode it shows a hint instead
func (i *Input) View(insert bool) string {
	symbol, color := "#", styles.Yellow
	if i.sendingMode == SendingModeASCII {
		symbol, color = ">", styles.Green
	}
	prompt := lipgloss.NewStyle().Foreground(color).Bold(true).Render(symbol)

	var content string
	if insert {
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", i.textInput.View())
	} else {
		hint := lipgloss.NewStyle().Foreground(styles.Overlay0).Render("Press 'i' to enter insert mode")
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", hint)
	}

	width := i.width - 4
	if width < 10 {
		width = 10
	}
	style := styles.InputStyle.Width(width)
	if insert {
		style = style.BorderForeground(styles.Green)
	}
	return style.Render(content)
}

// AddToHistory records a sent line unless it repeats the previous one
func (i *Input) AddToHistory(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(i.history); n > 0 && i.history[n-1] == line {
		i.historyIndex = -1
		return
	}
	i.history = append(i.history, line)
	if len(i.history) > historyLimit {
		i.history = i.history[1:]
	}
	i.historyIndex = -1
	i.pending = ""
}

func (i *Input) HistoryUp() {
	if len(i.history) == 0 {
		return
	}
	if i.historyIndex == -1 {
		i.pending = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}
	i.textInput.SetValue(i.history[i.historyIndex])
}

func (i *Input) HistoryDown() {
	if i.historyIndex == -1 {
		return
	}
	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}
	i.historyIndex = -1
	i.textInput.SetValue(i.pending)
	i.pending = ""
}
