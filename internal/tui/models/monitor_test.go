package models

import (
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/allbin/go-irbridge"
)

type fakeBridge struct {
	mu      sync.Mutex
	rx      []byte
	written [][]byte
	result  int // returned by Write, -2 echoes the length
	opens   int
	closes  int
	status  irbridge.Status
}

func (b *fakeBridge) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opens++
	return true
}

func (b *fakeBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
}

func (b *fakeBridge) Write(data []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.written = append(b.written, append([]byte(nil), data...))
	if b.result == -2 {
		return len(data)
	}
	return b.result
}

func (b *fakeBridge) Read(buf []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := copy(buf, b.rx)
	b.rx = b.rx[n:]
	return n
}

func (b *fakeBridge) Status() irbridge.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(b *fakeBridge) *MonitorModel {
	m := NewMonitorModel(b)
	m.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestMonitorPollsBridge(t *testing.T) {
	b := &fakeBridge{rx: []byte{0xc0, 0x01, 0xc1}}
	m := newTestModel(b)

	_, cmd := m.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Error("Expected the tick to be re-armed")
	}

	frames := m.Frames()
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if frames[0].IsTX || len(frames[0].Data) != 3 {
		t.Errorf("Unexpected frame: %+v", frames[0])
	}

	m.Update(TickMsg(time.Now()))
	if len(m.Frames()) != 1 {
		t.Error("Expected no frame for an empty poll")
	}
}

func TestMonitorSendsInInsertMode(t *testing.T) {
	b := &fakeBridge{result: -2}
	m := newTestModel(b)

	m.Update(keyMsg("i"))
	if m.Mode() != InputModeInsert {
		t.Fatalf("Expected insert mode, got %v", m.Mode())
	}
	for _, r := range "c0ff" {
		m.Update(keyMsg(string(r)))
	}
	m.Update(keyMsg("enter"))

	b.mu.Lock()
	written := b.written
	b.mu.Unlock()
	if len(written) != 1 || len(written[0]) != 2 || written[0][0] != 0xc0 || written[0][1] != 0xff {
		t.Fatalf("Expected c0 ff to be written, got %v", written)
	}

	frames := m.Frames()
	if len(frames) != 1 || !frames[0].IsTX || frames[0].TXStatus() != "WRITTEN" {
		t.Errorf("Unexpected frames: %+v", frames)
	}

	m.Update(keyMsg("esc"))
	if m.Mode() != InputModeNormal {
		t.Errorf("Expected normal mode, got %v", m.Mode())
	}
}

func TestMonitorRecordsFailedWrite(t *testing.T) {
	b := &fakeBridge{result: -1}
	m := newTestModel(b)

	m.Update(keyMsg("i"))
	for _, r := range "01" {
		m.Update(keyMsg(string(r)))
	}
	m.Update(keyMsg("enter"))

	frames := m.Frames()
	if len(frames) != 1 || frames[0].TXStatus() != "ERROR" {
		t.Errorf("Expected an ERROR frame, got %+v", frames)
	}
}

func TestMonitorOpenClose(t *testing.T) {
	b := &fakeBridge{}
	m := newTestModel(b)

	m.Update(keyMsg("o"))
	m.Update(keyMsg("x"))

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.opens != 1 || b.closes != 1 {
		t.Errorf("Expected 1 open and 1 close, got %d and %d", b.opens, b.closes)
	}
}

func TestMonitorQuit(t *testing.T) {
	m := newTestModel(&fakeBridge{})
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestMonitorView(t *testing.T) {
	b := &fakeBridge{status: irbridge.Status{Active: irbridge.KindTCP, Label: "TCP", Available: true}}
	m := newTestModel(b)
	m.Init()
	m.Update(TransportChangedMsg{Available: true, Label: "TCP"})

	if view := m.View(); view == "" {
		t.Error("Expected a rendered view")
	}
}
