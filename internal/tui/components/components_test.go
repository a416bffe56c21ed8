package components

import (
	"strings"
	"testing"
	"time"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		mode     SendingMode
		expected []byte
		wantErr  bool
	}{
		{"ascii", "AT", SendingModeASCII, []byte("AT"), false},
		{"hex", "c0ff", SendingModeHex, []byte{0xc0, 0xff}, false},
		{"hex with spaces", "C0 FF 00", SendingModeHex, []byte{0xc0, 0xff, 0x00}, false},
		{"hex with prefixes", "0xc0, 0xC1", SendingModeHex, []byte{0xc0, 0xc1}, false},
		{"odd length", "abc", SendingModeHex, nil, true},
		{"not hex", "zz", SendingModeHex, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ParsePayload(tt.text, tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePayload(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if string(data) != string(tt.expected) {
				t.Errorf("Expected % x, got % x", tt.expected, data)
			}
		})
	}
}

func TestFrameTXStatus(t *testing.T) {
	tests := []struct {
		frame    Frame
		expected string
	}{
		{Frame{Data: []byte("ab")}, ""},
		{Frame{Data: []byte("ab"), IsTX: true, Result: 2}, "WRITTEN"},
		{Frame{Data: []byte("ab"), IsTX: true, Result: 1}, "PARTIAL"},
		{Frame{Data: []byte("ab"), IsTX: true, Result: 0}, "DISABLED"},
		{Frame{Data: []byte("ab"), IsTX: true, Result: -1}, "ERROR"},
	}

	for _, tt := range tests {
		if got := tt.frame.TXStatus(); got != tt.expected {
			t.Errorf("TXStatus(%+v) = %q, expected %q", tt.frame, got, tt.expected)
		}
	}
}

func TestFormatterModes(t *testing.T) {
	f := NewFormatter(true, true)
	frame := Frame{Timestamp: time.Now(), Data: []byte{'h', 'i', 0x00}}

	line := f.Format(frame)
	if !strings.Contains(line, "68 69 00") {
		t.Errorf("Expected hex bytes in %q", line)
	}
	if !strings.Contains(line, "hi.") {
		t.Errorf("Expected printable ASCII in %q", line)
	}

	f.ToggleHex()
	f.ToggleASCII()
	if mode := f.Mode(); mode.ShowHex || mode.ShowASCII {
		t.Errorf("Expected both columns off, got %+v", mode)
	}
	if line := f.Format(frame); !strings.Contains(line, "BYTES: 3") {
		t.Errorf("Expected a byte count when both columns are off, got %q", line)
	}
}

func TestInputHistory(t *testing.T) {
	in := NewInput()
	in.AddToHistory("c0")
	in.AddToHistory("c1")

	in.HistoryUp()
	if in.Value() != "c1" {
		t.Errorf("Expected c1, got %q", in.Value())
	}
	in.HistoryUp()
	if in.Value() != "c0" {
		t.Errorf("Expected c0, got %q", in.Value())
	}
	in.HistoryDown()
	if in.Value() != "c1" {
		t.Errorf("Expected c1, got %q", in.Value())
	}

	if in.Mode() != SendingModeHex {
		t.Errorf("Expected hex mode by default, got %v", in.Mode())
	}
	in.ToggleSendingMode()
	if in.Mode() != SendingModeASCII {
		t.Errorf("Expected ASCII mode, got %v", in.Mode())
	}
}

func TestTerminalFrames(t *testing.T) {
	term := NewTerminal(80, 10)
	for i := 0; i < 3; i++ {
		term.Add(Frame{Data: []byte{byte(i)}})
	}
	if n := len(term.Frames()); n != 3 {
		t.Errorf("Expected 3 frames, got %d", n)
	}
	if !strings.Contains(term.View(), "02") {
		t.Error("Expected the newest frame to be visible")
	}
	term.Clear()
	if n := len(term.Frames()); n != 0 {
		t.Errorf("Expected 0 frames after Clear, got %d", n)
	}
}
