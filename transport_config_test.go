package irbridge

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		wantErr  bool
	}{
		{"", KindNone, false},
		{"none", KindNone, false},
		{"usb_serial", KindUSBSerial, false},
		{"USB-Serial", KindUSBSerial, false},
		{"tcp", KindTCP, false},
		{" TCP ", KindTCP, false},
		{"direct_storage", KindDirectStorage, false},
		{"bluetooth", KindNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownKind) {
				t.Errorf("Expected ErrUnknownKind, got %v", err)
			}
			if kind != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, kind)
			}
		})
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindNone, KindUSBSerial, KindTCP, KindDirectStorage} {
		parsed, err := ParseKind(k.String())
		if err != nil || parsed != k {
			t.Errorf("ParseKind(%q) = %v, %v; expected %v", k.String(), parsed, err, k)
		}
		if k.Label() == "" || k.Label() == "Unknown" {
			t.Errorf("Expected a label for %v, got %q", k, k.Label())
		}
	}
}

func TestParseUSBSelection(t *testing.T) {
	tests := []struct {
		key      string
		expected USBSelection
		wantErr  bool
	}{
		{"0403-6001-FT1:1", USBSelection{DeviceID: "0403-6001-FT1", Port: 1}, false},
		{"a:b:c:0", USBSelection{DeviceID: "a:b:c", Port: 0}, false},
		{"066f-4200:12", USBSelection{DeviceID: "066f-4200", Port: 12}, false},
		{"nocolon", USBSelection{}, true},
		{":1", USBSelection{}, true},
		{"dev:", USBSelection{}, true},
		{"dev:x", USBSelection{}, true},
		{"dev:-1", USBSelection{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			sel, err := ParseUSBSelection(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUSBSelection(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSelectionKey) {
				t.Errorf("Expected ErrInvalidSelectionKey, got %v", err)
			}
			if sel != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, sel)
			}
			if err == nil && sel.String() != tt.key {
				t.Errorf("Expected String() %q, got %q", tt.key, sel.String())
			}
		})
	}
}

func TestTCPConfigAddresses(t *testing.T) {
	tests := []struct {
		name   string
		cfg    TCPConfig
		server string
		client string
	}{
		{"ipv4", TCPConfig{ServerPort: 9000, ClientHost: "192.168.1.10", ClientPort: 9001}, ":9000", "192.168.1.10:9001"},
		{"hostname", TCPConfig{ServerPort: 8081, ClientHost: "localhost", ClientPort: 8081}, ":8081", "localhost:8081"},
		{"ipv6", TCPConfig{ServerPort: 8081, ClientHost: "::1", ClientPort: 8081}, ":8081", "[::1]:8081"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ServerAddress(); got != tt.server {
				t.Errorf("Expected %s, got %s", tt.server, got)
			}
			if got := tt.cfg.ClientAddress(); got != tt.client {
				t.Errorf("Expected %s, got %s", tt.client, got)
			}
		})
	}
}

func TestLoadTCPConfigDefaults(t *testing.T) {
	cfg := LoadTCPConfig(NewMemoryStore())

	if !cfg.IsServer {
		t.Error("Expected server role by default")
	}
	if cfg.ServerAddress() != ":8081" {
		t.Errorf("Expected :8081, got %s", cfg.ServerAddress())
	}
	if cfg.ClientAddress() != "127.0.0.1:8081" {
		t.Errorf("Expected 127.0.0.1:8081, got %s", cfg.ClientAddress())
	}
}

func TestTransportConfigSaveLoad(t *testing.T) {
	store := NewMemoryStore()
	saved := TransportConfig{
		Kind: KindTCP,
		TCP: TCPConfig{
			IsServer:   false,
			ServerPort: 9000,
			ClientHost: "10.0.0.2",
			ClientPort: 9001,
		},
		USB: &USBSelection{DeviceID: "066f-4200", Port: 1},
	}
	if err := saved.Save(store); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadTransportConfig(store)
	if err != nil {
		t.Fatalf("LoadTransportConfig failed: %v", err)
	}
	if loaded.Kind != KindTCP {
		t.Errorf("Expected kind tcp, got %v", loaded.Kind)
	}
	if loaded.TCP != saved.TCP {
		t.Errorf("Expected %+v, got %+v", saved.TCP, loaded.TCP)
	}
	if loaded.USB == nil || *loaded.USB != *saved.USB {
		t.Errorf("Expected %+v, got %+v", saved.USB, loaded.USB)
	}
}

func TestLoadTransportConfigUnknownKind(t *testing.T) {
	store := NewMemoryStore()
	store.Set(KeyTransportKind, "carrier_pigeon")
	store.Set(KeySelectedDevicePortKey, "garbage")

	cfg, err := LoadTransportConfig(store)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
	if cfg.Kind != KindNone {
		t.Errorf("Expected fallback to none, got %v", cfg.Kind)
	}
	if cfg.USB != nil {
		t.Errorf("Expected invalid selection to be ignored, got %+v", cfg.USB)
	}
}

func TestMemoryStoreConversions(t *testing.T) {
	store := NewMemoryStore()
	store.Set("TCP.Server_Port", "8082")
	store.Set("tcp.is_server", "false")

	if !store.IsSet("tcp.server_port") {
		t.Error("Expected keys to be case-insensitive")
	}
	if store.GetInt("tcp.server_port") != 8082 {
		t.Errorf("Expected 8082, got %d", store.GetInt("tcp.server_port"))
	}
	if store.GetBool("tcp.is_server") {
		t.Error("Expected false")
	}
	if store.GetString("missing") != "" {
		t.Error("Expected empty string for a missing key")
	}
}
