package irbridge

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
)

// Kind identifies which transport backs the bridge.
type Kind int

const (
	KindNone Kind = iota
	KindUSBSerial
	KindTCP
	KindDirectStorage // reserved, always served by the null channel
)

// String returns the persisted name of the kind
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUSBSerial:
		return "usb_serial"
	case KindTCP:
		return "tcp"
	case KindDirectStorage:
		return "direct_storage"
	default:
		return "unknown"
	}
}

// Label returns a human-readable name for status displays
func (k Kind) Label() string {
	switch k {
	case KindNone:
		return "None"
	case KindUSBSerial:
		return "USB Serial"
	case KindTCP:
		return "TCP"
	case KindDirectStorage:
		return "Direct Storage"
	default:
		return "Unknown"
	}
}

// ParseKind converts a persisted kind name. Matching ignores case and
// accepts '-' for '_'.
func ParseKind(s string) (Kind, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", "none":
		return KindNone, nil
	case "usb_serial", "usb", "serial":
		return KindUSBSerial, nil
	case "tcp":
		return KindTCP, nil
	case "direct_storage":
		return KindDirectStorage, nil
	default:
		return KindNone, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Persisted configuration keys.
const (
	KeyTransportKind         = "ir.transport_kind"
	KeySelectedDevicePortKey = "ir.selected_device_port_key"
	KeyTCPIsServer           = "tcp.is_server"
	KeyTCPServerPort         = "tcp.server_port"
	KeyTCPClientHost         = "tcp.client_host"
	KeyTCPClientPort         = "tcp.client_port"

	DefaultTCPPort       = 8081
	DefaultTCPClientHost = "127.0.0.1"
)

// Store is the persisted key-value record the bridge reads its transport
// selection from. Implementations must be safe for concurrent use.
type Store interface {
	IsSet(key string) bool
	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	Set(key string, value any) error
}

// TCPConfig holds the socket channel parameters
type TCPConfig struct {
	IsServer   bool
	ServerPort int
	ClientHost string
	ClientPort int
}

// DefaultTCPConfig returns the parameters used for keys that are not set
func DefaultTCPConfig() TCPConfig {
	return TCPConfig{
		IsServer:   true,
		ServerPort: DefaultTCPPort,
		ClientHost: DefaultTCPClientHost,
		ClientPort: DefaultTCPPort,
	}
}

// ServerAddress returns the listen address for the server role
func (c TCPConfig) ServerAddress() string {
	return net.JoinHostPort("", strconv.Itoa(c.ServerPort))
}

// ClientAddress returns the dial address for the client role
func (c TCPConfig) ClientAddress() string {
	return net.JoinHostPort(c.ClientHost, strconv.Itoa(c.ClientPort))
}

// USBSelection is a user's choice of port on a particular device
type USBSelection struct {
	DeviceID string
	Port     int
}

// String formats the selection as "<device-identity>:<port-index>"
func (s USBSelection) String() string {
	return s.DeviceID + ":" + strconv.Itoa(s.Port)
}

// ParseUSBSelection parses a "<device-identity>:<port-index>" key. The
// identity may itself contain colons; the index is after the last one.
func ParseUSBSelection(key string) (USBSelection, error) {
	i := strings.LastIndex(key, ":")
	if i <= 0 || i == len(key)-1 {
		return USBSelection{}, fmt.Errorf("%w: %q", ErrInvalidSelectionKey, key)
	}
	port, err := strconv.Atoi(key[i+1:])
	if err != nil || port < 0 {
		return USBSelection{}, fmt.Errorf("%w: %q", ErrInvalidSelectionKey, key)
	}
	return USBSelection{DeviceID: key[:i], Port: port}, nil
}

// TransportConfig is the whole persisted record
type TransportConfig struct {
	Kind Kind
	TCP  TCPConfig
	USB  *USBSelection // nil when no port was selected
}

// LoadTransportConfig reads the record from store, applying defaults for
// unset keys. An unrecognised kind is reported as an error alongside a
// config whose Kind is KindNone.
func LoadTransportConfig(store Store) (TransportConfig, error) {
	cfg := TransportConfig{TCP: LoadTCPConfig(store)}

	kind, err := ParseKind(store.GetString(KeyTransportKind))
	cfg.Kind = kind

	if key := store.GetString(KeySelectedDevicePortKey); key != "" {
		if sel, selErr := ParseUSBSelection(key); selErr == nil {
			cfg.USB = &sel
		}
	}
	return cfg, err
}

// LoadTCPConfig reads only the tcp.* namespace
func LoadTCPConfig(store Store) TCPConfig {
	cfg := DefaultTCPConfig()
	if store.IsSet(KeyTCPIsServer) {
		cfg.IsServer = store.GetBool(KeyTCPIsServer)
	}
	if store.IsSet(KeyTCPServerPort) {
		cfg.ServerPort = store.GetInt(KeyTCPServerPort)
	}
	if store.IsSet(KeyTCPClientHost) {
		cfg.ClientHost = store.GetString(KeyTCPClientHost)
	}
	if store.IsSet(KeyTCPClientPort) {
		cfg.ClientPort = store.GetInt(KeyTCPClientPort)
	}
	return cfg
}

// Save writes every field of the record to store
func (c TransportConfig) Save(store Store) error {
	values := []struct {
		key   string
		value any
	}{
		{KeyTransportKind, c.Kind.String()},
		{KeyTCPIsServer, c.TCP.IsServer},
		{KeyTCPServerPort, c.TCP.ServerPort},
		{KeyTCPClientHost, c.TCP.ClientHost},
		{KeyTCPClientPort, c.TCP.ClientPort},
	}
	if c.USB != nil {
		values = append(values, struct {
			key   string
			value any
		}{KeySelectedDevicePortKey, c.USB.String()})
	}
	for _, kv := range values {
		if err := store.Set(kv.key, kv.value); err != nil {
			return fmt.Errorf("failed to save %s: %w", kv.key, err)
		}
	}
	return nil
}

// MemoryStore is an in-process Store. Useful for embedding the bridge
// where preferences live elsewhere, and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]any)}
}

func (s *MemoryStore) IsSet(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[strings.ToLower(key)]
	return ok
}

func (s *MemoryStore) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch v := s.values[strings.ToLower(key)].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (s *MemoryStore) GetBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch v := s.values[strings.ToLower(key)].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

func (s *MemoryStore) GetInt(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch v := s.values[strings.ToLower(key)].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func (s *MemoryStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[strings.ToLower(key)] = value
	return nil
}
