package irbridge

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Bridge is the synchronous byte pipe handed to the emulation core. Every
// call is forwarded to the channel current at call time.
type Bridge struct {
	cfg      Config
	logger   zerolog.Logger
	selector *Selector
}

// Status is a point-in-time view of the bridge for status displays
type Status struct {
	Selected  Kind // kind read from the configuration
	Active    Kind // kind of the channel serving calls
	Label     string
	Available bool
	Open      bool
	Pending   bool // bytes are waiting to be read
	Port      string
	Stats     Stats
}

// New creates a bridge reading its transport selection from store. The
// current channel is the null channel until the first Open or Reevaluate.
func New(store Store, opts ...Option) (*Bridge, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Host == nil {
		cfg.Host = NewSystemHost(cfg.Logger)
	}

	b := &Bridge{
		cfg:      cfg,
		logger:   cfg.Logger.With().Str("component", "bridge").Logger(),
		selector: NewSelector(store, cfg),
	}
	if notifier, ok := cfg.Host.(PermissionNotifier); ok {
		notifier.SetPermissionHandler(b.PermissionResult)
	}
	return b, nil
}

// Open re-reads the configuration and opens the resulting channel
func (b *Bridge) Open() bool {
	return b.selector.Open()
}

func (b *Bridge) Close() {
	b.selector.Current().Close()
}

// Write returns the bytes written, -1 when the channel is closed or failed,
// and 0 when the bridge is disabled
func (b *Bridge) Write(data []byte) int {
	return b.selector.Current().Write(data)
}

// Read copies up to len(buf) received bytes into buf without waiting
func (b *Bridge) Read(buf []byte) int {
	return b.selector.Current().Read(buf)
}

func (b *Bridge) IsOpen() bool {
	return b.selector.Current().IsOpen()
}

func (b *Bridge) HasDataAvailable() bool {
	return b.selector.Current().HasDataAvailable()
}

// Reevaluate applies a configuration change without opening anything
func (b *Bridge) Reevaluate() {
	b.selector.Reevaluate()
}

// PermissionResult delivers the outcome of a USB permission request. A
// grant retries the open that was waiting for it.
func (b *Bridge) PermissionResult(deviceID string, granted bool) {
	if !granted {
		b.logger.Warn().Str("device", deviceID).Msg("USB permission denied")
		b.selector.serial.forgetDevice(deviceID)
		return
	}
	b.logger.Info().Str("device", deviceID).Msg("USB permission granted")
	b.Open()
}

// Status reports the current transport state
func (b *Bridge) Status() Status {
	s := b.selector
	s.mu.RLock()
	current, selected, available := s.current, s.selected, s.available
	s.mu.RUnlock()

	status := Status{
		Selected:  selected,
		Active:    current.Kind(),
		Label:     selected.Label(),
		Available: available,
		Open:      current.IsOpen(),
		Pending:   current.HasDataAvailable(),
		Stats:     current.Stats(),
	}
	switch ch := current.(type) {
	case *SerialChannel:
		status.Port = ch.PortPath()
	case *SocketChannel:
		if addr := ch.LocalAddr(); addr != nil {
			status.Port = addr.String()
		}
	}
	return status
}

// Dispose closes every channel. The bridge must not be used afterwards.
func (b *Bridge) Dispose() {
	b.selector.Dispose()
}
