package irbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// hangupZeroReads is how many consecutive zero-byte reads returning well
// before the read timeout mark a hung-up tty
const hangupZeroReads = 3

// SerialChannel bridges to the first attached USB serial adapter
type SerialChannel struct {
	cfg    Config
	store  Store
	host   USBHost
	sigs   *signatureTable
	logger zerolog.Logger
	queue  *ByteQueue
	stats  channelStats

	// mu serialises Open, Close and permission handling
	mu     sync.Mutex
	device *Device
	stopCh chan struct{}
	doneCh chan struct{}

	// portMu guards the handle used by Write
	portMu   sync.RWMutex
	port     Port
	portPath string

	open     atomic.Bool
	disposed atomic.Bool
}

var _ Channel = (*SerialChannel)(nil)

// NewSerialChannel creates an idle serial channel. The device is looked up
// on the first Open. A nil cfg.Host selects the SystemHost.
func NewSerialChannel(store Store, cfg Config) *SerialChannel {
	host := cfg.Host
	if host == nil {
		host = NewSystemHost(cfg.Logger)
	}
	return &SerialChannel{
		cfg:    cfg,
		store:  store,
		host:   host,
		sigs:   newSignatureTable(cfg.ExtraDeviceIDs),
		logger: cfg.Logger.With().Str("channel", KindUSBSerial.String()).Logger(),
		queue:  NewByteQueue(cfg.QueueCapacity),
	}
}

func (c *SerialChannel) Kind() Kind { return KindUSBSerial }

func (c *SerialChannel) Stats() Stats { return c.stats.snapshot() }

// IsAvailable reports whether a serial-capable device is attached. It only
// enumerates and never asks for permission.
func (c *SerialChannel) IsAvailable() bool {
	_, ok := c.firstDevice()
	return ok
}

func (c *SerialChannel) firstDevice() (Device, bool) {
	devices, err := c.host.ListDevices()
	if err != nil {
		c.logger.Debug().Err(err).Msg("USB enumeration failed")
		return Device{}, false
	}
	matched := c.sigs.Filter(devices)
	if len(matched) == 0 {
		return Device{}, false
	}
	return matched[0], true
}

// Open opens the adapter. It returns false while permission is pending or
// when any step fails, in which case nothing is left half open.
func (c *SerialChannel) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed.Load() {
		return false
	}
	if c.open.Load() {
		return true
	}

	// The reader may have exited on an I/O error, leaving the port behind.
	// The adapter was likely unplugged and may come back on another tty.
	if c.stopCh != nil {
		c.device = nil
	}
	c.teardownLocked()

	if err := c.openLocked(); err != nil {
		if errors.Is(err, ErrPermissionPending) {
			c.logger.Info().Str("device", c.device.ID).Msg("Waiting for USB permission")
			return false
		}
		if errors.Is(err, ErrNoDevice) {
			c.logger.Debug().Msg("No serial device attached")
		} else {
			c.logger.Error().Err(err).Msg("Failed to open serial channel")
		}
		c.device = nil
		return false
	}
	return true
}

func (c *SerialChannel) openLocked() error {
	if c.device == nil {
		d, ok := c.firstDevice()
		if !ok {
			return ErrNoDevice
		}
		c.device = &d
	}
	dev := *c.device

	if !c.host.HasPermission(dev) {
		if err := c.host.RequestPermission(dev); err != nil {
			return fmt.Errorf("permission request for %s: %w", dev.ID, err)
		}
		return ErrPermissionPending
	}
	if len(dev.Ports) == 0 {
		return fmt.Errorf("%w: %s has no ports", ErrNoDevice, dev.ID)
	}

	var desc *Descriptors
	if d, err := c.host.ReadDescriptors(dev); err == nil {
		desc = &d
	} else {
		c.logger.Debug().Err(err).Str("device", dev.ID).Msg("Descriptor scan unavailable")
	}
	choice := resolvePortIndex(dev, c.persistedSelection(), desc)
	path := dev.Ports[choice.index].Path

	port, err := c.host.OpenPort(path, PortConfig{
		BaudRate:    c.cfg.BaudRate,
		ReadTimeout: c.cfg.ReadTimeout,
	})
	if err != nil {
		return err
	}

	if c.cfg.ControlLines {
		if err := port.SetDTR(true); err != nil {
			port.Close()
			return fmt.Errorf("failed to assert DTR on %s: %w", path, err)
		}
		if err := port.SetRTS(true); err != nil {
			port.Close()
			return fmt.Errorf("failed to assert RTS on %s: %w", path, err)
		}
	}
	if err := port.FlushInput(); err != nil {
		c.logger.Debug().Err(err).Str("port", path).Msg("Input flush failed")
	}

	c.portMu.Lock()
	c.port = port
	c.portPath = path
	c.portMu.Unlock()

	c.queue.Clear()
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.open.Store(true)
	c.stats.connects.Inc()
	go c.readLoop(port, c.stopCh, c.doneCh)

	c.logger.Info().
		Str("device", dev.ID).
		Str("port", path).
		Int("index", choice.index).
		Str("source", choice.source).
		Msg("Serial channel open")
	return nil
}

// persistedSelection returns the user's port choice, if any
func (c *SerialChannel) persistedSelection() *USBSelection {
	key := c.store.GetString(KeySelectedDevicePortKey)
	if key == "" {
		return nil
	}
	sel, err := ParseUSBSelection(key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Ignoring persisted port selection")
		return nil
	}
	return &sel
}

func (c *SerialChannel) readLoop(port Port, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	c.logger.Debug().Msg("Serial reader started")
	defer c.logger.Debug().Msg("Serial reader stopped")

	buf := make([]byte, 256)
	zeroReads := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		start := time.Now()
		n, err := port.Read(buf)
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			c.stats.readErrors.Inc()
			c.logger.Warn().Err(err).Msg("Serial read failed, closing channel")
			c.markClosed()
			return
		}

		if n == 0 {
			if time.Since(start) < c.cfg.ReadTimeout/2 {
				zeroReads++
				if zeroReads >= hangupZeroReads {
					c.logger.Warn().Msg("Serial device hung up, closing channel")
					c.markClosed()
					return
				}
			} else {
				zeroReads = 0
			}
			continue
		}
		zeroReads = 0
		c.stats.received(n, c.queue.PushAll(buf[:n]))
	}
}

func (c *SerialChannel) markClosed() {
	if c.open.CompareAndSwap(true, false) {
		c.stats.disconnects.Inc()
	}
}

// Close stops the reader, closes the port and forgets the device
func (c *SerialChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasOpen := c.port != nil
	c.teardownLocked()
	c.device = nil
	if wasOpen {
		c.logger.Info().Msg("Serial channel closed")
	}
}

// teardownLocked releases the reader and the port, keeping the device
func (c *SerialChannel) teardownLocked() {
	c.markClosed()

	if c.stopCh != nil {
		close(c.stopCh)
		if !joinTimeout(c.doneCh, c.cfg.JoinTimeout) {
			c.logger.Warn().Msg("Serial reader did not stop in time")
		}
		c.stopCh = nil
		c.doneCh = nil
	}

	c.portMu.Lock()
	if c.port != nil {
		if err := c.port.Close(); err != nil && !errors.Is(err, ErrPortClosed) {
			c.logger.Debug().Err(err).Msg("Port close failed")
		}
		c.port = nil
		c.portPath = ""
	}
	c.portMu.Unlock()

	c.queue.Clear()
}

// forgetDevice drops the cached device after a permission denial so the
// next Open enumerates again
func (c *SerialChannel) forgetDevice(deviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device != nil && c.device.ID == deviceID && c.port == nil {
		c.device = nil
	}
}

// Write sends data within the write timeout. An I/O error is reported as
// -1 but leaves the channel open; the caller decides whether to Close.
func (c *SerialChannel) Write(data []byte) int {
	if !c.open.Load() {
		return -1
	}

	c.portMu.RLock()
	port := c.port
	c.portMu.RUnlock()
	if port == nil {
		return -1
	}
	if len(data) == 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()

	n, err := port.WriteContext(ctx, data)
	if err != nil {
		c.stats.writeErrors.Inc()
		c.logger.Debug().Err(err).Int("len", len(data)).Msg("Serial write failed")
		return -1
	}
	c.stats.bytesSent.Add(uint64(n))
	return n
}

func (c *SerialChannel) Read(buf []byte) int {
	return c.queue.Drain(buf)
}

func (c *SerialChannel) IsOpen() bool {
	return c.open.Load()
}

func (c *SerialChannel) HasDataAvailable() bool {
	return !c.queue.IsEmpty()
}

// PortPath returns the tty in use, or "" when closed
func (c *SerialChannel) PortPath() string {
	c.portMu.RLock()
	defer c.portMu.RUnlock()
	return c.portPath
}

func (c *SerialChannel) Dispose() {
	c.disposed.Store(true)
	c.Close()
}
