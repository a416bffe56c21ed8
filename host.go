package irbridge

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// USBHost is the operating system boundary of the serial channel:
// enumeration, access control and opening ttys
type USBHost interface {
	ListDevices() ([]Device, error)
	HasPermission(d Device) bool
	// RequestPermission starts an asynchronous request. The outcome is
	// reported through Bridge.PermissionResult.
	RequestPermission(d Device) error
	ReadDescriptors(d Device) (Descriptors, error)
	OpenPort(path string, cfg PortConfig) (Port, error)
}

// PermissionNotifier is implemented by hosts that report permission
// outcomes themselves. The bridge installs its handler on construction.
type PermissionNotifier interface {
	SetPermissionHandler(func(deviceID string, granted bool))
}

// Permission polling of SystemHost
const (
	permissionPollInterval = 500 * time.Millisecond
	permissionPollTimeout  = 30 * time.Second
)

// SystemHost is the USBHost of the running machine. Access is granted by
// file permissions on the tty (dialout group or a udev rule), so a request
// can only wait for an administrator to change them.
type SystemHost struct {
	logger zerolog.Logger

	mu      sync.Mutex
	pending map[string]bool
	handler func(deviceID string, granted bool)

	pollInterval time.Duration
	pollTimeout  time.Duration
}

var (
	_ USBHost            = (*SystemHost)(nil)
	_ PermissionNotifier = (*SystemHost)(nil)
)

// NewSystemHost creates the host backed by sysfs, libusb and the tty layer
func NewSystemHost(logger zerolog.Logger) *SystemHost {
	return &SystemHost{
		logger:       logger.With().Str("component", "usb").Logger(),
		pending:      make(map[string]bool),
		pollInterval: permissionPollInterval,
		pollTimeout:  permissionPollTimeout,
	}
}

func (h *SystemHost) ListDevices() ([]Device, error) {
	return ListDevices()
}

func (h *SystemHost) HasPermission(d Device) bool {
	if len(d.Ports) == 0 {
		return false
	}
	for _, p := range d.Ports {
		if !canAccess(p.Path) {
			return false
		}
	}
	return true
}

func (h *SystemHost) SetPermissionHandler(fn func(deviceID string, granted bool)) {
	h.mu.Lock()
	h.handler = fn
	h.mu.Unlock()
}

// RequestPermission waits in the background for the ttys of d to become
// accessible. Concurrent requests for one device share a single wait.
func (h *SystemHost) RequestPermission(d Device) error {
	h.mu.Lock()
	if h.pending[d.ID] {
		h.mu.Unlock()
		return nil
	}
	h.pending[d.ID] = true
	h.mu.Unlock()

	h.logger.Warn().
		Str("device", d.ID).
		Strs("ports", d.PortPaths()).
		Msg("No access to serial device; add the user to the dialout group or install a udev rule")

	go h.awaitPermission(d)
	return nil
}

func (h *SystemHost) awaitPermission(d Device) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()
	deadline := time.After(h.pollTimeout)

	granted := false
loop:
	for {
		select {
		case <-ticker.C:
			if h.HasPermission(d) {
				granted = true
				break loop
			}
		case <-deadline:
			break loop
		}
	}

	h.mu.Lock()
	delete(h.pending, d.ID)
	handler := h.handler
	h.mu.Unlock()

	h.logger.Info().Str("device", d.ID).Bool("granted", granted).Msg("Permission request finished")
	if handler != nil {
		handler(d.ID, granted)
	}
}

func (h *SystemHost) ReadDescriptors(d Device) (Descriptors, error) {
	return readUSBDescriptors(d)
}

func (h *SystemHost) OpenPort(path string, cfg PortConfig) (Port, error) {
	return OpenPort(path, cfg)
}
