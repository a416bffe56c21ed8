package irbridge

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakePort is an in-memory Port. Read waits up to the read timeout like a
// tty with VMIN=0.
type fakePort struct {
	timeout time.Duration
	rx      chan []byte
	readErr chan error
	closeCh chan struct{}

	mu       sync.Mutex
	written  []byte
	writeErr error
	dtr, rts bool
	flushes  int
	closed   bool
}

func newFakePort(timeout time.Duration) *fakePort {
	return &fakePort{
		timeout: timeout,
		rx:      make(chan []byte, 16),
		readErr: make(chan error, 1),
		closeCh: make(chan struct{}),
	}
}

func (p *fakePort) Read(buf []byte) (int, error) {
	select {
	case data := <-p.rx:
		return copy(buf, data), nil
	case err := <-p.readErr:
		return 0, err
	case <-p.closeCh:
		return 0, ErrPortClosed
	case <-time.After(p.timeout):
		return 0, nil
	}
}

func (p *fakePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, data...)
	return len(data), nil
}

func (p *fakePort) WriteContext(ctx context.Context, data []byte) (int, error) {
	return writeWithContext(ctx, data, p.Write)
}

func (p *fakePort) SetDTR(state bool) error {
	p.mu.Lock()
	p.dtr = state
	p.mu.Unlock()
	return nil
}

func (p *fakePort) SetRTS(state bool) error {
	p.mu.Lock()
	p.rts = state
	p.mu.Unlock()
	return nil
}

func (p *fakePort) FlushInput() error {
	p.mu.Lock()
	p.flushes++
	p.mu.Unlock()
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	close(p.closeCh)
	return nil
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePort) writtenBytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written...)
}

// fakeHost is a USBHost over a fixed device list
type fakeHost struct {
	mu        sync.Mutex
	devices   []Device
	permitted bool
	requests  int
	lists     int
	desc      *Descriptors
	openErr   error
	opened    []string
	ports     []*fakePort

	// when set, OpenPort signals entered and waits for gate
	entered chan struct{}
	gate    chan struct{}
}

func (h *fakeHost) ListDevices() ([]Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lists++
	return append([]Device(nil), h.devices...), nil
}

func (h *fakeHost) HasPermission(d Device) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.permitted
}

func (h *fakeHost) RequestPermission(d Device) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests++
	return nil
}

func (h *fakeHost) ReadDescriptors(d Device) (Descriptors, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.desc == nil {
		return Descriptors{}, ErrDescriptorsNotRead
	}
	return *h.desc, nil
}

func (h *fakeHost) OpenPort(path string, cfg PortConfig) (Port, error) {
	h.mu.Lock()
	entered, gate := h.entered, h.gate
	h.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.openErr != nil {
		return nil, h.openErr
	}
	p := newFakePort(cfg.ReadTimeout)
	h.opened = append(h.opened, path)
	h.ports = append(h.ports, p)
	return p, nil
}

func (h *fakeHost) setDevices(devices ...Device) {
	h.mu.Lock()
	h.devices = devices
	h.mu.Unlock()
}

func (h *fakeHost) setPermitted(permitted bool) {
	h.mu.Lock()
	h.permitted = permitted
	h.mu.Unlock()
}

func (h *fakeHost) requestCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests
}

func (h *fakeHost) openedPaths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.opened...)
}

func (h *fakeHost) lastPort() *fakePort {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.ports) == 0 {
		return nil
	}
	return h.ports[len(h.ports)-1]
}

// irDongle is a single-port SigmaTel IrDA adapter
var irDongle = Device{
	ID:        "066f-4200-IR1",
	VendorID:  0x066f,
	ProductID: 0x4200,
	Ports:     []DevicePort{{Path: "/dev/ttyUSB0", Interface: 0}},
}

// dualPort is an FT2232 with the IR transceiver on the second port
var dualPort = Device{
	ID:        "0403-6010-FT1",
	VendorID:  0x0403,
	ProductID: 0x6010,
	Ports: []DevicePort{
		{Path: "/dev/ttyUSB0", Interface: 0},
		{Path: "/dev/ttyUSB1", Interface: 1},
	},
}

// testConfig returns fast timeouts and the given host
func testConfig(host USBHost) Config {
	cfg := DefaultConfig()
	cfg.Host = host
	cfg.AcceptTimeout = 50 * time.Millisecond
	cfg.ConnectTimeout = time.Second
	cfg.SocketReadTimeout = 20 * time.Millisecond
	cfg.JoinTimeout = time.Second
	return cfg
}

// eventually polls cond until it holds or two seconds pass
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting: %s", msg)
}

// readAll drains ch until want bytes arrived or two seconds pass
func readAll(t *testing.T, ch Channel, want int) []byte {
	t.Helper()
	var got []byte
	buf := make([]byte, 64)
	eventually(t, func() bool {
		n := ch.Read(buf)
		got = append(got, buf[:n]...)
		return len(got) >= want
	}, "channel data")
	return got
}

// transportEvent is one observer notification
type transportEvent struct {
	available bool
	label     string
}

type recordingObserver struct {
	mu     sync.Mutex
	events []transportEvent
}

func (o *recordingObserver) OnTransportChanged(available bool, label string) {
	o.mu.Lock()
	o.events = append(o.events, transportEvent{available, label})
	o.mu.Unlock()
}

func (o *recordingObserver) all() []transportEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]transportEvent(nil), o.events...)
}
