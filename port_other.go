//go:build !linux

package irbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tarm/serial"
)

func validBaudRate(rate int) bool {
	return rate > 0
}

// tarmPort is the portable fallback for hosts without the termios path.
// Modem control lines are not exposed by tarm/serial, so SetDTR and SetRTS
// are no-ops there.
type tarmPort struct {
	mu     sync.RWMutex
	port   *serial.Port
	closed bool
}

var _ Port = (*tarmPort)(nil)

// OpenPort opens the device at path in 8N1 mode
func OpenPort(path string, cfg PortConfig) (Port, error) {
	if !validBaudRate(cfg.BaudRate) {
		return nil, ErrInvalidBaudRate
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        path,
		Baud:        cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &tarmPort{port: p}, nil
}

func (p *tarmPort) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	n, err := p.port.Read(buf)
	// tarm reports an expired read timeout as io.EOF
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

func (p *tarmPort) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return p.port.Write(data)
}

func (p *tarmPort) WriteContext(ctx context.Context, data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return writeWithContext(ctx, data, p.port.Write)
}

func (p *tarmPort) SetDTR(bool) error { return nil }

func (p *tarmPort) SetRTS(bool) error { return nil }

func (p *tarmPort) FlushInput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}
	return p.port.Flush()
}

func (p *tarmPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	return p.port.Close()
}
