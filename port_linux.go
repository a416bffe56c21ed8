package irbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// termiosSpeeds maps line speeds to the termios constants the driver accepts
var termiosSpeeds = map[int]uint32{
	1200:    unix.B1200,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	3000000: unix.B3000000,
	4000000: unix.B4000000,
}

func validBaudRate(rate int) bool {
	_, ok := termiosSpeeds[rate]
	return ok
}

// ttyPort drives a tty through raw termios ioctls
type ttyPort struct {
	mu     sync.RWMutex
	fd     int
	path   string
	closed bool
}

var _ Port = (*ttyPort)(nil)

// OpenPort opens the tty at path in raw 8N1 mode
func OpenPort(path string, cfg PortConfig) (Port, error) {
	speed, ok := termiosSpeeds[cfg.BaudRate]
	if !ok {
		return nil, ErrInvalidBaudRate
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENODEV) {
			return nil, fmt.Errorf("failed to open %s: %w", path, ErrNoDevice)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if err := configureTTY(fd, speed, cfg.readTimeoutTenths()); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &ttyPort{fd: fd, path: path}, nil
}

func configureTTY(fd int, speed uint32, vtime uint8) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	termios.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	// Reads return after VTIME tenths with whatever arrived, possibly nothing
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = vtime

	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | speed
	termios.Ispeed = speed
	termios.Ospeed = speed

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

func (p *ttyPort) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	n, err := unix.Read(p.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (p *ttyPort) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return unix.Write(p.fd, data)
}

func (p *ttyPort) WriteContext(ctx context.Context, data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	fd := p.fd
	return writeWithContext(ctx, data, func(b []byte) (int, error) {
		return unix.Write(fd, b)
	})
}

func (p *ttyPort) SetDTR(state bool) error {
	return p.setModemBits(unix.TIOCM_DTR, state)
}

func (p *ttyPort) SetRTS(state bool) error {
	return p.setModemBits(unix.TIOCM_RTS, state)
}

func (p *ttyPort) setModemBits(bits int, state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	if state {
		return unix.IoctlSetInt(p.fd, unix.TIOCMBIS, bits)
	}
	return unix.IoctlSetInt(p.fd, unix.TIOCMBIC, bits)
}

// FlushInput discards bytes received but not yet read
func (p *ttyPort) FlushInput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}
	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH)
}

func (p *ttyPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	return unix.Close(p.fd)
}
