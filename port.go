package irbridge

import (
	"context"
	"time"
)

// Port is an open serial line. Read returns (0, nil) when the read timeout
// expires without data, so callers can poll without treating it as an error.
type Port interface {
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)
	SetDTR(state bool) error
	SetRTS(state bool) error
	FlushInput() error
	Close() error
}

// PortConfig is the line discipline applied when a port is opened. Data
// bits, stop bits and parity are fixed at 8N1.
type PortConfig struct {
	BaudRate    int
	ReadTimeout time.Duration
}

// readTimeoutTenths converts the timeout to the VTIME unit, clamped to the
// 1..255 range the driver accepts
func (c PortConfig) readTimeoutTenths() uint8 {
	tenths := c.ReadTimeout / (100 * time.Millisecond)
	if tenths < 1 {
		return 1
	}
	if tenths > 255 {
		return 255
	}
	return uint8(tenths)
}

type writeResult struct {
	n   int
	err error
}

// writeWithContext runs write on its own goroutine so a stalled line cannot
// hold the caller past ctx. The goroutine finishes on its own once the
// driver gives up or the port is closed.
func writeWithContext(ctx context.Context, data []byte, write func([]byte) (int, error)) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	resultCh := make(chan writeResult, 1)
	go func() {
		n, err := write(data)
		resultCh <- writeResult{n: n, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.n, result.err
	case <-ctx.Done():
		return 0, ErrWriteTimeout
	}
}
