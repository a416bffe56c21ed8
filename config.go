package irbridge

import (
	"time"

	"github.com/rs/zerolog"
)

// Config holds the tuning of a Bridge and the channels it owns
type Config struct {
	QueueCapacity     int
	BaudRate          int
	ReadTimeout       time.Duration // serial read timeout (VTIME), 100ms steps
	WriteTimeout      time.Duration
	AcceptTimeout     time.Duration // per Accept deadline in the server role
	ConnectTimeout    time.Duration // dial timeout in the client role
	SocketReadTimeout time.Duration
	JoinTimeout       time.Duration // bounded wait for goroutines on Close
	ControlLines      bool          // assert DTR and RTS after opening the tty
	ExtraDeviceIDs    []DeviceID    // appended to the extended signature table
	Logger            zerolog.Logger
	Host              USBHost
	Observer          StatusObserver
}

// Option is a functional option for configuring a Bridge
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		QueueCapacity:     DefaultQueueCapacity,
		BaudRate:          115200,
		ReadTimeout:       100 * time.Millisecond,
		WriteTimeout:      200 * time.Millisecond,
		AcceptTimeout:     500 * time.Millisecond,
		ConnectTimeout:    3 * time.Second,
		SocketReadTimeout: 50 * time.Millisecond,
		JoinTimeout:       500 * time.Millisecond,
		ControlLines:      true,
		Logger:            zerolog.Nop(),
	}
}

// WithQueueCapacity sets the per-channel receive queue size in bytes
func WithQueueCapacity(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return ErrInvalidConfig
		}
		c.QueueCapacity = n
		return nil
	}
}

// WithBaudRate sets the serial line speed
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if !validBaudRate(rate) {
			return ErrInvalidBaudRate
		}
		c.BaudRate = rate
		return nil
	}
}

// WithReadTimeout sets the serial read timeout. The tty driver counts in
// tenths of a second, so the value must be a multiple of 100ms between
// 100ms and 25.5s.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 100*time.Millisecond || timeout > 25500*time.Millisecond {
			return ErrInvalidConfig
		}
		if timeout%(100*time.Millisecond) != 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithWriteTimeout bounds a single Write on either channel
func WithWriteTimeout(timeout time.Duration) Option {
	return positiveDuration(timeout, func(c *Config, d time.Duration) { c.WriteTimeout = d })
}

// WithAcceptTimeout sets how long one Accept waits before re-checking for stop
func WithAcceptTimeout(timeout time.Duration) Option {
	return positiveDuration(timeout, func(c *Config, d time.Duration) { c.AcceptTimeout = d })
}

// WithConnectTimeout bounds the client-role dial
func WithConnectTimeout(timeout time.Duration) Option {
	return positiveDuration(timeout, func(c *Config, d time.Duration) { c.ConnectTimeout = d })
}

// WithSocketReadTimeout sets the per-read deadline of the socket reader
func WithSocketReadTimeout(timeout time.Duration) Option {
	return positiveDuration(timeout, func(c *Config, d time.Duration) { c.SocketReadTimeout = d })
}

// WithJoinTimeout bounds how long Close waits for background goroutines
func WithJoinTimeout(timeout time.Duration) Option {
	return positiveDuration(timeout, func(c *Config, d time.Duration) { c.JoinTimeout = d })
}

func positiveDuration(d time.Duration, set func(*Config, time.Duration)) Option {
	return func(c *Config) error {
		if d <= 0 {
			return ErrInvalidConfig
		}
		set(c, d)
		return nil
	}
}

// WithControlLines controls whether DTR and RTS are asserted on open.
// Many IR dongles are powered from these lines.
func WithControlLines(assert bool) Option {
	return func(c *Config) error {
		c.ControlLines = assert
		return nil
	}
}

// WithExtraDeviceIDs recognises additional vendor/product pairs as serial
// capable, on top of the built-in tables
func WithExtraDeviceIDs(ids ...DeviceID) Option {
	return func(c *Config) error {
		c.ExtraDeviceIDs = append(c.ExtraDeviceIDs, ids...)
		return nil
	}
}

// WithLogger sets the logger used by the bridge and its channels
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithUSBHost replaces the system USB host, mainly for tests and embedders
// that enumerate devices themselves
func WithUSBHost(host USBHost) Option {
	return func(c *Config) error {
		if host == nil {
			return ErrInvalidConfig
		}
		c.Host = host
		return nil
	}
}

// WithStatusObserver registers the receiver of transport change notifications
func WithStatusObserver(observer StatusObserver) Option {
	return func(c *Config) error {
		c.Observer = observer
		return nil
	}
}
