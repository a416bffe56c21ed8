package irbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// socketSession is one Open..Close cycle of a SocketChannel
type socketSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	connectDone chan struct{}
	readerDone  chan struct{}
}

// SocketChannel bridges to a TCP peer, listening or dialing according to
// the tcp.* configuration read on every Open
type SocketChannel struct {
	cfg    Config
	store  Store
	logger zerolog.Logger
	queue  *ByteQueue
	stats  channelStats

	// mu serialises Open and Close
	mu      sync.Mutex
	session *socketSession

	// connMu guards the socket handles
	connMu   sync.RWMutex
	listener net.Listener
	conn     net.Conn

	open       atomic.Bool
	connecting atomic.Bool
	stopping   atomic.Bool
	disposed   atomic.Bool
}

var _ Channel = (*SocketChannel)(nil)

// NewSocketChannel creates an idle socket channel
func NewSocketChannel(store Store, cfg Config) *SocketChannel {
	return &SocketChannel{
		cfg:    cfg,
		store:  store,
		logger: cfg.Logger.With().Str("channel", KindTCP.String()).Logger(),
		queue:  NewByteQueue(cfg.QueueCapacity),
	}
}

func (c *SocketChannel) Kind() Kind { return KindTCP }

func (c *SocketChannel) Stats() Stats { return c.stats.snapshot() }

// IsAvailable is always true: a peer may appear at any time
func (c *SocketChannel) IsAvailable() bool { return true }

// Open starts listening or dialing in the background and returns true. It
// does not wait for a peer; poll IsOpen.
func (c *SocketChannel) Open() bool {
	if c.disposed.Load() {
		return false
	}
	if c.open.Load() || c.connecting.Load() {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open.Load() || c.connecting.Load() {
		return true
	}

	// A previous session may have ended with the peer
	c.teardownLocked()

	tcp := LoadTCPConfig(c.store)
	ctx, cancel := context.WithCancel(context.Background())
	s := &socketSession{
		ctx:         ctx,
		cancel:      cancel,
		connectDone: make(chan struct{}),
		readerDone:  make(chan struct{}),
	}
	c.session = s
	c.queue.Clear()
	c.connecting.Store(true)

	go c.connect(s, tcp)
	return true
}

func (c *SocketChannel) connect(s *socketSession, tcp TCPConfig) {
	defer close(s.connectDone)

	var (
		conn net.Conn
		err  error
	)
	if tcp.IsServer {
		conn, err = c.acceptOne(s, tcp.ServerAddress())
	} else {
		conn, err = c.dial(s, tcp.ClientAddress())
	}
	if err != nil {
		if s.ctx.Err() == nil {
			c.logger.Warn().Err(err).Bool("server", tcp.IsServer).Msg("TCP connection failed")
		}
		c.connecting.Store(false)
		close(s.readerDone)
		return
	}

	c.connMu.Lock()
	if s.ctx.Err() != nil {
		c.connMu.Unlock()
		conn.Close()
		close(s.readerDone)
		return
	}
	c.conn = conn
	c.open.Store(true)
	c.connecting.Store(false)
	c.connMu.Unlock()

	c.stats.connects.Inc()
	c.logger.Info().Str("peer", conn.RemoteAddr().String()).Msg("TCP channel open")

	go c.readLoop(s, conn)
}

// acceptOne listens on addr and returns the first client, re-arming the
// accept deadline until then
func (c *SocketChannel) acceptOne(s *socketSession, addr string) (net.Conn, error) {
	lc := listenConfig()
	ln, err := lc.Listen(s.ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	c.connMu.Lock()
	if s.ctx.Err() != nil {
		c.connMu.Unlock()
		ln.Close()
		return nil, s.ctx.Err()
	}
	c.listener = ln
	c.connMu.Unlock()

	c.logger.Debug().Str("addr", ln.Addr().String()).Msg("Waiting for TCP client")

	tl, _ := ln.(*net.TCPListener)
	for {
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}
		if tl != nil {
			tl.SetDeadline(time.Now().Add(c.cfg.AcceptTimeout))
		}

		conn, err := ln.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if s.ctx.Err() != nil {
				return nil, s.ctx.Err()
			}
			return nil, fmt.Errorf("accept on %s: %w", addr, err)
		}
		return conn, nil
	}
}

func (c *SocketChannel) dial(s *socketSession, addr string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(s.ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return conn, nil
}

func (c *SocketChannel) readLoop(s *socketSession, conn net.Conn) {
	defer close(s.readerDone)
	c.logger.Debug().Msg("TCP reader started")
	defer c.logger.Debug().Msg("TCP reader stopped")

	buf := make([]byte, 1024)
	for s.ctx.Err() == nil && c.open.Load() {
		conn.SetReadDeadline(time.Now().Add(c.cfg.SocketReadTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			c.stats.received(n, c.queue.PushAll(buf[:n]))
		}
		if err == nil {
			continue
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			runtime.Gosched()
			continue
		}
		if s.ctx.Err() != nil || c.stopping.Load() {
			return
		}
		if errors.Is(err, io.EOF) {
			c.logger.Info().Msg("TCP peer closed the connection")
		} else {
			c.stats.readErrors.Inc()
			c.logger.Warn().Err(err).Msg("TCP read failed, closing channel")
		}
		c.markClosed()
		return
	}
}

func (c *SocketChannel) markClosed() {
	if c.open.CompareAndSwap(true, false) {
		c.stats.disconnects.Inc()
	}
}

// Close cancels the session, closes both sockets and waits a bounded time
// for the goroutines
func (c *SocketChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

func (c *SocketChannel) teardownLocked() {
	s := c.session
	if s == nil {
		c.queue.Clear()
		return
	}
	c.stopping.Store(true)
	s.cancel()

	c.connMu.Lock()
	ln, conn := c.listener, c.conn
	c.listener, c.conn = nil, nil
	wasOpen := c.open.Swap(false)
	c.connMu.Unlock()

	if ln != nil {
		ln.Close()
	}
	if conn != nil {
		conn.Close()
	}
	if wasOpen {
		c.stats.disconnects.Inc()
		c.logger.Info().Msg("TCP channel closed")
	}

	if !joinTimeout(s.connectDone, c.cfg.JoinTimeout) {
		c.logger.Warn().Msg("TCP connect goroutine did not stop in time")
	}
	if !joinTimeout(s.readerDone, c.cfg.JoinTimeout) {
		c.logger.Warn().Msg("TCP reader did not stop in time")
	}

	c.session = nil
	c.queue.Clear()
	c.connecting.Store(false)
	c.stopping.Store(false)
}

// Write sends all of data within the write timeout. A failed write closes
// the channel.
func (c *SocketChannel) Write(data []byte) int {
	if !c.open.Load() {
		return -1
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return -1
	}

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	n, err := conn.Write(data)
	if err != nil {
		c.stats.writeErrors.Inc()
		c.logger.Warn().Err(err).Msg("TCP write failed, closing channel")
		c.markClosed()
		return -1
	}
	c.stats.bytesSent.Add(uint64(n))
	return n
}

func (c *SocketChannel) Read(buf []byte) int {
	return c.queue.Drain(buf)
}

func (c *SocketChannel) IsOpen() bool {
	return c.open.Load()
}

// IsConnecting reports whether an accept or dial is in progress
func (c *SocketChannel) IsConnecting() bool {
	return c.connecting.Load()
}

func (c *SocketChannel) HasDataAvailable() bool {
	return !c.queue.IsEmpty()
}

// LocalAddr returns the listening address while the server role waits or
// serves, nil otherwise
func (c *SocketChannel) LocalAddr() net.Addr {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	if c.listener != nil {
		return c.listener.Addr()
	}
	return nil
}

func (c *SocketChannel) Dispose() {
	c.disposed.Store(true)
	c.Close()
}
