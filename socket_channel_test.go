package irbridge

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"
)

// freePort returns a loopback port nothing listens on
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func serverStore(port int) *MemoryStore {
	store := NewMemoryStore()
	store.Set(KeyTCPIsServer, true)
	store.Set(KeyTCPServerPort, port)
	return store
}

func clientStore(port int) *MemoryStore {
	store := NewMemoryStore()
	store.Set(KeyTCPIsServer, false)
	store.Set(KeyTCPClientHost, "127.0.0.1")
	store.Set(KeyTCPClientPort, port)
	return store
}

func newTestSocket(t *testing.T, store Store) *SocketChannel {
	t.Helper()
	c := NewSocketChannel(store, testConfig(&fakeHost{}))
	t.Cleanup(c.Dispose)
	return c
}

// dialChannel connects to a server-role channel, retrying until it listens
func dialChannel(t *testing.T, port int) net.Conn {
	t.Helper()
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	var conn net.Conn
	eventually(t, func() bool {
		var err error
		conn, err = net.DialTimeout("tcp", addr, 100*time.Millisecond)
		return err == nil
	}, "server to listen")
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readConn(t *testing.T, conn net.Conn, n int) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("Peer read failed: %v", err)
	}
	return string(buf)
}

func TestSocketChannelServer(t *testing.T) {
	port := freePort(t)
	c := newTestSocket(t, serverStore(port))

	if !c.IsAvailable() {
		t.Error("Expected the socket channel to always be available")
	}
	if !c.Open() {
		t.Fatal("Expected Open to start listening")
	}
	if c.IsOpen() {
		t.Error("Expected the channel to wait for a client")
	}
	if !c.Open() {
		t.Error("Expected a repeated Open to succeed")
	}

	peer := dialChannel(t, port)
	eventually(t, c.IsOpen, "client to be accepted")
	if c.IsConnecting() {
		t.Error("Expected connecting to be cleared")
	}
	if c.LocalAddr() == nil {
		t.Error("Expected the listening address while serving")
	}

	if _, err := peer.Write([]byte("ping")); err != nil {
		t.Fatalf("Peer write failed: %v", err)
	}
	if got := string(readAll(t, c, 4)); got != "ping" {
		t.Errorf("Expected ping, got %q", got)
	}

	if n := c.Write([]byte("pong")); n != 4 {
		t.Errorf("Expected 4 bytes written, got %d", n)
	}
	if got := readConn(t, peer, 4); got != "pong" {
		t.Errorf("Expected pong, got %q", got)
	}

	stats := c.Stats()
	if stats.BytesSent != 4 || stats.BytesReceived != 4 || stats.Connects != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestSocketChannelPeerClose(t *testing.T) {
	port := freePort(t)
	c := newTestSocket(t, serverStore(port))

	c.Open()
	peer := dialChannel(t, port)
	eventually(t, c.IsOpen, "client to be accepted")

	peer.Close()
	eventually(t, func() bool { return !c.IsOpen() }, "channel to notice the peer left")
	if c.Write([]byte("x")) != -1 {
		t.Error("Expected Write to fail after the peer left")
	}
	if c.Stats().Disconnects != 1 {
		t.Errorf("Expected 1 disconnect, got %d", c.Stats().Disconnects)
	}

	// Reopening serves the next client on the same port
	if !c.Open() {
		t.Fatal("Reopen failed")
	}
	dialChannel(t, port)
	eventually(t, c.IsOpen, "second client to be accepted")
}

func TestSocketChannelClient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	c := newTestSocket(t, clientStore(ln.Addr().(*net.TCPAddr).Port))
	if !c.Open() {
		t.Fatal("Expected Open to start dialing")
	}

	var peer net.Conn
	select {
	case peer = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the channel to connect")
	}
	defer peer.Close()
	eventually(t, c.IsOpen, "channel to open")

	if c.LocalAddr() != nil {
		t.Error("Expected no listening address in the client role")
	}

	peer.Write([]byte{0xc0, 0xff, 0xc1})
	got := readAll(t, c, 3)
	if len(got) != 3 || got[0] != 0xc0 || got[2] != 0xc1 {
		t.Errorf("Expected c0 ff c1, got % x", got)
	}

	c.Close()
	if c.IsOpen() {
		t.Error("Expected channel to be closed")
	}
	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := peer.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Expected the peer to see EOF, got %v", err)
	}
}

func TestSocketChannelClientRefused(t *testing.T) {
	c := newTestSocket(t, clientStore(freePort(t)))

	if !c.Open() {
		t.Fatal("Expected Open to start dialing")
	}
	eventually(t, func() bool { return !c.IsConnecting() }, "dial to fail")
	if c.IsOpen() {
		t.Error("Expected the channel to stay closed")
	}
}

func TestSocketChannelCloseWhileListening(t *testing.T) {
	port := freePort(t)
	c := newTestSocket(t, serverStore(port))

	c.Open()
	eventually(t, func() bool { return c.LocalAddr() != nil }, "listener")

	start := time.Now()
	c.Close()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Close took %v", elapsed)
	}
	if c.IsConnecting() || c.IsOpen() || c.LocalAddr() != nil {
		t.Error("Expected the channel to be idle after Close")
	}

	// The port is free again
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("Expected the port to be released: %v", err)
	}
	ln.Close()
}

func TestSocketChannelReadsConfigOnOpen(t *testing.T) {
	first, second := freePort(t), freePort(t)
	store := serverStore(first)
	c := newTestSocket(t, store)

	c.Open()
	dialChannel(t, first)
	eventually(t, c.IsOpen, "first client")
	c.Close()

	store.Set(KeyTCPServerPort, second)
	c.Open()
	dialChannel(t, second)
	eventually(t, c.IsOpen, "client on the new port")
}

func TestSocketChannelDispose(t *testing.T) {
	c := newTestSocket(t, serverStore(freePort(t)))
	c.Dispose()
	if c.Open() {
		t.Error("Expected Open after Dispose to fail")
	}
}
