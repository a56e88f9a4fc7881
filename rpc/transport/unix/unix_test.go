package unix

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/transport"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// socketPath returns a short socket path, t.TempDir() may exceed the sun_path limit
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "gpt")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func startEchoServer(t *testing.T) string {
	t.Helper()
	endpoint := socketPath(t)

	srv := NewUnixServerTransport(1024)
	srv.RegisterHandler(func(req []byte) []byte {
		return append([]byte(nil), req...)
	})
	if err := srv.Listen(common.ServerConfig{Endpoint: endpoint, TimeoutSecond: 5}); err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return endpoint
}

// startRawServer accepts connections and hands them to fn
func startRawServer(t *testing.T, fn func(conn net.Conn)) string {
	t.Helper()
	endpoint := socketPath(t)
	l, err := net.Listen("unix", endpoint)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go fn(conn)
		}
	}()
	return endpoint
}

func connect(t *testing.T, endpoint string) transport.IRPCClientTransport {
	t.Helper()
	c := NewUnixClientTransport()
	config := common.DefaultClientConfig()
	config.SocketPath = endpoint
	if err := c.Connect(config, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func requireCode(t *testing.T, err error, code common.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if got := common.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	c := connect(t, startEchoServer(t))

	// sizes around the varint boundaries and above the server buffer
	for _, size := range []int{0, 1, 127, 128, 1023, 1024, 16384, 300000} {
		payload := bytes.Repeat([]byte{byte(size)}, size)
		if err := transport.WriteFrame(c, payload, time.Now().Add(time.Second)); err != nil {
			t.Fatalf("size %d: write failed: %v", size, err)
		}
		got, err := transport.ReadFrame(c, time.Now().Add(time.Second))
		if err != nil {
			t.Fatalf("size %d: read failed: %v", size, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("size %d: echo differs (got %d bytes)", size, len(got))
		}
	}

	if c.Name() != "unix" {
		t.Errorf("expected transport name unix, got %s", c.Name())
	}
}

func TestConnectMissingSocket(t *testing.T) {
	c := NewUnixClientTransport()
	config := common.DefaultClientConfig()
	config.SocketPath = filepath.Join(socketPath(t)+".missing", "none.sock")

	err := c.Connect(config, time.Now().Add(time.Second))
	requireCode(t, err, common.SocketUnavailable)
	if c.Connected() {
		t.Error("transport reports connected after failed connect")
	}

	config.SocketPath = ""
	requireCode(t, c.Connect(config, time.Time{}), common.SocketUnavailable)
}

func TestNotConnected(t *testing.T) {
	c := NewUnixClientTransport()
	requireCode(t, c.Send([]byte{1}, time.Time{}), common.SocketError)
	_, err := c.Receive(1, time.Time{})
	requireCode(t, err, common.SocketError)
}

func TestElapsedDeadline(t *testing.T) {
	c := connect(t, startEchoServer(t))

	err := transport.WriteFrame(c, []byte("late"), time.Now().Add(-time.Millisecond))
	requireCode(t, err, common.SocketTimeout)
	if c.Connected() {
		t.Error("transport must be closed after a timeout")
	}
}

func TestUnresponsivePeer(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	endpoint := startRawServer(t, func(conn net.Conn) {
		<-hold
		_ = conn.Close()
	})
	c := connect(t, endpoint)

	if err := transport.WriteFrame(c, []byte("ping"), time.Now().Add(time.Second)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	start := time.Now()
	_, err := transport.ReadFrame(c, time.Now().Add(100*time.Millisecond))
	requireCode(t, err, common.SocketTimeout)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("read returned after %s, deadline was 100ms", elapsed)
	}
	if c.Connected() {
		t.Error("transport must be closed after a timeout")
	}
}

func TestPeerClosed(t *testing.T) {
	endpoint := startRawServer(t, func(conn net.Conn) {
		_ = conn.Close()
	})
	c := connect(t, endpoint)

	_, err := transport.ReadFrame(c, time.Now().Add(time.Second))
	requireCode(t, err, common.SocketError)
	if !errors.Is(err, common.ErrSocketError) {
		t.Errorf("expected errors.Is to match the SocketError sentinel")
	}
}

func TestMalformedLength(t *testing.T) {
	endpoint := startRawServer(t, func(conn net.Conn) {
		_, _ = conn.Write(bytes.Repeat([]byte{0xff}, 12))
	})
	c := connect(t, endpoint)

	_, err := transport.ReadFrame(c, time.Now().Add(time.Second))
	requireCode(t, err, common.SocketError)
	if c.Connected() {
		t.Error("transport must be closed after a malformed frame")
	}
}

func TestServerClose(t *testing.T) {
	endpoint := socketPath(t)
	srv := NewUnixDefaultServerTransport()
	if err := srv.Listen(common.ServerConfig{Endpoint: endpoint}); err == nil {
		t.Fatal("listen without handler must fail")
	}

	srv.RegisterHandler(func(req []byte) []byte { return req })
	if err := srv.Listen(common.ServerConfig{Endpoint: endpoint}); err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	c := connect(t, endpoint)

	if err := srv.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	_, err := transport.ReadFrame(c, time.Now().Add(time.Second))
	requireCode(t, err, common.SocketError)
}

func TestListenReplacesStaleSocket(t *testing.T) {
	endpoint := socketPath(t)

	// leave a socket file behind without a listener
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: endpoint, Net: "unix"})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	l.SetUnlinkOnClose(false)
	_ = l.Close()

	srv := NewUnixDefaultServerTransport()
	srv.RegisterHandler(func(req []byte) []byte { return req })
	if err := srv.Listen(common.ServerConfig{Endpoint: endpoint}); err != nil {
		t.Fatalf("listen over stale socket failed: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	info, err := os.Stat(endpoint)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != socketMode {
		t.Errorf("socket mode = %v, want %v", info.Mode().Perm(), socketMode)
	}
	connect(t, endpoint)
}

func TestListenRefusesRegularFile(t *testing.T) {
	endpoint := socketPath(t)
	if err := os.WriteFile(endpoint, []byte("data"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	srv := NewUnixDefaultServerTransport()
	srv.RegisterHandler(func(req []byte) []byte { return req })
	if err := srv.Listen(common.ServerConfig{Endpoint: endpoint}); err == nil {
		_ = srv.Close()
		t.Fatal("listen must not replace a regular file")
	}
	if data, err := os.ReadFile(endpoint); err != nil || string(data) != "data" {
		t.Errorf("regular file was modified: %q, %v", data, err)
	}
}

func TestSocketPathTooLong(t *testing.T) {
	c := NewUnixClientTransport()
	config := common.DefaultClientConfig()
	config.SocketPath = "/tmp/" + string(bytes.Repeat([]byte("x"), maxSocketPath))

	requireCode(t, c.Connect(config, time.Now().Add(time.Second)), common.SocketUnavailable)
}
