package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"sync"
	"time"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint.
	// A zero timeout means the dial is not time bounded.
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium.
// The connection field is guarded by connMu, the I/O itself runs outside the lock
// so that Close can interrupt a blocked Send or Receive.
type clientTransport struct {
	connector IClientConnector
	endpoint  string
	conn      net.Conn
	connMu    sync.Mutex
}

// -----------------------------------------------------------
// Transport Factory Method
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig, deadline time.Time) error {
	if config.SocketPath == "" {
		return common.NewError(common.SocketUnavailable, "no socket path configured")
	}

	// Drop any previous connection
	_ = t.Close()

	timeout, err := remaining(deadline)
	if err != nil {
		return err
	}

	conn, err := t.connector.Connect(config.SocketPath, timeout)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return common.WrapError(common.SocketTimeout, err, "timeout connecting to %s", config.SocketPath)
		}
		return common.WrapError(common.SocketUnavailable, err, "cannot connect to %s", config.SocketPath)
	}

	t.connMu.Lock()
	t.conn = conn
	t.endpoint = config.SocketPath
	t.connMu.Unlock()

	Logger.Debugf("Connected to %s using %s transport", config.SocketPath, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(data []byte, deadline time.Time) error {
	conn, err := t.current()
	if err != nil {
		return err
	}

	for written := 0; written < len(data); {
		if err := t.applyDeadline(conn.SetWriteDeadline, deadline); err != nil {
			return err
		}
		n, err := conn.Write(data[written:])
		written += n
		if err != nil {
			return t.fail(err, "send")
		}
	}
	return nil
}

func (t *clientTransport) Receive(n int, deadline time.Time) ([]byte, error) {
	conn, err := t.current()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	for got := 0; got < n; {
		if err := t.applyDeadline(conn.SetReadDeadline, deadline); err != nil {
			return nil, err
		}
		m, err := conn.Read(buf[got:])
		got += m
		if got == n {
			break
		}
		if err != nil {
			return nil, t.fail(err, "receive")
		}
		if m == 0 {
			// a read without progress and without error is a dead peer
			return nil, t.fail(io.ErrUnexpectedEOF, "receive")
		}
	}
	return buf, nil
}

func (t *clientTransport) Connected() bool {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.conn != nil
}

func (t *clientTransport) Close() error {
	t.connMu.Lock()
	conn := t.conn
	t.conn = nil
	t.connMu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (t *clientTransport) Name() string {
	return t.connector.GetName()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// current returns the open connection or a SocketError
func (t *clientTransport) current() (net.Conn, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == nil {
		return nil, common.NewError(common.SocketError, "not connected")
	}
	return t.conn, nil
}

// applyDeadline fails with SocketTimeout when the deadline already passed,
// otherwise it arms the connection deadline right before the next I/O call
func (t *clientTransport) applyDeadline(set func(time.Time) error, deadline time.Time) error {
	if _, err := remaining(deadline); err != nil {
		_ = t.Close()
		return err
	}
	if err := set(deadline); err != nil {
		return t.fail(err, "set deadline")
	}
	return nil
}

// fail closes the transport and classifies the I/O error
func (t *clientTransport) fail(err error, op string) error {
	t.connMu.Lock()
	endpoint := t.endpoint
	t.connMu.Unlock()
	_ = t.Close()

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return common.WrapError(common.SocketTimeout, err, "%s timed out on %s", op, endpoint)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return common.WrapError(common.SocketError, err, "%s on %s: connection reset by peer", op, endpoint)
	default:
		return common.WrapError(common.SocketError, err, "%s failed on %s", op, endpoint)
	}
}

// remaining returns the time left until deadline. A zero deadline yields 0 (unbounded).
func remaining(deadline time.Time) (time.Duration, error) {
	if deadline.IsZero() {
		return 0, nil
	}
	left := time.Until(deadline)
	if left <= 0 {
		return 0, common.NewError(common.SocketTimeout, fmt.Sprintf("deadline exceeded by %s", -left))
	}
	return left, nil
}
