package client

import (
	"github.com/ValentinKolb/goporto/internal/daemontest"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/serializer"
	"github.com/ValentinKolb/goporto/rpc/transport/unix"
	"github.com/ValentinKolb/goporto/rpc/varint"
	"github.com/stretchr/testify/require"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testSerializers are the codecs every end to end test runs with
var testSerializers = map[string]func() serializer.IRPCSerializer{
	"Protobuf": serializer.NewProtobufSerializer,
	"JSON":     serializer.NewJSONSerializer,
}

// newTestConnection starts an in-memory daemon and returns a connected client
func newTestConnection(t *testing.T, factory func() serializer.IRPCSerializer) (*daemontest.Daemon, *Connection) {
	t.Helper()
	d, config := daemontest.Start(t, factory())
	conn := NewConnection(config, unix.NewUnixClientTransport(), factory(), nil)
	require.NoError(t, conn.Connect())
	t.Cleanup(func() { _ = conn.Disconnect() })
	return d, conn
}

// secondConnection opens another client to the daemon of conn
func secondConnection(t *testing.T, conn *Connection) *Connection {
	t.Helper()
	other := NewConnection(conn.Config(), unix.NewUnixClientTransport(), serializer.NewProtobufSerializer(), nil)
	require.NoError(t, other.Connect())
	t.Cleanup(func() { _ = other.Disconnect() })
	return other
}

// --------------------------------------------------------------------------
// Mock Transport
// --------------------------------------------------------------------------

// mockTransport answers framed requests in memory. It records the order of
// sends and completed receives so that overlapping exchanges can be detected.
type mockTransport struct {
	serializer serializer.IRPCSerializer
	handle     func(req *common.Request) *common.Response
	// delay is slept inside Send to widen any race window
	delay time.Duration
	// silent transports never answer
	silent bool
	// connectErr fails every Connect
	connectErr error
	// dialing runs inside Connect before the socket counts as open
	dialing func()

	mu        sync.Mutex
	connected bool
	closed    chan struct{}
	pending   []byte
	log       []string

	inFlight atomic.Int32
	overlaps atomic.Int32
	requests atomic.Int32
	connects atomic.Int32
}

func newMockTransport(handle func(req *common.Request) *common.Response) *mockTransport {
	return &mockTransport{
		serializer: serializer.NewProtobufSerializer(),
		handle:     handle,
		closed:     make(chan struct{}),
	}
}

func (m *mockTransport) Connect(_ common.ClientConfig, _ time.Time) error {
	m.connects.Add(1)
	if m.connectErr != nil {
		return m.connectErr
	}
	if m.dialing != nil {
		m.dialing()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	m.closed = make(chan struct{})
	m.pending = nil
	return nil
}

func (m *mockTransport) Send(data []byte, deadline time.Time) error {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return common.NewError(common.SocketTimeout, "mock deadline exceeded")
	}
	if m.inFlight.Add(1) > 1 {
		m.overlaps.Add(1)
	}
	m.record("send")
	time.Sleep(m.delay)

	size, n, err := varint.Decode(data, 0, varint.Bits32)
	if err != nil || int(size) != len(data)-n {
		return common.NewError(common.SocketError, "mock received a broken frame")
	}
	req := &common.Request{}
	if err := m.serializer.Deserialize(data[n:], req); err != nil {
		return common.WrapError(common.SocketError, err, "mock cannot decode request")
	}
	m.requests.Add(1)
	if m.silent {
		return nil
	}

	payload, err := m.serializer.Serialize(m.handle(req))
	if err != nil {
		return common.WrapError(common.SocketError, err, "mock cannot encode response")
	}
	m.mu.Lock()
	m.pending = append(varint.Encode(uint64(len(payload))), payload...)
	m.mu.Unlock()
	return nil
}

func (m *mockTransport) Receive(n int, deadline time.Time) ([]byte, error) {
	m.mu.Lock()
	if len(m.pending) == 0 {
		closed := m.closed
		m.mu.Unlock()

		var expired <-chan time.Time
		if !deadline.IsZero() {
			timer := time.NewTimer(time.Until(deadline))
			defer timer.Stop()
			expired = timer.C
		}
		select {
		case <-closed:
			return nil, common.NewError(common.SocketError, "mock closed")
		case <-expired:
			_ = m.Close()
			return nil, common.NewError(common.SocketTimeout, "mock deadline exceeded")
		}
	}
	defer m.mu.Unlock()

	if n > len(m.pending) {
		return nil, common.NewError(common.SocketError, "mock short read")
	}
	out := m.pending[:n]
	m.pending = m.pending[n:]
	if len(m.pending) == 0 {
		m.log = append(m.log, "receive")
		m.inFlight.Add(-1)
	}
	return out, nil
}

func (m *mockTransport) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		m.connected = false
		close(m.closed)
	}
	return nil
}

func (m *mockTransport) Name() string {
	return "mock"
}

func (m *mockTransport) record(event string) {
	m.mu.Lock()
	m.log = append(m.log, event)
	m.mu.Unlock()
}

func (m *mockTransport) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.log...)
}

// versionHandler answers every request with a version response
func versionHandler(req *common.Request) *common.Response {
	if req.Version == nil {
		return common.NewErrorResponse(common.InvalidMethod, "unexpected "+req.Kind())
	}
	return &common.Response{Version: &common.VersionResponse{Tag: "mock", Revision: "1"}}
}

func newMockConnection(m *mockTransport) *Connection {
	config := common.DefaultClientConfig()
	config.SocketPath = "/mock.socket"
	config.TimeoutSecond = 5
	config.ConnectRetryMs = 10
	return NewConnection(config, m, m.serializer, nil)
}
