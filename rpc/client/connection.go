package client

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/serializer"
	"github.com/ValentinKolb/goporto/rpc/transport"
	"github.com/ValentinKolb/goporto/rpc/transport/unix"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a Connection
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Connection is a client of one daemon socket.
// All exchanges are serialized by one mutex because responses are matched to
// requests by arrival order only. Use one Connection per concurrent unit of work
// when parallel throughput is needed.
type Connection struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	registry   *common.ErrorRegistry

	mu       sync.Mutex // held for the full send+receive cycle
	state    atomic.Int32
	attempts atomic.Uint64
	// generation counts Disconnect calls, a dial that overlaps one is undone
	generation atomic.Uint64

	subscriptions *xsync.MapOf[uint64, *Subscription]
	nextSubID     atomic.Uint64
}

// NewConnection creates a Connection without connecting it.
// A nil registry selects common.DefaultErrorRegistry.
func NewConnection(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
	registry *common.ErrorRegistry,
) *Connection {
	if registry == nil {
		registry = common.DefaultErrorRegistry
	}
	return &Connection{
		config:        config,
		transport:     transport,
		serializer:    serializer,
		registry:      registry,
		subscriptions: xsync.NewMapOf[uint64, *Subscription](),
	}
}

// Dial creates a Connection over the unix socket of config using the protobuf
// codec and connects it
func Dial(config common.ClientConfig) (*Connection, error) {
	c := NewConnection(config, unix.NewUnixClientTransport(), serializer.NewProtobufSerializer(), nil)
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Connect connects to the daemon, retrying within the default timeout
func (c *Connection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(c.deadline(0), true)
}

// TryConnect makes a single connect attempt bounded by the default timeout
func (c *Connection) TryConnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(c.deadline(0), false)
}

// Disconnect stops all async waiters and closes the socket.
// It does not take the connection lock: an exchange in flight fails with a socket
// error and a connect in progress closes its socket again. Calls made after
// Disconnect returns reconnect as usual if AutoReconnect is set.
func (c *Connection) Disconnect() error {
	c.generation.Add(1)
	c.subscriptions.Range(func(_ uint64, sub *Subscription) bool {
		sub.Unsubscribe()
		return true
	})
	c.setState(Disconnected)
	return c.transport.Close()
}

// State returns the current lifecycle state
func (c *Connection) State() State {
	if c.transport.Connected() {
		return Connected
	}
	if s := State(c.state.Load()); s == Connecting {
		return s
	}
	return Disconnected
}

// Connected reports whether the socket is open
func (c *Connection) Connected() bool {
	return c.transport.Connected()
}

// ConnectAttempts returns the number of dial attempts made so far
func (c *Connection) ConnectAttempts() uint64 {
	return c.attempts.Load()
}

// Config returns the configuration of the connection
func (c *Connection) Config() common.ClientConfig {
	return c.config
}

func (c *Connection) setState(s State) {
	c.state.Store(int32(s))
}

// --------------------------------------------------------------------------
// Daemon Meta Operations
// --------------------------------------------------------------------------

// Version returns the daemon's version tag and revision
func (c *Connection) Version() (tag, revision string, err error) {
	resp, err := c.call(&common.Request{Version: &common.VersionRequest{}}, 0)
	if err != nil {
		return "", "", err
	}
	if resp.Version == nil {
		return "", "", nil
	}
	return resp.Version.Tag, resp.Version.Revision, nil
}

// ListProperties returns the container properties the daemon supports
func (c *Connection) ListProperties() ([]*common.PropertyDescription, error) {
	resp, err := c.call(&common.Request{PropertyList: &common.PropertyListRequest{}}, 0)
	if err != nil {
		return nil, err
	}
	if resp.PropertyList == nil {
		return nil, nil
	}
	return resp.PropertyList.List, nil
}

// ListVolumeProperties returns the volume properties the daemon supports
func (c *Connection) ListVolumeProperties() ([]*common.PropertyDescription, error) {
	resp, err := c.call(&common.Request{ListVolumeProperties: &common.ListVolumePropertiesRequest{}}, 0)
	if err != nil {
		return nil, err
	}
	if resp.VolumePropertyList == nil {
		return nil, nil
	}
	return resp.VolumePropertyList.List, nil
}

// ConvertPath translates path as seen from container source into the view of
// container destination
func (c *Connection) ConvertPath(path, source, destination string) (string, error) {
	req := &common.Request{ConvertPath: &common.ConvertPathRequest{Path: path, Source: source, Destination: destination}}
	resp, err := c.call(req, 0)
	if err != nil {
		return "", err
	}
	if resp.ConvertPath == nil {
		return "", common.NewError(common.InvalidData, "convertPath response without path")
	}
	return resp.ConvertPath.Path, nil
}

// LocateProcess returns the container owning pid. comm is optional and checked
// against the process name by the daemon.
func (c *Connection) LocateProcess(pid uint32, comm string) (*Container, error) {
	req := &common.Request{LocateProcess: &common.LocateProcessRequest{Pid: pid, Comm: comm}}
	resp, err := c.call(req, 0)
	if err != nil {
		return nil, err
	}
	if resp.LocateProcess == nil {
		return nil, common.NewError(common.InvalidData, "locateProcess response without name")
	}
	return c.container(resp.LocateProcess.Name), nil
}
