package unix

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/transport"
	"github.com/ValentinKolb/goporto/rpc/transport/base"
	"net"
	"os"
)

const (
	defaultBufferSize = 64 * 1024

	// socketMode lets every local user talk to the daemon, as the real daemon does
	socketMode os.FileMode = 0o666
)

// serverConnector listens on a filesystem socket for test daemons
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	path := config.Endpoint
	if err := checkSocketPath(path); err != nil {
		return nil, err
	}

	// a socket left behind by a crashed daemon blocks the bind; anything else is not ours
	if info, err := os.Lstat(path); err == nil {
		if info.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("%s exists and is not a socket", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket %s: %v", path, err)
		}
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %v", path, err)
	}
	listener.SetUnlinkOnClose(true)

	if err := os.Chmod(path, socketMode); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to chmod %s: %v", path, err)
	}
	return listener, nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixDefaultServerTransport creates a server transport with 64 KB connection buffers
func NewUnixDefaultServerTransport() transport.IRPCServerTransport {
	return NewUnixServerTransport(defaultBufferSize)
}

// NewUnixServerTransport creates a server transport with bufferSize bytes of read and
// write buffer per connection
func NewUnixServerTransport(bufferSize int) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, bufferSize)
}
