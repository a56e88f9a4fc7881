package unix

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/transport"
	"github.com/ValentinKolb/goporto/rpc/transport/base"
	"net"
	"time"
)

// maxSocketPath is the usable length of sun_path on Linux
const maxSocketPath = 107

// clientConnector dials the daemon's stream socket
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	if err := checkSocketPath(endpoint); err != nil {
		return nil, err
	}
	addr := &net.UnixAddr{Name: endpoint, Net: "unix"}

	// DialUnix has no timeout; a zero Dialer timeout means unbounded as well
	if timeout <= 0 {
		return net.DialUnix("unix", nil, addr)
	}
	dialer := net.Dialer{Timeout: timeout}
	return dialer.Dial(addr.Network(), addr.String())
}

func checkSocketPath(path string) error {
	if path == "" {
		return fmt.Errorf("empty socket path")
	}
	if len(path) > maxSocketPath {
		return fmt.Errorf("socket path %s exceeds %d bytes", path, maxSocketPath)
	}
	return nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixClientTransport returns an unconnected transport to a daemon socket
func NewUnixClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
