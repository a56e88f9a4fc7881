package client

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var (
	Logger = logger.GetLogger("rpc")
)

// call performs exactly one framed exchange for req.
// A zero timeout selects the configured default, a negative one disables the deadline.
// Only the connect phase is retried; once request bytes may have reached the daemon
// the failure is returned as is.
func (c *Connection) call(req *common.Request, timeout time.Duration) (*common.Response, error) {
	op := req.Kind()
	start := time.Now()

	resp, err := c.exchange(op, req, timeout)

	observeCall(op, start, err)
	if err != nil {
		Logger.Debugf("%s failed after %s: %v", op, time.Since(start), err)
	} else {
		Logger.Debugf("%s took %s", op, time.Since(start))
	}
	return resp, err
}

func (c *Connection) exchange(op string, req *common.Request, timeout time.Duration) (*common.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := c.deadline(timeout)

	if !c.transport.Connected() {
		if !c.config.AutoReconnect {
			c.setState(Disconnected)
			return nil, common.NewError(common.SocketError, "not connected to "+c.config.SocketPath)
		}
		if err := c.connectLocked(deadline, true); err != nil {
			return nil, err
		}
	}

	payload, err := c.serializer.Serialize(req)
	if err != nil {
		return nil, common.WrapError(common.InvalidData, err, "cannot encode %s request", op)
	}

	if err := transport.WriteFrame(c.transport, payload, deadline); err != nil {
		c.settleLocked()
		return nil, err
	}

	data, err := transport.ReadFrame(c.transport, deadline)
	if err != nil {
		c.settleLocked()
		return nil, err
	}

	resp := &common.Response{}
	if err := c.serializer.Deserialize(data, resp); err != nil {
		// the stream position can no longer be trusted
		_ = c.transport.Close()
		c.setState(Disconnected)
		return nil, common.WrapError(common.SocketError, err, "undecodable %s response from %s", op, c.config.SocketPath)
	}

	if resp.Error != common.Success {
		return nil, c.registry.Create(resp.Error, resp.ErrorMsg)
	}
	return resp, nil
}

// settleLocked updates the state after a failed exchange. I/O errors close the
// transport, a request rejected before it was written leaves the socket usable.
func (c *Connection) settleLocked() {
	if !c.transport.Connected() {
		c.setState(Disconnected)
	}
}

// deadline converts a call timeout into an absolute deadline (zero means none)
func (c *Connection) deadline(timeout time.Duration) time.Time {
	if timeout == 0 {
		timeout = c.config.Timeout()
	}
	if timeout < 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// connectLocked dials the daemon. With retry set, failed attempts are repeated every
// ConnectRetryInterval while the deadline leaves room for another attempt.
// A Disconnect that runs during the dial wins: the fresh socket is closed again.
// Must be called with c.mu held.
func (c *Connection) connectLocked(deadline time.Time, retry bool) error {
	c.setState(Connecting)
	interval := c.config.ConnectRetryInterval()
	generation := c.generation.Load()

	for {
		c.attempts.Add(1)
		connectsTotal.Inc()

		err := c.transport.Connect(c.config, deadline)
		if err == nil && c.generation.Load() != generation {
			_ = c.transport.Close()
			c.setState(Disconnected)
			return common.NewError(common.SocketError, "disconnected while connecting to "+c.config.SocketPath)
		}
		if err == nil {
			c.setState(Connected)
			Logger.Debugf("Connected to %s after %d attempts", c.config.SocketPath, c.attempts.Load())
			return nil
		}
		connectFailuresTotal.Inc()

		if !retry || deadline.IsZero() {
			c.setState(Disconnected)
			return err
		}
		if time.Until(deadline) <= interval {
			c.setState(Disconnected)
			if common.IsTimeout(err) {
				return err
			}
			return common.WrapError(common.SocketTimeout, err, "timeout connecting to %s: %v", c.config.SocketPath, err)
		}

		Logger.Debugf("Connect to %s failed, retrying in %s: %v", c.config.SocketPath, interval, err)
		time.Sleep(interval)
	}
}
