package common

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultSocketPath is where the daemon listens by default
	DefaultSocketPath = "/run/portod.socket"
	// DefaultTimeoutSecond is the default per-call budget
	DefaultTimeoutSecond = 300
	// DefaultConnectRetryMs is the pause between connect attempts within one call
	DefaultConnectRetryMs = 100
)

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the parameters of one Connection
type ClientConfig struct {
	// SocketPath is the filesystem path of the daemon's unix stream socket
	SocketPath string
	// TimeoutSecond is the default budget of one call (connect + send + receive).
	// Zero or negative disables the deadline.
	TimeoutSecond int
	// ConnectRetryMs is the backoff between connect attempts while the deadline allows
	ConnectRetryMs int
	// AutoReconnect enables connecting on demand inside a call
	AutoReconnect bool
	// LogLevel is one of debug, info, warn, error
	LogLevel string
}

// DefaultClientConfig returns the configuration used when nothing is specified
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SocketPath:     DefaultSocketPath,
		TimeoutSecond:  DefaultTimeoutSecond,
		ConnectRetryMs: DefaultConnectRetryMs,
		AutoReconnect:  true,
		LogLevel:       "info",
	}
}

// Timeout returns the default call budget; a negative duration means no deadline
func (c *ClientConfig) Timeout() time.Duration {
	if c.TimeoutSecond <= 0 {
		return -1
	}
	return time.Duration(c.TimeoutSecond) * time.Second
}

// ConnectRetryInterval returns the backoff between connect attempts
func (c *ClientConfig) ConnectRetryInterval() time.Duration {
	if c.ConnectRetryMs <= 0 {
		return DefaultConnectRetryMs * time.Millisecond
	}
	return time.Duration(c.ConnectRetryMs) * time.Millisecond
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Socket", c.SocketPath)
	if c.TimeoutSecond > 0 {
		addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	} else {
		addField("Timeout", "none")
	}
	addField("Connect Retry", fmt.Sprintf("%d ms", c.ConnectRetryMs))
	addField("Auto Reconnect", fmt.Sprintf("%t", c.AutoReconnect))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Server transport configuration struct
// --------------------------------------------------------------------------

// ServerConfig configures a framed server transport (used by test daemons)
type ServerConfig struct {
	// Endpoint is the socket path to listen on
	Endpoint string
	// TimeoutSecond bounds reading one request and writing one response (0 = none)
	TimeoutSecond int64
	// LogLevel is one of debug, info, warn, error
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder
	sb.WriteString("\nSERVER\n")
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Endpoint", c.Endpoint))
	sb.WriteString(fmt.Sprintf("  %-22s: %d sec\n", "Timeout", c.TimeoutSecond))
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", "Log Level", c.LogLevel))
	return sb.String()
}
