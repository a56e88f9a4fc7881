// Package unix implements the transport to the container daemon over Unix domain
// sockets, the only socket family the daemon listens on.
//
// This package extends the base transport layer with Unix socket-specific connectors
// while inheriting deadline handling, error classification and framing from the
// base package.
//
// Key Components:
//
//   - clientConnector: Dials the daemon socket with a bounded dial timeout
//
//   - serverConnector: Creates Unix socket listeners, replacing stale socket files
//
// The default server buffer is 64 KB, which covers typical request frames
// without reallocation.
package unix
