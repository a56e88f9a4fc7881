// Package server implements the daemon side of the framed request protocol.
// It does not manage containers itself: an IRPCServerAdapter answers the decoded
// requests. The in-memory daemon used by tests and by "goporto serve" is
// such an adapter.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface with the Handle method that turns one
//     common.Request into one common.Response.
//
//   - NewRPCServer: Factory function creating a server with the specified
//     transport, serializer and adapter.
//
// Usage Example:
//
//	s := server.NewRPCServer(
//	  common.ServerConfig{Endpoint: "/tmp/porto.sock", TimeoutSecond: 5},
//	  unix.NewUnixDefaultServerTransport(),
//	  serializer.NewProtobufSerializer(),
//	  daemontest.New(),
//	)
//	if err := s.Start(); err != nil {
//	  return err
//	}
//	defer s.Close()
//
// Undecodable requests are answered with InvalidData, requests without an
// operation with InvalidMethod, so the client never waits for a missing frame.
package server
