// Package base provides the transport implementation shared by all connection
// types, independent of the specific socket family. It is extended with
// protocol-specific connectors.
//
// The package focuses on:
//   - A single stream connection per client transport, no pooling and no retries
//   - Deadline-bounded I/O: the remaining time is applied right before every
//     read or write and an elapsed deadline fails without touching the socket
//   - Classification of I/O failures into SocketTimeout, SocketUnavailable and
//     SocketError; any failure closes the connection
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different socket families.
//
//   - clientTransport: Core client implementation holding one connection.
//     Close may be called concurrently with a blocked Send or Receive and
//     interrupts it.
//
//   - serverTransport: Core server implementation that accepts connections and
//     hands every frame to the registered handler, strictly in order per
//     connection. It backs the in-memory daemon used by tests.
//
// Performance Optimizations:
//
//   - Buffer Pooling: The server uses a sync.Pool to reuse buffers, reducing
//     GC pressure and memory allocations.
//
//   - Frame Batching: net.Buffers combines length prefix and payload into a
//     single write operation.
package base
