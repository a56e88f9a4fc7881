// Package rpc is the client stack for the porto container daemon. The daemon
// listens on a unix stream socket and exchanges length-prefixed messages:
// every frame is a varint byte count followed by one encoded request or
// response, and responses arrive in request order.
//
// The package is organized into several subpackages:
//
//   - varint: The base-128 length prefix of the framing.
//
//   - common: Request and response messages, the daemon error codes with their
//     registry, configuration structures and logging.
//
//   - transport: The framed socket transport with a unix implementation for
//     clients and for test daemons.
//
//   - serializer: Message encodings (protobuf wire format, JSON for debugging).
//
//   - client: The Connection and the container, volume, layer and storage
//     handles built on it, including synchronous and asynchronous waits.
//
//   - server: A generic framed server that hands decoded requests to an adapter,
//     used by the in-memory mock daemon.
package rpc
