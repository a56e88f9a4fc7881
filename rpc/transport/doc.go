// Package transport defines the interfaces of the byte level communication with the
// daemon and the framing shared by all implementations.
//
// Every message travels as one frame: the payload length encoded as a varint,
// followed by the payload. There is no multiplexing and no request identifier;
// responses are matched to requests by arrival order.
//
// Key Components:
//
//   - IRPCClientTransport: one stream connection with deadline-bounded Send and
//     Receive. Any I/O failure closes it; retries belong to the caller.
//
//   - IRPCServerTransport: the server side of the framing, used by test daemons.
//
//   - WriteFrame / ReadFrame: framing on top of a client transport.
//
// Implementations live in the base (generic, connector driven) and unix (unix
// domain socket connectors) subpackages.
package transport
