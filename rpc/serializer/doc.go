// Package serializer converts Request and Response envelopes to and from bytes.
//
// The package provides two implementations of IRPCSerializer:
//
//   - Protobuf: the wire format spoken by the daemon. Field numbers are read from the
//     `protobuf` struct tags of the common package; encoding and decoding use
//     google.golang.org/protobuf/encoding/protowire. Unknown fields are skipped so
//     newer daemons stay readable.
//
//   - JSON: a human readable alternative for debugging and test daemons.
//
// Serializers are stateless and safe for concurrent use. Framing (the varint
// length prefix) is not part of this package; see the transport package.
package serializer
