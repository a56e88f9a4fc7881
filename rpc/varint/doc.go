// Package varint implements the unsigned variable-length integer encoding used to
// frame every message exchanged with the daemon.
//
// Each byte carries 7 data bits, least significant group first. The high bit of a
// byte is set when another byte follows. A 64-bit value therefore needs at most
// MaxLen (10) bytes; a sequence whose continuation bits do not terminate within
// MaxLen groups is rejected with ErrDecode.
//
// The encoding is wire compatible with protobuf varints and is implemented on top
// of google.golang.org/protobuf/encoding/protowire.
package varint
