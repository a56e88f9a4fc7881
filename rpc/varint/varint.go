package varint

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// MaxLen is the maximum number of bytes of an encoded 64-bit value
	MaxLen = 10

	// Bits64 selects no masking (general values)
	Bits64 = 64
	// Bits32 masks decoded values to 32 bit (frame lengths)
	Bits32 = 32
)

// ErrDecode is returned when a buffer does not contain a valid varint
var ErrDecode = errors.New("varint: decoding error")

// Encode returns the varint encoding of v
func Encode(v uint64) []byte {
	return protowire.AppendVarint(make([]byte, 0, protowire.SizeVarint(v)), v)
}

// Append appends the varint encoding of v to b
func Append(b []byte, v uint64) []byte {
	return protowire.AppendVarint(b, v)
}

// Size returns the number of bytes Encode(v) produces
func Size(v uint64) int {
	return protowire.SizeVarint(v)
}

// Decode reads one varint from buf starting at offset.
// The value is masked to the given bit width (1..64). It returns the value and the
// offset of the first byte after the varint.
func Decode(buf []byte, offset int, bits int) (uint64, int, error) {
	if bits <= 0 || bits > 64 {
		return 0, offset, fmt.Errorf("%w: invalid bit width %d", ErrDecode, bits)
	}
	if offset < 0 || offset > len(buf) {
		return 0, offset, fmt.Errorf("%w: offset %d out of range", ErrDecode, offset)
	}

	v, n := protowire.ConsumeVarint(buf[offset:])
	if n < 0 {
		wide, ok := consumeOverflow(buf[offset:])
		if !ok {
			return 0, offset, fmt.Errorf("%w: %v", ErrDecode, protowire.ParseError(n))
		}
		v, n = wide, MaxLen
	}

	if bits < 64 {
		v &= (uint64(1) << uint(bits)) - 1
	}
	return v, offset + n, nil
}

// consumeOverflow accepts a terminated MaxLen byte varint whose last group
// carries bits above bit 63. Those bits are dropped like any other bits above
// the requested width.
func consumeOverflow(b []byte) (uint64, bool) {
	if len(b) < MaxLen || b[MaxLen-1]&0x80 != 0 {
		return 0, false
	}
	var v uint64
	for i := 0; i < MaxLen; i++ {
		v |= uint64(b[i]&0x7f) << (7 * uint(i))
	}
	return v, true
}

// Complete reports whether buf holds a terminated varint, i.e. its last byte has
// no continuation bit. Stream readers use it to decide whether to read another byte.
func Complete(buf []byte) bool {
	return len(buf) > 0 && buf[len(buf)-1]&0x80 == 0
}
