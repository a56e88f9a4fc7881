package varint

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 255, 300, 16383, 16384, math.MaxUint32, math.MaxUint32 + 1, math.MaxUint64}
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		values = append(values, r.Uint64()>>uint(r.Intn(64)))
	}

	for _, v := range values {
		enc := Encode(v)
		if len(enc) != Size(v) {
			t.Fatalf("Size(%d) = %d, encoded length %d", v, Size(v), len(enc))
		}
		dec, next, err := Decode(enc, 0, Bits64)
		if err != nil {
			t.Fatalf("Decode(Encode(%d)) failed: %v", v, err)
		}
		if dec != v || next != len(enc) {
			t.Errorf("Decode(Encode(%d)) = (%d, %d), want (%d, %d)", v, dec, next, v, len(enc))
		}
	}
}

func TestEncodeKnownValues(t *testing.T) {
	testCases := []struct {
		value uint64
		want  []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}

	for _, tc := range testCases {
		if got := Encode(tc.value); !bytes.Equal(got, tc.want) {
			t.Errorf("Encode(%d) = %x, want %x", tc.value, got, tc.want)
		}
	}
}

func TestDecodeOffsetAndMask(t *testing.T) {
	buf := append([]byte{0xaa, 0xbb}, Encode(math.MaxUint32+5)...)
	buf = append(buf, 0x07)

	v, next, err := Decode(buf, 2, Bits32)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if v != 4 {
		t.Errorf("masked value = %d, want 4", v)
	}
	if buf[next] != 0x07 {
		t.Errorf("next offset %d points at %x, want trailing byte", next, buf[next])
	}
}

func TestDecodeOverflowingLastGroup(t *testing.T) {
	// nine full groups and a tenth group with bits above bit 63, then a trailing byte
	buf := append(bytes.Repeat([]byte{0xff}, 9), 0x7f, 0x05)

	v, next, err := Decode(buf, 0, Bits64)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if v != math.MaxUint64 || next != MaxLen {
		t.Errorf("Decode = (%x, %d), want (%x, %d)", v, next, uint64(math.MaxUint64), MaxLen)
	}

	v, _, err = Decode(buf, 0, Bits32)
	if err != nil || v != math.MaxUint32 {
		t.Errorf("Decode 32 bit = (%x, %v), want %x", v, err, uint64(math.MaxUint32))
	}

	buf = append([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80}, 0x02)
	if v, _, err = Decode(buf, 0, Bits64); err != nil || v != 0 {
		t.Errorf("overflow bits only: got (%x, %v), want 0", v, err)
	}
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		name string
		buf  []byte
	}{
		{"empty", []byte{}},
		{"truncated", []byte{0x80, 0x80}},
		{"never terminates", bytes.Repeat([]byte{0xff}, 11)},
		{"ten continuation groups", bytes.Repeat([]byte{0x80}, 10)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode(tc.buf, 0, Bits64)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	if Complete(nil) {
		t.Error("empty buffer reported complete")
	}
	if Complete([]byte{0x80}) {
		t.Error("buffer with continuation bit reported complete")
	}
	if !Complete([]byte{0x80, 0x01}) {
		t.Error("terminated buffer reported incomplete")
	}
}
