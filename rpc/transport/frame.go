package transport

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/varint"
	"time"
)

// MaxFrameSize bounds the payload of a single frame
const MaxFrameSize = 128 << 20

// WriteFrame sends payload preceded by its varint encoded length in a single write
func WriteFrame(t IRPCClientTransport, payload []byte, deadline time.Time) error {
	if len(payload) > MaxFrameSize {
		return common.NewError(common.InvalidValue, fmt.Sprintf("request of %d bytes exceeds frame limit", len(payload)))
	}

	frame := make([]byte, 0, varint.Size(uint64(len(payload)))+len(payload))
	frame = varint.Append(frame, uint64(len(payload)))
	frame = append(frame, payload...)
	return t.Send(frame, deadline)
}

// ReadFrame reads one frame: the varint length one byte at a time, then exactly that
// many payload bytes. A malformed length closes the transport since the stream can
// no longer be resynchronized.
func ReadFrame(t IRPCClientTransport, deadline time.Time) ([]byte, error) {
	header := make([]byte, 0, varint.MaxLen)
	for !varint.Complete(header) {
		if len(header) == varint.MaxLen {
			_ = t.Close()
			return nil, common.NewError(common.SocketError, "malformed frame length: varint does not terminate")
		}
		b, err := t.Receive(1, deadline)
		if err != nil {
			return nil, err
		}
		header = append(header, b[0])
	}

	size, _, err := varint.Decode(header, 0, varint.Bits32)
	if err != nil {
		_ = t.Close()
		return nil, common.WrapError(common.SocketError, err, "malformed frame length")
	}
	if size > MaxFrameSize {
		_ = t.Close()
		return nil, common.NewError(common.SocketError, fmt.Sprintf("frame of %d bytes exceeds limit", size))
	}
	if size == 0 {
		return []byte{}, nil
	}

	return t.Receive(int(size), deadline)
}
