package base

import (
	"bufio"
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/transport"
	"github.com/ValentinKolb/goporto/rpc/varint"
	"io"
	"net"
)

// writeFrame writes a frame to the connection with the format:
// - varint: data length
// - N bytes: data payload
func writeFrame(conn net.Conn, data []byte) error {
	b := net.Buffers{varint.Encode(uint64(len(data))), data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the reader using the provided buffer
// If the buffer is too small, it will allocate a new temporary buffer for the data.
// io.EOF is returned unchanged when the peer closed the stream between frames.
func readFrame(r *bufio.Reader, buf []byte) ([]byte, error) {
	header := make([]byte, 0, varint.MaxLen)
	for !varint.Complete(header) {
		if len(header) == varint.MaxLen {
			return nil, fmt.Errorf("frame length varint does not terminate")
		}
		c, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(header) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		header = append(header, c)
	}

	contentLength, _, err := varint.Decode(header, 0, varint.Bits32)
	if err != nil {
		return nil, err
	}
	if contentLength > transport.MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", contentLength)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return []byte{}, nil
	}

	// Check if buffer is large enough for data
	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	if _, err := io.ReadFull(r, buf[:contentLength]); err != nil {
		return nil, err
	}
	return buf[:contentLength], nil
}
