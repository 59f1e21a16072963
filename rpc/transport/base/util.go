package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// maxFrameSize bounds a single frame. A frame larger than this is treated
// as a protocol violation and the connection is dropped.
const maxFrameSize = 64 * 1024 * 1024 // 64 MB

// writeFrame writes a frame to the connection with the format:
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(conn net.Conn, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds maximum of %d", len(data), maxFrameSize)
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection using the provided buffer.
// If the buffer is too small, it will allocate a new temporary buffer for
// the data.
func readFrame(conn net.Conn, buf []byte) ([]byte, error) {
	// Check if buffer is large enough for header
	if buf == nil || len(buf) < 4 {
		buf = make([]byte, 4) // create header buffer
	}

	// Read header
	if _, err := io.ReadFull(conn, buf[:4]); err != nil {
		return nil, err
	}

	// Parse header
	contentLength := binary.BigEndian.Uint32(buf[:4])
	if contentLength > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds maximum of %d", contentLength, maxFrameSize)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return []byte{}, nil
	}

	// Check if buffer is large enough for data
	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	// Read data
	if _, err := io.ReadFull(conn, buf[:contentLength]); err != nil {
		return nil, err
	}

	// Return data
	return buf[:contentLength], nil
}
