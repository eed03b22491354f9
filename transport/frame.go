package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameBytes bounds a single frame to guard against a peer claiming an
// unbounded length prefix and exhausting memory on read.
const MaxFrameBytes = 64 << 20

// WriteFrame writes msg to w prefixed with its 4-byte little-endian length,
// per spec §6 "length-delimited messages: a 4-byte little-endian length
// prefix followed by the message bytes".
func WriteFrame(w io.Writer, msg []byte) error {
	if len(msg) > MaxFrameBytes {
		return fmt.Errorf("transport: frame of %d bytes exceeds max %d", len(msg), MaxFrameBytes)
	}
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(msg)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("transport: write frame prefix: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("transport: write frame body: %w", err)
	}
	return nil
}

// FrameReader incrementally decodes length-prefixed frames from an
// underlying io.Reader, reusing one buffered reader across calls.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader wraps r for framed reads.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadFrame reads one complete frame, blocking until the prefix and full
// body have arrived. It returns io.EOF only when the peer closed the
// connection cleanly between frames.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(f.r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(prefix[:])
	if n > MaxFrameBytes {
		return nil, fmt.Errorf("transport: frame of %d bytes exceeds max %d", n, MaxFrameBytes)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("transport: read frame body: %w", err)
	}
	return buf, nil
}
