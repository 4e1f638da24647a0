// Package binstream provides the fixed-width integer cursor used by the
// cross-reference codecs.
package binstream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// IntSize is the width in bytes of every word in the stream.
const IntSize = 4

// ErrOutOfBounds reports a read or write that would cross the end of the buffer.
var ErrOutOfBounds = errors.New("stream out of bounds")

// Stream is a sequential cursor over a fixed byte buffer.
// Streams are either written once and then handed off, or read once.
type Stream struct {
	buf    []byte
	offset int
}

// New wraps buf. The buffer is neither copied nor grown.
func New(buf []byte) *Stream {
	return &Stream{buf: buf}
}

// Sized allocates a stream able to hold exactly words integers.
func Sized(words int) *Stream {
	if words < 0 {
		words = 0
	}
	return &Stream{buf: make([]byte, words*IntSize)}
}

// HasData reports whether unread bytes remain.
func (s *Stream) HasData() bool { return s.offset < len(s.buf) }

// Offset returns the cursor position in bytes.
func (s *Stream) Offset() int { return s.offset }

// Remaining returns the number of unread bytes.
func (s *Stream) Remaining() int { return len(s.buf) - s.offset }

// Bytes returns the underlying buffer.
func (s *Stream) Bytes() []byte { return s.buf }

// ReadInt reads the next word and advances the cursor.
func (s *Stream) ReadInt() (int32, error) {
	if err := s.checkSize("read"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(s.buf[s.offset:])
	s.offset += IntSize
	return int32(v), nil // #nosec G115 -- bit reinterpretation of a stored int32
}

// WriteInt stores value at the cursor and advances it.
func (s *Stream) WriteInt(value int32) error {
	if err := s.checkSize("write"); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(s.buf[s.offset:], uint32(value)) // #nosec G115 -- bit reinterpretation
	s.offset += IntSize
	return nil
}

func (s *Stream) checkSize(op string) error {
	if s.offset+IntSize > len(s.buf) {
		return fmt.Errorf("can't %s an int at %d, size = %d: %w", op, s.offset, len(s.buf), ErrOutOfBounds)
	}
	return nil
}
