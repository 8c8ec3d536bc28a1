package pkg

import (
	"errors"
	"io"
	"math"
)

var errPositionRange = errors.New("binary writer position out of range")

// BinaryWriter accumulates a big-endian binary image in memory.
//
// The cursor may be moved anywhere with SetPosition; writes land at the
// cursor and extend the logical size when they pass it. Bytes between the
// old size and a write beyond it are zero. A BinaryWriter is not safe for
// concurrent use.
type BinaryWriter struct {
	buf   []byte // len(buf) is the logical size
	pos   uint32
	stack []uint32

	labels map[string]uint32
}

func NewBinaryWriter(opts ...Option) *BinaryWriter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &BinaryWriter{
		buf:    make([]byte, 0, o.capacity),
		labels: map[string]uint32{},
	}
}

// Position returns the write cursor.
func (c *BinaryWriter) Position() uint32 {
	return c.pos
}

// SetPosition moves the write cursor. Positions past Size are allowed; the
// gap is zero-filled by the next write.
func (c *BinaryWriter) SetPosition(pos uint32) {
	c.pos = pos
}

// Size returns the logical size, the highest position ever written.
func (c *BinaryWriter) Size() uint32 {
	return uint32(len(c.buf))
}

// PushPosition saves the cursor and returns it.
func (c *BinaryWriter) PushPosition() uint32 {
	c.stack = append(c.stack, c.pos)
	return c.pos
}

// PopPosition restores the most recently pushed cursor and returns the
// cursor as it was before the restore.
func (c *BinaryWriter) PopPosition() (uint32, error) {
	if len(c.stack) == 0 {
		return 0, ErrPositionStackEmpty
	}

	old := c.pos
	last := len(c.stack) - 1
	c.pos = c.stack[last]
	c.stack = c.stack[:last]

	return old, nil
}

// PositionDepth returns the number of saved positions.
func (c *BinaryWriter) PositionDepth() int {
	return len(c.stack)
}

// Skip writes n zero bytes.
func (c *BinaryWriter) Skip(n uint32) {
	clear(c.extend(uint64(n)))
}

// Align pads with zero bytes until the cursor is a multiple of alignment.
func (c *BinaryWriter) Align(alignment uint32) error {
	if alignment == 0 {
		return ErrInvalidAlignment
	}

	if rem := c.pos % alignment; rem != 0 {
		c.Skip(alignment - rem)
	}

	return nil
}

func (c *BinaryWriter) WriteBytes(b []byte) {
	copy(c.extend(uint64(len(b))), b)
}

// WriteString writes the bytes of s without a terminator.
func (c *BinaryWriter) WriteString(s string) {
	copy(c.extend(uint64(len(s))), s)
}

// WriteSubBuffer copies the logical content of other at the cursor. The
// bytes are already in target order and are not swapped again.
func (c *BinaryWriter) WriteSubBuffer(other *BinaryWriter) {
	if other == c {
		c.WriteBytes(c.Bytes())
		return
	}
	c.WriteBytes(other.buf)
}

// Bytes returns a copy of the logical content.
func (c *BinaryWriter) Bytes() []byte {
	b := make([]byte, len(c.buf))
	copy(b, c.buf)
	return b
}

// WriteTo writes exactly Size bytes to w.
func (c *BinaryWriter) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.buf)
	if err == nil && n < len(c.buf) {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// extend returns the n bytes at the cursor and advances past them, growing
// the buffer when they reach beyond the logical size.
func (c *BinaryWriter) extend(n uint64) []byte {
	start := uint64(c.pos)
	end := start + n
	if end < start || end > math.MaxUint32 || end > math.MaxInt {
		panic(errPositionRange)
	}

	if end > uint64(len(c.buf)) {
		c.resize(int(end))
	}

	c.pos = uint32(end)
	return c.buf[start:end]
}

func (c *BinaryWriter) resize(size int) {
	old := len(c.buf)

	if size > cap(c.buf) {
		newCap := cap(c.buf)*2 + (size - old)
		if newCap < size {
			newCap = size
		}

		newBuf := make([]byte, size, newCap)
		copy(newBuf, c.buf)
		c.buf = newBuf
		return
	}

	c.buf = c.buf[:size]
	clear(c.buf[old:])
}
