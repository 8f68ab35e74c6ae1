// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"encoding/binary"
)

// Cursor is a bounds-checked reader over a byte window. It tracks an
// absolute base offset so errors can point at a position in the whole
// stream, not just in the current window. A failed read leaves the
// position unchanged: the caller may retry once more bytes are
// available.
type Cursor struct {
	buf  []byte
	base int64
	pos  int
}

// NewCursor returns a cursor over buf. base is the absolute offset of
// buf[0] in the underlying stream.
func NewCursor(buf []byte, base int64) *Cursor {
	return &Cursor{buf: buf, base: base}
}

// Position returns the absolute offset of the next byte to be read.
func (c *Cursor) Position() int64 {
	return c.base + int64(c.pos)
}

// Limit returns the absolute offset just past the window.
func (c *Cursor) Limit() int64 {
	return c.base + int64(len(c.buf))
}

// Remaining returns the number of unread bytes in the window.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	if c.Remaining() < 1 {
		return 0, newError(c.Position(), ErrTruncated, "need 1 byte, %d available", c.Remaining())
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

// Uint16 reads a 16-bit integer in network byte order.
func (c *Cursor) Uint16() (uint16, error) {
	if c.Remaining() < 2 {
		return 0, newError(c.Position(), ErrTruncated, "need 2 bytes, %d available", c.Remaining())
	}
	v := binary.BigEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

// Uint32 reads a 32-bit integer in network byte order.
func (c *Cursor) Uint32() (uint32, error) {
	if c.Remaining() < 4 {
		return 0, newError(c.Position(), ErrTruncated, "need 4 bytes, %d available", c.Remaining())
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// Uint64 reads a 64-bit integer in network byte order.
func (c *Cursor) Uint64() (uint64, error) {
	if c.Remaining() < 8 {
		return 0, newError(c.Position(), ErrTruncated, "need 8 bytes, %d available", c.Remaining())
	}
	v := binary.BigEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

// Bytes reads exactly n bytes. The returned slice aliases the window:
// callers must copy anything they keep past the current decode.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if c.Remaining() < n {
		return nil, newError(c.Position(), ErrTruncated, "need %d bytes, %d available", n, c.Remaining())
	}
	v := c.buf[c.pos : c.pos+n]
	c.pos += n
	return v, nil
}

// Skip advances the cursor by n bytes without interpreting them.
func (c *Cursor) Skip(n int) error {
	if c.Remaining() < n {
		return newError(c.Position(), ErrTruncated, "need %d bytes, %d available", n, c.Remaining())
	}
	c.pos += n
	return nil
}
