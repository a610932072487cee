// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package cursor reads and writes fixed-layout fields in a byte buffer,
// honouring a declared byte order.
package cursor

import (
	"errors"
	"slices"

	"github.com/elliotnunn/sctedit/internal/endian"
)

var ErrShort = errors.New("read past end of buffer")

type Reader struct {
	buf   []byte
	pos   int
	order endian.Endianness
}

func NewReader(buf []byte, order endian.Endianness) *Reader {
	return &Reader{buf: buf, order: order}
}

func (r *Reader) Pos() int { return r.pos }
func (r *Reader) Len() int { return len(r.buf) }
func (r *Reader) Order() endian.Endianness { return r.order }
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }
func (r *Reader) Seek(off int) { r.pos = off }

func (r *Reader) has(off, n int) bool {
	return off >= 0 && n >= 0 && off <= len(r.buf)-n
}

// Slice returns n bytes at off without moving the cursor.
func (r *Reader) Slice(off, n int) ([]byte, error) {
	if !r.has(off, n) {
		return nil, ErrShort
	}
	return r.buf[off : off+n], nil
}

func (r *Reader) Byte() (byte, error) {
	if !r.has(r.pos, 1) {
		return 0, ErrShort
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// Bytes returns the next n bytes without copying them.
func (r *Reader) Bytes(n int) ([]byte, error) {
	b, err := r.Slice(r.pos, n)
	if err != nil {
		return nil, err
	}
	r.pos += n
	return b, nil
}

func (r *Reader) Uint32() (uint32, error) {
	v, err := r.Uint32At(r.pos)
	if err != nil {
		return 0, err
	}
	r.pos += 4
	return v, nil
}

// Uint32At does not move the cursor.
func (r *Reader) Uint32At(off int) (uint32, error) {
	b, err := r.Slice(off, 4)
	if err != nil {
		return 0, err
	}
	return r.order.ByteOrder().Uint32(b), nil
}

// FixedString consumes exactly n bytes and keeps the non-NUL ones.
func (r *Reader) FixedString(n int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	s := make([]byte, 0, n)
	for _, c := range b {
		if c != 0 {
			s = append(s, c)
		}
	}
	return string(s), nil
}

// Writer accumulates a buffer and allows earlier bytes to be patched,
// which the AKLZ flag bytes and the SCT header table rely on.
type Writer struct {
	buf   []byte
	order endian.Endianness
}

func NewWriter(order endian.Endianness, sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint), order: order}
}

func (w *Writer) Pos() int { return len(w.buf) }
func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Order() endian.Endianness { return w.order }

func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	w.order.ByteOrder().PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteFixed writes exactly n bytes of p, zero padded or truncated.
func (w *Writer) WriteFixed(p []byte, n int) {
	if len(p) > n {
		p = p[:n]
	}
	w.buf = append(w.buf, p...)
	w.buf = slices.Grow(w.buf, n-len(p))
	for range n - len(p) {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) PutByteAt(off int, b byte) error {
	if off < 0 || off >= len(w.buf) {
		return ErrShort
	}
	w.buf[off] = b
	return nil
}

func (w *Writer) PutUint32At(off int, v uint32) error {
	if off < 0 || off > len(w.buf)-4 {
		return ErrShort
	}
	w.order.ByteOrder().PutUint32(w.buf[off:], v)
	return nil
}
