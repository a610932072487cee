// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package aklz implements the AKLZ compression wrapper found on SCT files.
//
// AKLZ is an LZSS variant with a 4 KiB window. Each control byte (LSB first)
// describes eight units: a set bit is a literal byte, a clear bit is a
// two-byte back-reference holding a 12-bit anchor and a 4-bit length.
package aklz

import (
	"errors"
	"fmt"
	"math"

	"github.com/elliotnunn/sctedit/internal/cursor"
	"github.com/elliotnunn/sctedit/internal/endian"
)

const (
	Magic      = "AKLZ"
	headerSize = 0x10
	sizeOffset = 0xc

	windowSize = 0x1000
	minMatch   = 3
	maxMatch   = 0xf + minMatch
	anchorBias = 0x12
)

// Opaque, but every file written by the game tools carries it.
var subHeader = [8]byte{0x7e, 0x3f, 0x51, 0x64, 0x3d, 0xcc, 0xcc, 0xcd}

var (
	ErrFormat    = errors.New("malformed AKLZ header")
	ErrCorrupt   = errors.New("corrupt AKLZ stream")
	ErrTruncated = errors.New("AKLZ stream ends before its declared size")
	ErrTooLarge  = errors.New("input too large for AKLZ")
)

func IsCompressed(b []byte) bool {
	return len(b) >= len(Magic) && string(b[:len(Magic)]) == Magic
}

// DecompressedSize reports the size field of an AKLZ header.
func DecompressedSize(b []byte) (int, error) {
	if !IsCompressed(b) || len(b) < headerSize {
		return 0, ErrFormat
	}
	n, _ := cursor.NewReader(b, endian.BigEndian).Uint32At(sizeOffset)
	return int(n), nil
}

// Decompress expands an AKLZ stream. Input without the AKLZ tag is
// returned unchanged.
//
// When the stream runs out before the declared size, the bytes produced so
// far are returned along with ErrTruncated.
func Decompress(src []byte) ([]byte, error) {
	if !IsCompressed(src) {
		return src, nil
	}
	size, err := DecompressedSize(src)
	if err != nil {
		return nil, err
	}

	// Never trust the size field for the allocation: one control byte plus
	// eight back-references cannot expand beyond 8*maxMatch bytes.
	dst := make([]byte, 0, min(size, (len(src)-headerSize)*maxMatch/2+maxMatch))
	sp := headerSize

	for len(dst) < size {
		if sp >= len(src) {
			return dst, ErrTruncated
		}
		flags := src[sp]
		sp++

		for range 8 {
			if len(dst) >= size {
				break
			}
			if sp >= len(src) {
				return dst, ErrTruncated
			}

			if flags&1 != 0 {
				dst = append(dst, src[sp])
				sp++
			} else {
				if sp+1 >= len(src) {
					return dst, fmt.Errorf("%w: back-reference cut short at %#x", ErrCorrupt, sp)
				}
				b0, b1 := int(src[sp]), int(src[sp+1])
				sp += 2

				anchor := (b0 | (b1&0xf0)<<4) + anchorBias
				n := int(b1&0x0f) + minMatch
				from := resolve(anchor, len(dst))

				for range n {
					var c byte
					if from >= 0 && from < len(dst) {
						c = dst[from]
					} // else the byte precedes the stream, or is the one being written
					dst = append(dst, c)
					from++
					if len(dst) >= size {
						break
					}
				}
			}
			flags >>= 1
		}
	}
	return dst, nil
}

// resolve turns a 12-bit anchor into an absolute source address by adding
// whole windows until just before pos. The result may be negative, which
// addresses the zero-filled window that precedes the stream.
func resolve(anchor, pos int) int {
	from := anchor
	for wrap := 1; wrap <= pos/windowSize; wrap++ {
		if anchor+wrap*windowSize < pos {
			from += windowSize
		}
	}
	if from > pos {
		from -= windowSize
	}
	return from
}

// Compress wraps src in an AKLZ stream.
func Compress(src []byte) ([]byte, error) {
	if uint64(len(src)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}

	w := cursor.NewWriter(endian.BigEndian, headerSize+len(src)+len(src)/8+1)
	w.Write([]byte(Magic))
	w.Write(subHeader[:])
	w.WriteUint32(uint32(len(src)))

	win := newMatchWindow(src)
	pos := 0
	for pos < len(src) {
		flagAt := w.Pos()
		w.WriteByte(0) // patched below
		var flags byte

		for bit := range 8 {
			if pos >= len(src) {
				break
			}
			from, n := win.search(pos)
			if n >= minMatch {
				field := (from - anchorBias) & (windowSize - 1)
				w.WriteByte(byte(field))
				w.WriteByte(byte(n-minMatch) | byte(field&0xf00>>4))
			} else {
				flags |= 1 << bit
				w.WriteByte(src[pos])
				n = 1
			}
			win.advance(pos, n)
			pos += n
		}

		if err := w.PutByteAt(flagAt, flags); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}
