// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package sct

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/elliotnunn/sctedit/internal/aklz"
	"github.com/elliotnunn/sctedit/internal/cursor"
	"github.com/elliotnunn/sctedit/internal/dialog"
	"github.com/elliotnunn/sctedit/internal/endian"
)

// relocation accumulates the offset changes of one serialize pass.
type relocation struct {
	adjust   []int64 // new offset minus old, per item
	filename int64   // largest adjust seen, never negative
}

func (rl *relocation) add(i int, was, now uint32) {
	rl.adjust[i] = int64(now) - int64(was)
	rl.filename = max(rl.filename, rl.adjust[i])
}

// Save serializes the container and, for big-endian output, wraps it in AKLZ.
func (f *File) Save(order endian.Endianness) ([]byte, error) {
	data, err := f.Serialize(order)
	if err != nil {
		return nil, err
	}
	if order != endian.BigEndian {
		return data, nil
	}
	packed, err := aklz.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}
	return packed, nil
}

// Serialize produces the uncompressed container in the given order.
// Dialog items are re-encoded, every offset is recomputed and the words
// found by the reference scan are relocated. Items and headers are left
// untouched, so serializing twice gives the same bytes.
func (f *File) Serialize(order endian.Endianness) ([]byte, error) {
	blocks := make([][]byte, len(f.Items))
	for i, it := range f.Items {
		b, err := it.encode(f.Options)
		if err != nil {
			return nil, fmt.Errorf("item %d %q: %w", i, f.Headers[i].String(), err)
		}
		blocks[i] = b
	}

	rl := relocation{adjust: make([]int64, len(f.Items))}
	offsets := make([]uint32, len(f.Items))
	var next int64
	if len(f.Headers) > 0 {
		next = int64(f.Headers[0].Offset)
	}
	for i := range f.Headers {
		if next > math.MaxUint32 {
			return nil, fmt.Errorf("%w: item %d would start beyond 4 GiB", ErrMalformed, i)
		}
		offsets[i] = uint32(next)
		rl.add(i, f.Headers[i].Offset, offsets[i])
		next += int64(len(blocks[i]))
	}

	for _, ref := range f.Refs {
		var by int64
		if ref.IsFilename() {
			by = rl.filename
		} else {
			by = rl.adjust[ref.Target]
		}
		if by == 0 {
			continue
		}
		// re-encoded dialog text is not at its old offsets
		if _, ok := f.Items[ref.Source].(*DialogItem); ok && ref.Offset+4 > dialog.PreambleSize {
			continue
		}
		src := f.Items[ref.Source].Raw()
		word := binary.BigEndian.Uint32(src[ref.Offset:])
		binary.BigEndian.PutUint32(blocks[ref.Source][ref.Offset:], word+uint32(by))
	}

	size := tableAt + len(f.Headers)*headerSize + int(next)
	w := cursor.NewWriter(order, size)
	w.Write(f.Preamble[:])
	w.WriteUint32(uint32(len(f.Headers)))
	for i := range f.Headers {
		h := f.Headers[i]
		h.Offset = offsets[i]
		writeHeader(w, &h)
	}
	w.Write(f.gap)
	for _, b := range blocks {
		w.Write(b)
	}

	f.state = Serialized
	slog.Debug("sctSerialized", "order", order, "size", w.Pos(), "filenameAdjust", rl.filename)
	return w.Bytes(), nil
}
