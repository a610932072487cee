// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package sct

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/elliotnunn/sctedit/internal/cursor"
)

const (
	preambleSize = 8
	countAt      = 8
	tableAt      = 12
	headerSize   = 20
	nameSize     = 16
)

// Header is one record of the table that follows the item count.
type Header struct {
	Name   [nameSize]byte
	Offset uint32 // relative to the end of the header table

	DataOffset int64 // absolute position of the item in the container
	DataSize   int64
}

func (h *Header) String() string {
	return string(bytes.TrimRight(h.Name[:], "\x00"))
}

// readHeaders reads the item count and header table and derives the size of
// every item from the next item's offset. The last item runs to the end.
func readHeaders(r *cursor.Reader) ([]Header, error) {
	r.Seek(countAt)
	n, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("%w: no item count", ErrMalformed)
	}
	tableEnd := int64(tableAt) + int64(n)*headerSize
	if tableEnd > int64(r.Len()) {
		return nil, fmt.Errorf("%w: header table for %d items exceeds %d bytes", ErrMalformed, n, r.Len())
	}

	hdrs := make([]Header, n)
	for i := range hdrs {
		h := &hdrs[i]
		h.Offset, _ = r.Uint32()
		name, _ := r.Bytes(nameSize)
		copy(h.Name[:], name)
		h.DataOffset = tableEnd + int64(h.Offset)

		if h.DataOffset > int64(r.Len()) {
			return nil, fmt.Errorf("%w: item %d at %#x is past the end (%#x)", ErrMalformed, i, h.DataOffset, r.Len())
		}
		if i > 0 {
			prev := &hdrs[i-1]
			if h.Offset < prev.Offset {
				slog.Warn("sctOffsetsUnordered", "item", i, "offset", h.Offset, "previous", prev.Offset)
				return nil, fmt.Errorf("%w: item %d offset %#x precedes item %d offset %#x",
					ErrMalformed, i, h.Offset, i-1, prev.Offset)
			}
			prev.DataSize = h.DataOffset - prev.DataOffset
		}
	}
	if n > 0 {
		last := &hdrs[n-1]
		last.DataSize = int64(r.Len()) - last.DataOffset
	}
	return hdrs, nil
}

func writeHeader(w *cursor.Writer, h *Header) {
	w.WriteUint32(h.Offset)
	w.WriteFixed(h.Name[:], nameSize)
}
