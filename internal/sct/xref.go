// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package sct

import (
	"encoding/binary"
)

// FilenameTable is the Target of a Ref into the name strings kept in the
// last item.
const FilenameTable = -1

// Ref is a word inside one item that holds a position relative to itself.
// Item data is big-endian whatever the container order.
type Ref struct {
	Source int   // item holding the word
	Offset int64 // word offset within the source item
	Target int   // item index, or FilenameTable
}

func (r Ref) IsFilename() bool { return r.Target == FilenameTable }

// scanRefs tests every aligned word of every item but the last. A word that
// lands on a filename-like string in the last item is a filename reference;
// one that lands exactly on the start of another item is a pointer.
func scanRefs(data []byte, hdrs []Header) []Ref {
	if len(hdrs) < 2 {
		return nil
	}
	starts := make(map[int64]int, len(hdrs))
	for i := range hdrs {
		if _, ok := starts[hdrs[i].DataOffset]; !ok {
			starts[hdrs[i].DataOffset] = i
		}
	}
	names := hdrs[len(hdrs)-1].DataOffset

	var refs []Ref
	for i := range hdrs[:len(hdrs)-1] {
		h := &hdrs[i]
		for off := int64(0); off+4 <= h.DataSize; off += 4 {
			at := h.DataOffset + off
			abs := int64(binary.BigEndian.Uint32(data[at:])) + at

			if abs >= names && abs < int64(len(data)) && isFilename(data[abs:]) {
				refs = append(refs, Ref{Source: i, Offset: off, Target: FilenameTable})
			} else if j, ok := starts[abs]; ok && j != i {
				refs = append(refs, Ref{Source: i, Offset: off, Target: j})
			}
		}
	}
	return refs
}

// isFilename matches a NUL-terminated run of letters, digits, dots and
// underscores.
func isFilename(b []byte) bool {
	for i, c := range b {
		switch {
		case c == 0:
			return i > 0
		case c >= '0' && c <= '9', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c == '.', c == '_':
		default:
			return false
		}
	}
	return false
}
