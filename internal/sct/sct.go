// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package sct reads, edits and writes SCT script containers.
//
// A container is an 8-byte preamble, an item count, a table of 20-byte
// headers (offset and name) and the item data. Containers wrapped in AKLZ
// are big-endian; bare ones are little-endian. Words inside item data are
// always big-endian and some of them point at other items or at the
// filename strings stored in the last item. Those are found when the
// container is parsed and relocated when it is saved.
package sct

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/elliotnunn/sctedit/internal/aklz"
	"github.com/elliotnunn/sctedit/internal/cursor"
	"github.com/elliotnunn/sctedit/internal/dialog"
	"github.com/elliotnunn/sctedit/internal/endian"
)

var (
	ErrMalformed   = errors.New("malformed SCT container")
	ErrNotDialog   = errors.New("not a dialog item")
	ErrCompression = errors.New("AKLZ wrapper")
)

type State uint8

const (
	Empty State = iota
	HeadersLoaded
	ItemsLoaded
	Edited
	Serialized
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case HeadersLoaded:
		return "headersLoaded"
	case ItemsLoaded:
		return "itemsLoaded"
	case Edited:
		return "edited"
	case Serialized:
		return "serialized"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

type Options struct {
	Dialog dialog.Options
	// PadAligned appends four zero bytes to a dialog item that is already
	// a multiple of four long.
	PadAligned bool
}

type File struct {
	Preamble [preambleSize]byte
	Order    endian.Endianness // order the container was read in
	Headers  []Header
	Items    []Item
	Refs     []Ref

	Options Options

	gap   []byte // between the header table and the first item
	state State
}

func (f *File) State() State { return f.state }

// Load unwraps AKLZ if present and parses the container. Compressed
// containers are big-endian, bare ones little-endian.
func Load(raw []byte) (*File, error) {
	if !aklz.IsCompressed(raw) {
		return Parse(raw, endian.LittleEndian)
	}
	data, err := aklz.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompression, err)
	}
	return Parse(data, endian.BigEndian)
}

// Parse reads an uncompressed container. The items keep references into
// data, which must not be modified afterwards.
func Parse(data []byte, order endian.Endianness) (*File, error) {
	f := &File{Order: order}
	r := cursor.NewReader(data, order)

	pre, err := r.Bytes(preambleSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrMalformed, len(data))
	}
	copy(f.Preamble[:], pre)

	f.Headers, err = readHeaders(r)
	if err != nil {
		return nil, err
	}
	f.state = HeadersLoaded

	tableEnd := int64(tableAt) + int64(len(f.Headers))*headerSize
	if len(f.Headers) > 0 {
		f.gap = data[tableEnd:f.Headers[0].DataOffset]
	} else {
		f.gap = data[tableEnd:]
	}

	dialogs := 0
	f.Items = make([]Item, len(f.Headers))
	for i := range f.Headers {
		h := &f.Headers[i]
		it, err := newItem(data[h.DataOffset : h.DataOffset+h.DataSize])
		if err != nil {
			return nil, fmt.Errorf("%w: item %d %q: %w", ErrMalformed, i, h.String(), err)
		}
		if _, ok := it.(*DialogItem); ok {
			dialogs++
		}
		f.Items[i] = it
	}
	f.Refs = scanRefs(data, f.Headers)
	f.state = ItemsLoaded

	slog.Debug("sctParsed", "order", order, "items", len(f.Items), "dialogs", dialogs, "refs", len(f.Refs))
	return f, nil
}

// Dialog is one editable entry, addressed by its item index.
type Dialog struct {
	Index int
	Item  string // header name
	dialog.Text
}

func (f *File) Dialogs() []Dialog {
	var ret []Dialog
	for i, it := range f.Items {
		if d, ok := it.(*DialogItem); ok {
			ret = append(ret, Dialog{Index: i, Item: f.Headers[i].String(), Text: d.Text})
		}
	}
	return ret
}

// SetDialog replaces the speaker and message of dialog item i, keeping its
// terminator. Text that cannot be encoded under f.Options is rejected.
func (f *File) SetDialog(i int, name, message string) error {
	if i < 0 || i >= len(f.Items) {
		return fmt.Errorf("%w: item %d of %d", ErrNotDialog, i, len(f.Items))
	}
	d, ok := f.Items[i].(*DialogItem)
	if !ok {
		return fmt.Errorf("%w: item %d %q", ErrNotDialog, i, f.Headers[i].String())
	}

	t := dialog.Text{Name: name, Message: message, Terminator: d.Text.Terminator}
	if _, err := dialog.Encode(t, f.Options.Dialog); err != nil {
		return fmt.Errorf("item %d: %w", i, err)
	}
	if f.Options.Dialog.Normalize {
		t.Name, t.Message = dialog.Normalize(name), dialog.Normalize(message)
	}
	d.Text = t
	f.state = Edited
	return nil
}

// Changed lists the dialog items whose text differs from what was loaded.
func (f *File) Changed() []int {
	var ret []int
	for i, it := range f.Items {
		if d, ok := it.(*DialogItem); ok && d.changed() {
			ret = append(ret, i)
		}
	}
	return ret
}
