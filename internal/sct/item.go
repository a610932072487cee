// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package sct

import (
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/elliotnunn/sctedit/internal/dialog"
)

// Item is either a *PlainItem or a *DialogItem, decided once when the
// container is parsed.
type Item interface {
	// Raw returns the bytes the item was loaded with.
	Raw() []byte
	encode(opts Options) ([]byte, error)
}

type PlainItem struct {
	Data []byte
}

func (it *PlainItem) Raw() []byte { return it.Data }

func (it *PlainItem) encode(Options) ([]byte, error) {
	return slices.Clone(it.Data), nil
}

type DialogItem struct {
	Data []byte
	Text dialog.Text

	loaded uint64 // fingerprint of Text as parsed
}

func (it *DialogItem) Raw() []byte { return it.Data }

// encode keeps the original 16-byte preamble, appends the re-encoded text
// and pads with zeros to a multiple of four.
func (it *DialogItem) encode(opts Options) ([]byte, error) {
	body, err := dialog.Encode(it.Text, opts.Dialog)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, dialog.PreambleSize+len(body)+4)
	out = append(out, it.Data[:dialog.PreambleSize]...)
	out = append(out, body...)

	pad := (4 - len(out)%4) % 4
	if pad == 0 && opts.PadAligned {
		pad = 4
	}
	for range pad {
		out = append(out, 0)
	}
	return out, nil
}

func fingerprint(t dialog.Text) uint64 {
	d := xxhash.New()
	d.WriteString(t.Name)
	d.Write([]byte{0})
	d.WriteString(t.Message)
	d.Write([]byte{0, t.Terminator})
	return d.Sum64()
}

func (it *DialogItem) changed() bool {
	return fingerprint(it.Text) != it.loaded
}

func newItem(data []byte) (Item, error) {
	if !dialog.IsDialog(data) {
		return &PlainItem{Data: data}, nil
	}
	t, err := dialog.Decode(data)
	if err != nil {
		return nil, err
	}
	return &DialogItem{Data: data, Text: t, loaded: fingerprint(t)}, nil
}
