// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package sct

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"slices"
	"testing"

	"github.com/elliotnunn/sctedit/internal/aklz"
	"github.com/elliotnunn/sctedit/internal/cursor"
	"github.com/elliotnunn/sctedit/internal/dialog"
	"github.com/elliotnunn/sctedit/internal/endian"
)

type block struct {
	name string
	data []byte
}

func build(order endian.Endianness, gap []byte, blocks ...block) []byte {
	w := cursor.NewWriter(order, 0)
	w.Write([]byte("SCT\x00\x01\x00\x00\x00"))
	w.WriteUint32(uint32(len(blocks)))
	off := uint32(len(gap))
	for _, b := range blocks {
		w.WriteUint32(off)
		w.WriteFixed([]byte(b.name), nameSize)
		off += uint32(len(b.data))
	}
	w.Write(gap)
	for _, b := range blocks {
		w.Write(b.data)
	}
	return w.Bytes()
}

func seq(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

// Vyse says "Hello...", 37 bytes padded to 40
func vyse() []byte {
	b := make([]byte, dialog.PreambleSize, 40)
	b = append(b,
		0x5c, 0x68, 0x28, 0x81, 0x73, 'V', 'y', 's', 'e', 0x81, 0x74, 0x29,
		'H', 'e', 'l', 'l', 'o', 0x81, 0x63, 0x5c, 0x65, 0, 0, 0)
	return b
}

func word(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func TestTwoPlainItems(t *testing.T) {
	for _, order := range []endian.Endianness{endian.LittleEndian, endian.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			data := build(order, nil, block{"FIRST", seq(10, 0)}, block{"SECOND", seq(20, 0x40)})
			f, err := Parse(data, order)
			if err != nil {
				t.Fatal(err)
			}
			if len(f.Headers) != 2 || len(f.Items) != 2 {
				t.Fatalf("expected 2 items, got %d", len(f.Headers))
			}
			for i, want := range []Header{
				{Offset: 0, DataOffset: 52, DataSize: 10},
				{Offset: 10, DataOffset: 62, DataSize: 20},
			} {
				got := f.Headers[i]
				if got.Offset != want.Offset || got.DataOffset != want.DataOffset || got.DataSize != want.DataSize {
					t.Errorf("header %d: expected %+v got %+v", i, want, got)
				}
			}
			if f.Headers[1].String() != "SECOND" {
				t.Errorf("name %q", f.Headers[1].String())
			}
			if _, ok := f.Items[0].(*PlainItem); !ok {
				t.Errorf("item 0 is %T", f.Items[0])
			}
			if f.State() != ItemsLoaded {
				t.Errorf("state %v", f.State())
			}

			out, err := f.Serialize(order)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(out, data) {
				t.Errorf("unedited container changed\nexpected %s\ngot      %s", hex.EncodeToString(data), hex.EncodeToString(out))
			}
		})
	}
}

// A(16) D(40) B(8) T(20), header table ends at 92:
// A@92 D@108 B@148 T@156, filename "bg_01.bin" at 164.
func pointerFixture() []byte {
	a := slices.Concat(word(0), word(164-96), word(148-100), word(0))
	t := []byte("VIB_001\x00bg_01.bin\x00\x00\x00")
	return build(endian.LittleEndian, nil,
		block{"A", a}, block{"TALK_01", vyse()}, block{"B", seq(8, 0x80)}, block{"NAMES", t})
}

func TestRefScan(t *testing.T) {
	f, err := Parse(pointerFixture(), endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	want := []Ref{
		{Source: 0, Offset: 4, Target: FilenameTable},
		{Source: 0, Offset: 8, Target: 2},
	}
	if !slices.Equal(f.Refs, want) {
		t.Errorf("expected %+v got %+v", want, f.Refs)
	}
}

func TestRelocation(t *testing.T) {
	f, err := Parse(pointerFixture(), endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetDialog(1, "Vyse", "Hello...!!!!"); err != nil {
		t.Fatal(err)
	}
	if f.State() != Edited {
		t.Errorf("state %v", f.State())
	}
	out, err := f.Serialize(endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}

	g, err := Parse(out, endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if g.Headers[1].DataSize != 44 || g.Headers[2].Offset != 60 || g.Headers[3].Offset != 68 {
		t.Errorf("dialog size %d, B at %d, NAMES at %d",
			g.Headers[1].DataSize, g.Headers[2].Offset, g.Headers[3].Offset)
	}
	a := g.Items[0].Raw()
	if got := binary.BigEndian.Uint32(a[8:]); got != 48+4 {
		t.Errorf("pointer to B: expected %d got %d", 48+4, got)
	}
	if got := binary.BigEndian.Uint32(a[4:]); got != 68+4 {
		t.Errorf("filename pointer: expected %d got %d", 68+4, got)
	}
	if !slices.Equal(g.Refs, f.Refs) {
		t.Errorf("relocated pointers no longer resolve: %+v", g.Refs)
	}
	if d := g.Dialogs(); len(d) != 1 || d[0].Message != "Hello...!!!!" || d[0].Terminator != dialog.TermE {
		t.Errorf("dialogs after save: %+v", d)
	}

	again, _ := f.Serialize(endian.LittleEndian)
	if !bytes.Equal(again, out) {
		t.Error("second serialize differs from the first")
	}
	if f.State() != Serialized {
		t.Errorf("state %v", f.State())
	}
}

func TestShrinkLeavesFilenames(t *testing.T) {
	f, err := Parse(pointerFixture(), endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetDialog(1, "", "Hi"); err != nil {
		t.Fatal(err)
	}
	out, err := f.Serialize(endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	g, err := Parse(out, endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	// 16 + 6 + 2 + 2 = 26 bytes, padded to 28: B moves back by 12
	a := g.Items[0].Raw()
	if got := binary.BigEndian.Uint32(a[8:]); got != 48-12 {
		t.Errorf("pointer to B: expected %d got %d", 48-12, got)
	}
	if got := binary.BigEndian.Uint32(a[4:]); got != 68 {
		t.Errorf("filename pointer moved to %d", got)
	}
}

func TestDialogs(t *testing.T) {
	f, err := Parse(pointerFixture(), endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	d := f.Dialogs()
	if len(d) != 1 || d[0].Index != 1 || d[0].Item != "TALK_01" || d[0].Name != "Vyse" || d[0].Message != "Hello..." {
		t.Fatalf("Dialogs = %+v", d)
	}

	if err := f.SetDialog(0, "x", "y"); !errors.Is(err, ErrNotDialog) {
		t.Errorf("plain item: expected ErrNotDialog, got %v", err)
	}
	if err := f.SetDialog(9, "x", "y"); !errors.Is(err, ErrNotDialog) {
		t.Errorf("out of range: expected ErrNotDialog, got %v", err)
	}

	f.Options.Dialog.Strict = true
	if err := f.SetDialog(1, "Vyse", "日本"); !errors.Is(err, dialog.ErrUnencodable) {
		t.Errorf("expected ErrUnencodable, got %v", err)
	}

	if c := f.Changed(); len(c) != 0 {
		t.Errorf("nothing edited yet, Changed = %v", c)
	}
	f.SetDialog(1, "Fina", "Hello...")
	if c := f.Changed(); !slices.Equal(c, []int{1}) {
		t.Errorf("Changed = %v", c)
	}
	f.SetDialog(1, "Vyse", "Hello...")
	if c := f.Changed(); len(c) != 0 {
		t.Errorf("restored text still reported as changed: %v", c)
	}
}

func TestPadAligned(t *testing.T) {
	f, err := Parse(pointerFixture(), endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct {
		name, msg  string
		padAligned bool
		want       int64
	}{
		{"Vyse", "Hello...", false, 40}, // 16 + 12 + 7 + 2 = 37
		{"Vyse", "Hello...", true, 40},
		{"", "Goodbye!", false, 32}, // 16 + 6 + 8 + 2 = 32
		{"", "Goodbye!", true, 36},
	} {
		f.Options.PadAligned = c.padAligned
		if err := f.SetDialog(1, c.name, c.msg); err != nil {
			t.Fatal(err)
		}
		out, _ := f.Serialize(endian.LittleEndian)
		g, err := Parse(out, endian.LittleEndian)
		if err != nil {
			t.Fatal(err)
		}
		if g.Headers[1].DataSize != c.want {
			t.Errorf("%q padAligned=%v: size %d, want %d", c.msg, c.padAligned, g.Headers[1].DataSize, c.want)
		}
	}
}

func TestGapPreserved(t *testing.T) {
	gap := []byte("GAPGAPGA")
	data := build(endian.LittleEndian, gap, block{"ONE", seq(12, 1)}, block{"TWO", seq(4, 9)})
	f, err := Parse(data, endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if f.Headers[0].DataOffset != 12+40+8 {
		t.Errorf("first item at %d", f.Headers[0].DataOffset)
	}
	out, err := f.Serialize(endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("expected %s got %s", hex.EncodeToString(data), hex.EncodeToString(out))
	}
}

func TestLoadSave(t *testing.T) {
	plain := build(endian.BigEndian, nil, block{"TALK_01", vyse()}, block{"NAMES", []byte("a.bin\x00\x00\x00")})
	packed, err := aklz.Compress(plain)
	if err != nil {
		t.Fatal(err)
	}

	f, err := Load(packed)
	if err != nil {
		t.Fatal(err)
	}
	if f.Order != endian.BigEndian {
		t.Errorf("AKLZ container read as %v", f.Order)
	}

	out, err := f.Save(endian.BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if !aklz.IsCompressed(out) {
		t.Fatal("big-endian save is not compressed")
	}
	unpacked, err := aklz.Decompress(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(unpacked, plain) {
		t.Errorf("expected %s got %s", hex.EncodeToString(plain), hex.EncodeToString(unpacked))
	}

	// converting to the bare little-endian form
	le, err := f.Save(endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if aklz.IsCompressed(le) || le[countAt] != 2 {
		t.Errorf("little-endian save starts %s", hex.EncodeToString(le[:16]))
	}
	g, err := Load(le)
	if err != nil {
		t.Fatal(err)
	}
	if g.Order != endian.LittleEndian || g.Dialogs()[0].Name != "Vyse" {
		t.Errorf("reloaded %v %+v", g.Order, g.Dialogs())
	}
}

func TestMalformed(t *testing.T) {
	good := build(endian.LittleEndian, nil, block{"ONE", seq(8, 0)}, block{"TWO", seq(8, 0)})

	unordered := bytes.Clone(good)
	binary.LittleEndian.PutUint32(unordered[tableAt:], 8)
	binary.LittleEndian.PutUint32(unordered[tableAt+headerSize:], 0)

	pastEnd := bytes.Clone(good)
	binary.LittleEndian.PutUint32(pastEnd[tableAt+headerSize:], 0x1000)

	manyItems := bytes.Clone(good)
	binary.LittleEndian.PutUint32(manyItems[countAt:], 1000)

	badDialog := build(endian.LittleEndian, nil, block{"TALK", vyse()[:30]}, block{"NAMES", seq(4, 1)})

	for name, data := range map[string][]byte{
		"short":     good[:10],
		"unordered": unordered,
		"pastend":   pastEnd,
		"table":     manyItems,
		"dialog":    badDialog,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(data, endian.LittleEndian); !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}

	if _, err := Load(append([]byte("AKLZ"), make([]byte, 4)...)); !errors.Is(err, aklz.ErrFormat) {
		t.Errorf("expected aklz.ErrFormat, got %v", err)
	}
}

func TestEmptyContainer(t *testing.T) {
	data := build(endian.LittleEndian, nil)
	f, err := Parse(data, endian.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.Serialize(endian.LittleEndian)
	if err != nil || !bytes.Equal(out, data) {
		t.Errorf("got %s, %v", hex.EncodeToString(out), err)
	}
}

func TestIsFilename(t *testing.T) {
	for in, want := range map[string]bool{
		"bg_01.bin\x00": true,
		"\x00":          false,
		"bad name\x00":  false,
		"unterminated":  false,
	} {
		if isFilename([]byte(in)) != want {
			t.Errorf("isFilename(%q) != %v", in, want)
		}
	}
}
