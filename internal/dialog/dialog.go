// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package dialog converts the escape-coded text of an SCT dialog item to and
// from Go strings.
//
// A dialog item is a 16-byte preamble followed by `\h(`, 0x81, a name
// discriminant and the message body. Decoded messages use "\n" for line
// breaks and plain `"` for both quote bytes.
package dialog

import (
	"errors"
	"strings"
)

const (
	PreambleSize = 0x10
	nameTypeAt   = 0x14

	escape     = 0x5c
	newline    = 0x6e
	hasName    = 0x73
	noName     = 0x40
	nameEnd    = 0x81
	rightParen = 0x29
	wideSpace  = 0x7f
	ellipsis   = 0x81
	ellipsis2  = 0x63
	leftQuote  = 0x5b
	rightQuote = 0x5d
)

// Terminator codes follow the escape byte at the end of a message.
const (
	TermE byte = 'e'
	TermC byte = 'c'
	TermA byte = 'a'
)

var (
	namePreamble = []byte{escape, 0x68, 0x28, 0x81}
	nameTrailer  = []byte{nameEnd, 0x74, rightParen}
)

var ErrTruncated = errors.New("dialog text runs past the end of its item")

// Text is the editable content of one dialog item.
type Text struct {
	Name    string
	Message string

	// Terminator is the code that ended the message (TermE, TermC or TermA),
	// or 0 if the message ended on a NUL byte.
	Terminator byte
}

func isTerminator(c byte) bool {
	return c == TermE || c == TermC || c == TermA
}

// IsDialog reports whether an item's data starts like a dialog entry.
func IsDialog(data []byte) bool {
	return len(data) > nameTypeAt &&
		data[PreambleSize] == namePreamble[0] &&
		data[PreambleSize+1] == namePreamble[1] &&
		data[PreambleSize+2] == namePreamble[2]
}

// Decode reads the name and message of a dialog item.
// Bytes outside ASCII decode to the rune of the same value.
func Decode(data []byte) (Text, error) {
	var t Text
	if !IsDialog(data) {
		return t, ErrTruncated
	}

	p := nameTypeAt
	if data[p] == hasName {
		var name strings.Builder
		for p++; ; p++ {
			if p >= len(data) {
				return t, ErrTruncated
			}
			c := data[p]
			if c == nameEnd {
				break
			} else if c == wideSpace {
				name.WriteByte(' ')
			} else {
				name.WriteRune(rune(c))
			}
		}
		t.Name = name.String()
		p += len(nameTrailer)
	} else {
		p += 2
	}

	var msg strings.Builder
	for {
		if p >= len(data) {
			return t, ErrTruncated
		}
		c := data[p]
		switch c {
		case 0:
			t.Message = msg.String()
			return t, nil
		case escape:
			if p+1 >= len(data) {
				return t, ErrTruncated
			}
			next := data[p+1]
			if isTerminator(next) {
				t.Message = msg.String()
				t.Terminator = next
				return t, nil
			} else if next == newline {
				msg.WriteByte('\n')
			} else {
				msg.WriteByte('\\')
				msg.WriteRune(rune(next))
			}
			p += 2
		case ellipsis:
			if p+1 < len(data) && data[p+1] == ellipsis2 {
				msg.WriteString("...")
				p += 2
			} else {
				msg.WriteRune(ellipsis)
				p++
			}
		case leftQuote, rightQuote:
			msg.WriteByte('"')
			p++
		case wideSpace:
			msg.WriteByte(' ')
			p++
		default:
			msg.WriteRune(rune(c))
			p++
		}
	}
}
