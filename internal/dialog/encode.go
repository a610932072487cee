// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package dialog

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrUnencodable = errors.New("character has no dialog encoding")

// EncodeError locates the first character that could not be encoded.
type EncodeError struct {
	Field string // "name", "message" or "terminator"
	Index int    // byte offset within the field
	Rune  rune
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("dialog %s: cannot encode %q at offset %d", e.Field, e.Rune, e.Index)
}

func (e *EncodeError) Unwrap() error { return ErrUnencodable }

type Options struct {
	// Strict rejects unencodable characters instead of writing '?'.
	Strict bool
	// Normalize folds typographic punctuation to ASCII first.
	Normalize bool
}

const substitute = '?'

type encoder struct {
	opts Options
	buf  []byte
	err  error
}

// bad records an unencodable character and reports whether encoding may
// continue with a substitute.
func (e *encoder) bad(field string, i int, r rune) bool {
	if e.opts.Strict {
		if e.err == nil {
			e.err = &EncodeError{Field: field, Index: i, Rune: r}
		}
		return false
	}
	e.buf = append(e.buf, substitute)
	return true
}

// Encode produces the bytes that follow the 16-byte item preamble:
// the name block, the message and its terminator. The caller pads.
func Encode(t Text, opts Options) ([]byte, error) {
	if opts.Normalize {
		t.Name = Normalize(t.Name)
		t.Message = Normalize(t.Message)
	}
	e := &encoder{opts: opts, buf: make([]byte, 0, 8+len(t.Name)+len(t.Message))}

	e.buf = append(e.buf, namePreamble...)
	if t.Name != "" {
		e.buf = append(e.buf, hasName)
		e.name(t.Name)
		e.buf = append(e.buf, nameTrailer...)
	} else {
		e.buf = append(e.buf, noName, rightParen)
	}

	e.message(t.Message)

	switch {
	case t.Terminator == 0:
		e.buf = append(e.buf, 0)
	case isTerminator(t.Terminator):
		e.buf = append(e.buf, escape, t.Terminator)
	default:
		// an unknown terminator would not end the message
		if e.err == nil {
			e.err = &EncodeError{Field: "terminator", Rune: rune(t.Terminator)}
		}
	}

	if e.err != nil {
		return nil, e.err
	}
	return e.buf, nil
}

func (e *encoder) name(s string) {
	for i, r := range s {
		switch {
		case r == ' ':
			e.buf = append(e.buf, wideSpace)
		case r == nameEnd || r == wideSpace || r > 0xff:
			if !e.bad("name", i, r) {
				return
			}
		default:
			e.buf = append(e.buf, byte(r))
		}
	}
}

func (e *encoder) message(s string) {
	open := false // quote parity
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "\r\n"):
			e.buf = append(e.buf, escape, newline)
			i += 2
			continue
		case strings.HasPrefix(s[i:], "..."):
			e.buf = append(e.buf, ellipsis, ellipsis2)
			i += 3
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '\n':
			e.buf = append(e.buf, escape, newline)
		case r == ' ':
			e.buf = append(e.buf, wideSpace)
		case r == '"':
			if open {
				e.buf = append(e.buf, rightQuote)
			} else {
				e.buf = append(e.buf, leftQuote)
			}
			open = !open
		case r == '\\':
			// an escape pair that decoding passed through verbatim
			next, nsize := utf8.DecodeRuneInString(s[i+size:])
			if nsize == 0 || next > 0xff || next == newline || isTerminator(byte(next)) {
				if !e.bad("message", i, r) {
					return
				}
			} else {
				e.buf = append(e.buf, escape, byte(next))
				size += nsize
			}
		case r == ellipsis:
			if strings.HasPrefix(s[i+size:], "c") {
				if !e.bad("message", i, r) {
					return
				}
			} else {
				e.buf = append(e.buf, ellipsis)
			}
		case r == 0 || r == leftQuote || r == rightQuote || r == wideSpace || r > 0xff:
			if !e.bad("message", i, r) {
				return
			}
		default:
			e.buf = append(e.buf, byte(r))
		}
		i += size
	}
}
