// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package dialog

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Typographic punctuation that translators paste in from word processors.
func foldPunct(r rune) rune {
	switch r {
	case '‘', '’', '‚', '′':
		return '\''
	case '“', '”', '„', '«', '»', '″':
		return '"'
	case '‐', '‑', '‒', '–', '—', '―', '−':
		return '-'
	}
	return r
}

// Normalize applies NFKC (which also expands U+2026 to three dots and
// turns no-break spaces into spaces) and folds curly quotes and dashes to
// their ASCII forms. Text that fails to transform is returned unchanged.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKC, runes.Map(foldPunct))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
