// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package main

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"strings"

	"github.com/therootcompany/xz"
)

// unwrapTransport removes a general-purpose compression layer that someone
// put around a container for distribution. AKLZ itself is left alone.
// It reports the name the unwrapped file would have, or "" if there was no
// wrapper.
func unwrapTransport(name string, raw []byte) ([]byte, string, error) {
	matchAt := func(s string, offset int) bool {
		return len(raw) >= offset+len(s) && string(raw[offset:][:len(s)]) == s
	}

	var r io.Reader
	switch {
	case matchAt("\x1f\x8b", 0): // gzip
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, name, err
		}
		r, name = zr, changeSuffix(name, ".gz .gzip")
	case matchAt("BZh", 0): // bzip2
		r, name = bzip2.NewReader(bytes.NewReader(raw)), changeSuffix(name, ".bz .bz2 .bzip2")
	case matchAt("\xfd7zXZ\x00", 0): // xz
		xr, err := xz.NewReader(bytes.NewReader(raw), xz.DefaultDictMax)
		if err != nil {
			return nil, name, err
		}
		r, name = xr, changeSuffix(name, ".xz")
	default:
		return raw, "", nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, name, err
	}
	return data, name, nil
}

func changeSuffix(s string, suffixes string) string {
	for _, rule := range strings.Split(suffixes, " ") {
		from, to, _ := strings.Cut(rule, "=")
		if strings.HasSuffix(s, from) && len(s) > len(from) {
			return s[:len(s)-len(from)] + to
		}
	}
	return s
}
