// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/elliotnunn/sctedit/internal/aklz"
	"github.com/elliotnunn/sctedit/internal/decompressioncache"
	"github.com/elliotnunn/sctedit/internal/endian"
	"github.com/elliotnunn/sctedit/internal/filelock"
	"github.com/elliotnunn/sctedit/internal/sct"
)

// container is a parsed SCT file together with where it came from.
type container struct {
	path    string
	wrapped bool   // had a gzip/bzip2/xz layer, so cannot be rewritten in place
	stored  []byte // after transport unwrapping, possibly AKLZ
	data    []byte // fully decompressed
	*sct.File
}

func parseContainer(cache *decompressioncache.Cache, path string, raw []byte) (*container, error) {
	stored, inner, err := unwrapTransport(path, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	order, data := endian.LittleEndian, stored
	if aklz.IsCompressed(stored) {
		order = endian.BigEndian
		data, err = cache.Decompress(stored)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", path, sct.ErrCompression, err)
		}
	}

	f, err := sct.Parse(data, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Options = cfg.sctOptions()
	return &container{path: path, wrapped: inner != "", stored: stored, data: data, File: f}, nil
}

func openContainer(cache *decompressioncache.Cache, path string) (*container, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseContainer(cache, path, raw)
}

// editInPlace holds an exclusive lock on path while edit turns the current
// contents into the replacement.
func editInPlace(path string, edit func(raw []byte) ([]byte, error)) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := filelock.Lock(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer filelock.Unlock(f)

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	out, err := edit(raw)
	if err != nil {
		return err
	}

	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt(out, 0); err != nil {
		return err
	}
	return f.Sync()
}

func parseOrder(s string) (endian.Endianness, error) {
	switch s {
	case "be", "big":
		return endian.BigEndian, nil
	case "le", "little":
		return endian.LittleEndian, nil
	}
	return 0, fmt.Errorf("unknown byte order %q, want be or le", s)
}
