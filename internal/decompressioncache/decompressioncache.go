// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package decompressioncache remembers the output of AKLZ decompression,
// keyed by a hash of the compressed input, in memory and optionally on disk.
package decompressioncache

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble/v2"
	"github.com/dgryski/go-tinylfu"
	"github.com/elliotnunn/sctedit/internal/aklz"
)

const (
	memEntries = 64
	keyVersion = 1 // bump when the decoder's output could change
)

// Cache is safe for concurrent use by multiple goroutines.
type Cache struct {
	mu  sync.Mutex
	mem *tinylfu.T[uint64, []byte]
	db  *pebble.DB // nil for a memory-only cache

	hits, misses int64
}

// Open creates a cache. If dir is empty nothing is persisted.
func Open(dir string) (*Cache, error) {
	c := &Cache{
		mem: tinylfu.New[uint64, []byte](memEntries, memEntries*10, func(k uint64) uint64 { return k }),
	}
	if dir != "" {
		db, err := pebble.Open(dir, &pebble.Options{})
		if err != nil {
			return nil, err
		}
		c.db = db
	}
	return c, nil
}

func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func dbKey(sum uint64) []byte {
	k := []byte("aklz")
	k = binary.BigEndian.AppendUint32(k, keyVersion)
	return binary.BigEndian.AppendUint64(k, sum)
}

// Decompress behaves like aklz.Decompress. Untagged input is returned as is
// without touching the cache, and failed decodes are never stored.
// The returned slice must not be modified.
func (c *Cache) Decompress(raw []byte) ([]byte, error) {
	if !aklz.IsCompressed(raw) {
		return raw, nil
	}
	sum := xxhash.Sum64(raw)

	c.mu.Lock()
	got, ok := c.mem.Get(sum)
	c.mu.Unlock()
	if ok {
		c.count(true)
		return got, nil
	}

	if got, ok := c.load(sum); ok {
		c.remember(sum, got)
		c.count(true)
		return got, nil
	}

	c.count(false)
	out, err := aklz.Decompress(raw)
	if err != nil {
		return out, err
	}
	c.remember(sum, out)
	c.store(sum, out)
	return out, nil
}

func (c *Cache) remember(sum uint64, data []byte) {
	c.mu.Lock()
	c.mem.Add(sum, data)
	c.mu.Unlock()
}

func (c *Cache) load(sum uint64) ([]byte, bool) {
	if c.db == nil {
		return nil, false
	}
	val, closer, err := c.db.Get(dbKey(sum))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false
	} else if err != nil {
		slog.Warn("decompressionCacheRead", "key", sum, "err", err)
		return nil, false
	}
	defer closer.Close()
	return slices.Clone(val), true
}

func (c *Cache) store(sum uint64, data []byte) {
	if c.db == nil {
		return
	}
	if err := c.db.Set(dbKey(sum), data, pebble.NoSync); err != nil {
		slog.Warn("decompressionCacheWrite", "key", sum, "err", err)
	}
}

func (c *Cache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// Stats reports lookups served from the cache and those that had to decode.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
