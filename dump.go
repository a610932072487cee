// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/elliotnunn/sctedit/internal/decompressioncache"
	"github.com/elliotnunn/sctedit/internal/sct"
)

// dumpFile is the JSON a translator edits. Only entries whose name or
// message differ from the container are applied.
type dumpFile struct {
	File    string      `json:"file"` // relative to the dump's directory
	Order   string      `json:"order"`
	Entries []dumpEntry `json:"entries"`
}

type dumpEntry struct {
	Index      int    `json:"index"`
	Item       string `json:"item"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	Terminator string `json:"terminator,omitempty"`
}

func newDump(c *container, dumpDir string) dumpFile {
	d := dumpFile{File: c.path, Order: c.Order.String(), Entries: []dumpEntry{}}
	if abs, err := filepath.Abs(c.path); err == nil {
		if rel, err := filepath.Rel(dumpDir, abs); err == nil {
			d.File = filepath.ToSlash(rel)
		} else {
			d.File = abs
		}
	}
	for _, e := range c.Dialogs() {
		de := dumpEntry{Index: e.Index, Item: e.Item, Name: e.Name, Message: e.Message}
		if e.Terminator != 0 {
			de.Terminator = string(rune(e.Terminator))
		}
		d.Entries = append(d.Entries, de)
	}
	return d
}

func cmdDump(args []string) error {
	fs := flags("dump")
	outDir := fs.String("o", "", "write the JSON files under this directory instead of beside each input")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no patterns")
	}

	return withCache(func(cache *decompressioncache.Cache) error {
		var failed, written int
		for _, p := range fs.Args() {
			base, _ := doublestar.SplitPattern(filepath.ToSlash(p))
			for _, name := range expand([]string{p}) {
				out := name + ".json"
				if *outDir != "" {
					rel, err := filepath.Rel(filepath.FromSlash(base), name)
					if err != nil {
						rel = filepath.Base(name)
					}
					out = filepath.Join(*outDir, rel+".json")
				}
				if err := dumpOne(cache, name, out); err != nil {
					slog.Warn("dumpSkipped", "file", name, "err", err)
					failed++
					continue
				}
				written++
			}
		}
		slog.Info("dumped", "files", written, "failed", failed)
		if failed > 0 {
			return fmt.Errorf("%d files could not be dumped", failed)
		}
		return nil
	})
}

func dumpOne(cache *decompressioncache.Cache, name, out string) error {
	c, err := openContainer(cache, name)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(filepath.Dir(out))
	if err != nil {
		return err
	}
	js, err := json.MarshalIndent(newDump(c, dir), "", "\t")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, append(js, '\n'), 0o644)
}

func cmdApply(args []string) error {
	fs := flags("apply")
	inPlace := fs.Bool("w", false, "rewrite the container named in the dump")
	outPath := fs.String("o", "", "write the edited container here")
	order := orderFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *inPlace == (*outPath != "") {
		fs.Usage()
		return errors.New("need one dump file and exactly one of -w or -o")
	}

	js, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	var d dumpFile
	if err := json.Unmarshal(js, &d); err != nil {
		return fmt.Errorf("%s: %w", fs.Arg(0), err)
	}
	target := filepath.FromSlash(d.File)
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(fs.Arg(0)), target)
	}

	return withCache(func(cache *decompressioncache.Cache) error {
		edit := func(raw []byte) ([]byte, error) {
			c, err := parseContainer(cache, target, raw)
			if err != nil {
				return nil, err
			}
			if *inPlace && c.wrapped {
				return nil, fmt.Errorf("%s: cannot rewrite a compressed download in place, use -o", target)
			}
			n, err := applyEntries(c.File, d.Entries)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", target, err)
			}

			o := c.Order
			if *order != "" {
				if o, err = parseOrder(*order); err != nil {
					return nil, err
				}
			}
			out, err := c.Save(o)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", target, err)
			}
			slog.Info("applied", "file", target, "changed", n, "order", o, "size", len(out))
			return out, nil
		}

		if *inPlace {
			return editInPlace(target, edit)
		}
		raw, err := os.ReadFile(target)
		if err != nil {
			return err
		}
		out, err := edit(raw)
		if err != nil {
			return err
		}
		return os.WriteFile(*outPath, out, 0o644)
	})
}

// applyEntries sets every entry that differs from the container and
// reports how many changed.
func applyEntries(f *sct.File, entries []dumpEntry) (int, error) {
	current := make(map[int]sct.Dialog)
	for _, e := range f.Dialogs() {
		current[e.Index] = e
	}

	n := 0
	for _, e := range entries {
		cur, ok := current[e.Index]
		if !ok {
			return n, fmt.Errorf("entry for item %d: %w", e.Index, sct.ErrNotDialog)
		}
		if cur.Item != e.Item {
			return n, fmt.Errorf("entry for item %d names %q but the container has %q", e.Index, e.Item, cur.Item)
		}
		if e.Terminator != "" && e.Terminator != string(rune(cur.Terminator)) {
			slog.Warn("terminatorIgnored", "item", e.Index, "dump", e.Terminator)
		}
		if e.Name == cur.Name && e.Message == cur.Message {
			continue
		}
		if err := f.SetDialog(e.Index, e.Name, e.Message); err != nil {
			return n, err
		}
		n++
	}
	slog.Debug("changedDialogs", "items", f.Changed())
	return n, nil
}
