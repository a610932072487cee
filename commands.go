// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/elliotnunn/sctedit/internal/aklz"
	"github.com/elliotnunn/sctedit/internal/decompressioncache"
	"github.com/elliotnunn/sctedit/internal/endian"
	"github.com/elliotnunn/sctedit/internal/sct"
)

var stdout io.Writer = os.Stdout

func flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintln(fs.Output(), "usage: sctedit", commands[name].usage); fs.PrintDefaults() }
	return fs
}

func withCache(run func(c *decompressioncache.Cache) error) error {
	c, err := decompressioncache.Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer func() {
		hits, misses := c.Stats()
		slog.Debug("decompressionCache", "hits", hits, "misses", misses)
		c.Close()
	}()
	return run(c)
}

// expand resolves each pattern with ** support, in pattern order.
func expand(patterns []string) []string {
	var ret []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			slog.Warn("badPattern", "pattern", p, "err", err)
			continue
		}
		if len(matches) == 0 {
			slog.Warn("noMatch", "pattern", p)
		}
		ret = append(ret, matches...)
	}
	return ret
}

func cmdUnpack(args []string) error {
	fs := flags("unpack")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return errors.New("wrong number of arguments")
	}
	in, out := fs.Arg(0), fs.Arg(0)+".raw"
	if fs.NArg() == 2 {
		out = fs.Arg(1)
	}

	return withCache(func(cache *decompressioncache.Cache) error {
		c, err := openContainer(cache, in)
		if err != nil {
			return err
		}
		if c.Order != endian.BigEndian {
			slog.Info("notCompressed", "file", in)
		}
		if err := os.WriteFile(out, c.data, 0o644); err != nil {
			return err
		}
		slog.Info("unpacked", "in", in, "out", out, "size", len(c.data))
		return nil
	})
}

func cmdPack(args []string) error {
	fs := flags("pack")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return errors.New("wrong number of arguments")
	}
	in := fs.Arg(0)
	out := changeSuffix(in, ".raw=")
	if out == in {
		out = in + ".aklz"
	}
	if fs.NArg() == 2 {
		out = fs.Arg(1)
	}

	raw, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	data, _, err := unwrapTransport(in, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	if aklz.IsCompressed(data) {
		return fmt.Errorf("%s: already AKLZ compressed", in)
	}
	// AKLZ containers are always big-endian inside
	if _, err := sct.Parse(data, endian.BigEndian); err != nil {
		return fmt.Errorf("%s: not a big-endian container: %w", in, err)
	}

	packed, err := aklz.Compress(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, packed, 0o644); err != nil {
		return err
	}
	slog.Info("packed", "in", in, "out", out, "size", len(data), "packed", len(packed))
	return nil
}

func cmdList(args []string) error {
	fs := flags("list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("wrong number of arguments")
	}

	return withCache(func(cache *decompressioncache.Cache) error {
		c, err := openContainer(cache, fs.Arg(0))
		if err != nil {
			return err
		}
		listContainer(stdout, c)
		return nil
	})
}

func listContainer(w io.Writer, c *container) {
	fmt.Fprintf(w, "%s: %v, %d items, %d dialogs, %d references\n",
		c.path, c.Order, len(c.Items), len(c.Dialogs()), len(c.Refs))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tOFFSET\tSIZE\tKIND")
	for i, it := range c.Items {
		h := &c.Headers[i]
		kind := "plain"
		if d, ok := it.(*sct.DialogItem); ok {
			kind = fmt.Sprintf("dialog %q", d.Text.Name)
		}
		fmt.Fprintf(tw, "%d\t%s\t%#x\t%d\t%s\n", i, h, h.Offset, h.DataSize, kind)
	}
	tw.Flush()

	for _, r := range c.Refs {
		if r.IsFilename() {
			fmt.Fprintf(w, "item %d +%#x -> filename table\n", r.Source, r.Offset)
		} else {
			fmt.Fprintf(w, "item %d +%#x -> item %d %s\n", r.Source, r.Offset, r.Target, &c.Headers[r.Target])
		}
	}
}

func cmdVerify(args []string) error {
	fs := flags("verify")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := expand(fs.Args())
	if len(files) == 0 {
		return errors.New("no files to verify")
	}

	return withCache(func(cache *decompressioncache.Cache) error {
		var bad int
		for _, name := range files {
			if err := verifyOne(cache, name); err != nil {
				slog.Warn("verifyFailed", "file", name, "err", err)
				bad++
			}
		}
		if bad > 0 {
			return fmt.Errorf("%d of %d files did not survive a round trip", bad, len(files))
		}
		return nil
	})
}

// verifyOne saves an unedited container in its own byte order and checks
// that the result decompresses to what was loaded.
func verifyOne(cache *decompressioncache.Cache, name string) error {
	c, err := openContainer(cache, name)
	if err != nil {
		return err
	}
	saved, err := c.Save(c.Order)
	if err != nil {
		return err
	}
	again, err := aklz.Decompress(saved)
	if err != nil {
		return err
	}

	want, got := xxhash.Sum64(c.data), xxhash.Sum64(again)
	if want != got || !bytes.Equal(c.data, again) {
		return fmt.Errorf("digest %016x became %016x", want, got)
	}
	slog.Info("verified", "file", name, "digest", fmt.Sprintf("%016x", want), "dialogs", len(c.Dialogs()))
	return nil
}

func orderFlag(fs *flag.FlagSet) *string {
	return fs.String("order", "", "byte order of the output, be (AKLZ) or le; default is the input's")
}
