// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/elliotnunn/sctedit/internal/dialog"
	"github.com/elliotnunn/sctedit/internal/sct"
	"gopkg.in/ini.v1"
)

type config struct {
	Strict     bool
	Normalize  bool
	PadAligned bool
	Cache      string // directory, or empty for memory only
	Log        slog.Level
}

func (c config) sctOptions() sct.Options {
	return sct.Options{
		Dialog:     dialog.Options{Strict: c.Strict, Normalize: c.Normalize},
		PadAligned: c.PadAligned,
	}
}

var cfg config = mustConfig()

func mustConfig() config {
	c, err := readConfig(os.Getenv)
	if err != nil {
		panic(err.Error())
	}
	return c
}

// readConfig layers the environment over sctedit.ini (or the file named by
// SCTEDIT_CONFIG) over the defaults.
func readConfig(getenv func(string) string) (config, error) {
	var c config

	path, explicit := getenv("SCTEDIT_CONFIG"), true
	if path == "" {
		path, explicit = "sctedit.ini", false
	}
	f := ini.Empty()
	if _, err := os.Stat(path); err == nil || explicit || !errors.Is(err, fs.ErrNotExist) {
		f, err = ini.Load(path)
		if err != nil {
			return c, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	sec := f.Section("sctedit")

	type setting struct {
		key, env string
		parse    func(string) error
	}
	boolean := func(dst *bool) func(string) error {
		return func(s string) (err error) {
			*dst, err = strconv.ParseBool(s)
			return err
		}
	}
	for _, s := range []setting{
		{"strict", "SCTEDIT_STRICT", boolean(&c.Strict)},
		{"normalize", "SCTEDIT_NORMALIZE", boolean(&c.Normalize)},
		{"pad_aligned", "SCTEDIT_PAD_ALIGNED", boolean(&c.PadAligned)},
		{"cache", "SCTEDIT_CACHE", func(v string) error { c.Cache = v; return nil }},
		{"log", "SCTEDIT_LOG", func(v string) error { return c.Log.UnmarshalText([]byte(v)) }},
	} {
		if v := sec.Key(s.key).String(); v != "" {
			if err := s.parse(v); err != nil {
				return c, fmt.Errorf("malformed %s key in %s: %q", s.key, path, v)
			}
		}
		if v := getenv(s.env); v != "" {
			if err := s.parse(v); err != nil {
				return c, fmt.Errorf("malformed %s environment variable: %q", s.env, v)
			}
		}
	}
	return c, nil
}
