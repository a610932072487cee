// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Command sctedit extracts and edits the dialog in SCT script containers.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
)

type command struct {
	usage string
	run   func(args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"unpack": {"unpack IN [OUT]", cmdUnpack},
		"pack":   {"pack IN [OUT]", cmdPack},
		"list":   {"list FILE", cmdList},
		"dump":   {"dump [-o DIR] PATTERN...", cmdDump},
		"apply":  {"apply [-w] [-o OUT] [-order be|le] DUMP.json", cmdApply},
		"verify": {"verify PATTERN...", cmdVerify},
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(os.Stderr, "  sctedit", commands[name].usage)
	}
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log})))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "sctedit: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err := cmd.run(os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "sctedit:", err)
		os.Exit(1)
	}
}
