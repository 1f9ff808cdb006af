package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
)

const defaultHeadLines = 10

// headCommand builds head and tail.
func headCommand(name string) *SimpleCommand {
	short := "Print the first N lines of the piped input or FILE(s)."
	if name == "tail" {
		short = "Print the last N lines of the piped input or FILE(s)."
	}

	cmd := &SimpleCommand{
		Name:  name,
		Kind:  engine.KindBuiltin,
		Use:   name + " [-n N] [FILE]...",
		Short: short,
		Flags: func(opts *getopt.Set) {
			opts.StringLong("lines", 'n', strconv.Itoa(defaultHeadLines), "print N lines", "N")
		},
		// -n takes a value, getopt validates the words itself.
		Lenient: true,
	}

	cmd.Run = func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
		opts := cmd.flagSet()
		files, err := parseFlags(inv, opts)
		if err != nil {
			return nil, err
		}
		n := opts.Lookup('n').String()
		count, err := strconv.Atoi(n)
		if err != nil || count < 0 {
			return nil, fmt.Errorf("invalid number of lines: %s", n)
		}

		lines, err := inputOrFiles(inv, files)
		if err != nil {
			return nil, err
		}

		if count > len(lines) {
			count = len(lines)
		}
		if name == "tail" {
			lines = lines[len(lines)-count:]
		} else {
			lines = lines[:count]
		}

		for _, line := range lines {
			inv.Out.WriteLine(line)
		}
		return engine.Lines(lines...), nil
	}
	return cmd
}

func sortCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "sort",
		Kind:  engine.KindBuiltin,
		Use:   "sort [-ru] [FILE]...",
		Short: "Sort the lines of the piped input or FILE(s).",
		Flags: func(opts *getopt.Set) {
			opts.BoolLong("reverse", 'r', "reverse the result of comparisons")
			opts.BoolLong("unique", 'u', "output only the first of equal lines")
		},
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			lines, err := inputOrFiles(inv, inv.Args)
			if err != nil {
				return nil, err
			}

			sorted := append([]string{}, lines...)
			if inv.Option("r", "reverse") {
				sort.Sort(sort.Reverse(sort.StringSlice(sorted)))
			} else {
				sort.Strings(sorted)
			}

			if inv.Option("u", "unique") {
				unique := sorted[:0]
				for _, line := range sorted {
					if len(unique) == 0 || line != unique[len(unique)-1] {
						unique = append(unique, line)
					}
				}
				sorted = unique
			}

			for _, line := range sorted {
				inv.Out.WriteLine(line)
			}
			return engine.Lines(sorted...), nil
		},
	}
}
