package commands

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
)

type wcCount struct {
	lines int
	words int
	chars int

	inSpace bool
}

func (w *wcCount) write(text string) {
	for i, c := range text {
		w.chars++
		if unicode.IsSpace(c) {
			w.inSpace = true
		} else {
			if w.inSpace || i == 0 {
				w.words++
			}
			w.inSpace = false
		}
	}
}

// newWcCount counts lines as given, and characters over the lines joined by
// newlines.
func newWcCount(lines []string) *wcCount {
	var out wcCount
	out.lines = len(lines)
	out.write(strings.Join(lines, "\n"))
	return &out
}

func wcCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "wc",
		Kind:  engine.KindBuiltin,
		Use:   "wc [-lwm] [FILE]...",
		Short: "Print the number of lines, words, and characters in the piped input or FILE(s).",
		Flags: func(opts *getopt.Set) {
			opts.Bool('l', "print the line count")
			opts.Bool('w', "print the word count")
			opts.Bool('m', "print the character count")
		},
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			lines, err := inputOrFiles(inv, inv.Args)
			if err != nil {
				return nil, err
			}
			count := newWcCount(lines)

			nonePicked := !inv.Option("l") && !inv.Option("w") && !inv.Option("m")
			var cols []string
			if inv.Option("l") || nonePicked {
				cols = append(cols, fmt.Sprint(count.lines))
			}
			if inv.Option("w") || nonePicked {
				cols = append(cols, fmt.Sprint(count.words))
			}
			if inv.Option("m") || nonePicked {
				cols = append(cols, fmt.Sprint(count.chars))
			}

			inv.Out.WriteLine(" " + strings.Join(cols, "  "))
			return nil, nil
		},
	}
}
