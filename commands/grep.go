package commands

import (
	"context"
	"errors"
	"regexp"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
)

// inputOrFiles returns the lines of the named files, or the piped input if
// no files are named.
func inputOrFiles(inv *engine.Invocation, files []string) ([]string, error) {
	if len(files) == 0 {
		return input(inv)
	}

	var lines []string
	for _, file := range files {
		content, err := inv.VFS().ReadFile(file)
		if err != nil {
			return nil, engine.PathError(file, err)
		}
		lines = append(lines, fileLines(content)...)
	}
	return lines, nil
}

func grepCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "grep",
		Kind:  engine.KindBuiltin,
		Use:   "grep [-iv] PATTERN [FILE]...",
		Short: "Print lines of the piped input or FILE(s) matching a regular expression.",
		Flags: func(opts *getopt.Set) {
			opts.Bool('i', "ignore case distinctions")
			opts.Bool('v', "select non-matching lines")
		},
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			if len(inv.Args) == 0 {
				return nil, errors.New("missing pattern")
			}

			pattern := inv.Args[0]
			if inv.Option("i") {
				pattern = "(?i)" + pattern
			}
			regex, err := regexp.Compile(pattern)
			if err != nil {
				return nil, err
			}

			lines, err := inputOrFiles(inv, inv.Args[1:])
			if err != nil {
				return nil, err
			}

			invert := inv.Option("v")
			matches := []string{}
			for _, line := range lines {
				if regex.MatchString(line) != invert {
					inv.Out.WriteLine(line)
					matches = append(matches, line)
				}
			}
			// An empty result still counts as piped input downstream.
			return engine.Lines(matches...), nil
		},
	}
}
