package commands

import (
	"context"
	"strings"

	"github.com/startterm/startsh/core/engine"
)

// fileLines splits file content into lines, ignoring one trailing newline.
func fileLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func catCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "cat",
		Kind:  engine.KindFilesystem,
		Use:   "cat [FILE...]",
		Short: "Concatenate FILE(s), or the piped input, to the output.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			if len(inv.Args) == 0 {
				lines, err := input(inv)
				if err != nil {
					return nil, err
				}
				for _, line := range lines {
					inv.Out.WriteLine(line)
				}
				return nil, nil
			}

			return nil, eachArg(inv, inv.Args, func(file string) error {
				content, err := inv.VFS().ReadFile(file)
				if err != nil {
					return engine.PathError(file, err)
				}
				for _, line := range fileLines(content) {
					inv.Out.WriteLine(line)
				}
				return nil
			})
		},
	}
}
