package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/startterm/startsh/core/engine"
)

func touchCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "touch",
		Kind:  engine.KindFilesystem,
		Use:   "touch FILE...",
		Short: "Create each FILE that does not exist as an empty file.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			if len(inv.Args) == 0 {
				return nil, errors.New("missing file operand")
			}
			return nil, eachArg(inv, inv.Args, func(file string) error {
				if err := inv.VFS().Touch(ctx, file); err != nil {
					return engine.PathError(file, err)
				}
				return nil
			})
		},
	}
}

// writeCommand builds write and append. Both take the content from the
// remaining arguments or, failing that, the piped input.
func writeCommand(name string) *SimpleCommand {
	short := "Replace the content of FILE with TEXT or the piped input."
	if name == "append" {
		short = "Add TEXT or the piped input to the end of FILE."
	}

	return &SimpleCommand{
		Name:  name,
		Kind:  engine.KindFilesystem,
		Use:   name + " FILE [TEXT...]",
		Short: short,
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			if len(inv.Args) == 0 {
				return nil, errors.New("missing file operand")
			}

			file := inv.Args[0]
			var content string
			switch {
			case len(inv.Args) > 1:
				content = strings.Join(inv.Args[1:], " ")
			case inv.Piped():
				content = strings.Join(inv.Input.Lines, "\n")
			default:
				return nil, errors.New("missing content")
			}

			var err error
			if name == "append" {
				err = inv.VFS().AppendFile(ctx, file, content)
			} else {
				err = inv.VFS().WriteFile(ctx, file, content)
			}
			if err != nil {
				return nil, engine.PathError(file, err)
			}
			return nil, nil
		},
	}
}
