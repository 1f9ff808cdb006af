package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/startterm/startsh/core/engine"
)

func chmodCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "chmod",
		Kind:  engine.KindFilesystem,
		Use:   "chmod MODE FILE...",
		Short: "Change the mode of each FILE to MODE, octal or symbolic like u+x,go-w.",
		// Symbolic modes such as -w look like options.
		Lenient: true,
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			switch len(inv.Words) {
			case 0:
				return nil, errors.New("missing operand")
			case 1:
				return nil, fmt.Errorf("missing operand after '%s'", inv.Words[0])
			}

			mode := inv.Words[0]
			return nil, eachArg(inv, inv.Words[1:], func(file string) error {
				if err := inv.VFS().Chmod(ctx, file, mode); err != nil {
					return engine.PathError(file, err)
				}
				return nil
			})
		},
	}
}

func chownCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "chown",
		Kind:  engine.KindFilesystem,
		Use:   "chown OWNER[:GROUP] FILE...",
		Short: "Change the owner and group of each FILE.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			switch len(inv.Args) {
			case 0:
				return nil, errors.New("missing operand")
			case 1:
				return nil, fmt.Errorf("missing operand after '%s'", inv.Args[0])
			}

			owner, group, _ := strings.Cut(inv.Args[0], ":")
			if owner == "" && group == "" {
				return nil, fmt.Errorf("invalid user: '%s'", inv.Args[0])
			}
			return nil, eachArg(inv, inv.Args[1:], func(file string) error {
				if err := inv.VFS().Chown(ctx, file, owner, group); err != nil {
					return engine.PathError(file, err)
				}
				return nil
			})
		},
	}
}
