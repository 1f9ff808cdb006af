package commands

import (
	"context"
	"errors"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
)

func mkdirCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "mkdir",
		Kind:  engine.KindFilesystem,
		Use:   "mkdir [-p] DIRECTORY...",
		Short: "Create the DIRECTORY(ies), if they do not already exist.",
		Flags: func(opts *getopt.Set) {
			opts.BoolLong("parents", 'p', "no error if existing, make parent directories as needed")
		},
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			if len(inv.Args) == 0 {
				return nil, errors.New("missing operand")
			}

			parents := inv.Option("p", "parents")
			return nil, eachArg(inv, inv.Args, func(dir string) error {
				var err error
				if parents {
					err = inv.VFS().MkdirAll(ctx, dir)
				} else {
					err = inv.VFS().Mkdir(ctx, dir)
				}
				if err != nil {
					return engine.PathError(dir, err)
				}
				return nil
			})
		},
	}
}
