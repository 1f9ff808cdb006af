package commands

import (
	"context"
	"errors"

	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/vfs"
)

func rmdirCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "rmdir",
		Kind:  engine.KindFilesystem,
		Use:   "rmdir DIRECTORY...",
		Short: "Remove the DIRECTORY(ies), if they are empty.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			if len(inv.Args) == 0 {
				return nil, errors.New("missing operand")
			}

			return nil, eachArg(inv, inv.Args, func(dir string) error {
				entry, err := inv.VFS().Stat(dir)
				if err != nil {
					return engine.PathError(dir, err)
				}
				if !entry.IsDir() {
					return engine.PathError(dir, vfs.ErrNotDir)
				}
				if err := inv.VFS().Remove(ctx, dir); err != nil {
					return engine.PathError(dir, err)
				}
				return nil
			})
		},
	}
}
