package commands

import (
	"context"
	"errors"
	"fmt"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
)

// splitTarget separates the sources from the destination.
func splitTarget(args []string) (sources []string, dst string, err error) {
	switch len(args) {
	case 0:
		return nil, "", errors.New("missing file operand")
	case 1:
		return nil, "", fmt.Errorf("missing destination file operand after '%s'", args[0])
	}
	return args[:len(args)-1], args[len(args)-1], nil
}

func mvCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "mv",
		Kind:  engine.KindFilesystem,
		Use:   "mv SOURCE... DEST",
		Short: "Rename SOURCE to DEST, or move SOURCE(s) into the directory DEST.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			sources, dst, err := splitTarget(inv.Args)
			if err != nil {
				return nil, err
			}
			return nil, eachArg(inv, sources, func(src string) error {
				if err := inv.VFS().Move(ctx, src, dst); err != nil {
					return engine.PathError(src, err)
				}
				return nil
			})
		},
	}
}

func cpCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "cp",
		Kind:  engine.KindFilesystem,
		Use:   "cp [-r] SOURCE... DEST",
		Short: "Copy SOURCE to DEST, or SOURCE(s) into the directory DEST.",
		Flags: func(opts *getopt.Set) {
			opts.BoolLong("recursive", 'r', "copy directories recursively")
			opts.Bool('R', "same as -r")
		},
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			sources, dst, err := splitTarget(inv.Args)
			if err != nil {
				return nil, err
			}

			recursive := inv.Option("r", "R", "recursive")
			return nil, eachArg(inv, sources, func(src string) error {
				entry, err := inv.VFS().Stat(src)
				if err != nil {
					return engine.PathError(src, err)
				}
				if entry.IsDir() && !recursive {
					return fmt.Errorf("-r not specified; omitting directory '%s'", src)
				}
				if err := inv.VFS().Copy(ctx, src, dst, recursive); err != nil {
					return engine.PathError(src, err)
				}
				return nil
			})
		},
	}
}
