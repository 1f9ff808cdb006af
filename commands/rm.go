package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/vfs"
)

func rmCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "rm",
		Kind:  engine.KindFilesystem,
		Use:   "rm [-rf] FILE...",
		Short: "Remove files or directories. FILE may end in a * pattern.",
		Flags: func(opts *getopt.Set) {
			opts.BoolLong("recursive", 'r', "remove directories and their contents recursively")
			opts.Bool('R', "same as -r")
			opts.BoolLong("force", 'f', "ignore nonexistent files")
		},
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			recursive := inv.Option("r", "R", "recursive")
			force := inv.Option("f", "force")

			if len(inv.Args) == 0 {
				if force {
					return nil, nil
				}
				return nil, errors.New("missing operand")
			}

			targets, err := expandGlobs(inv, inv.Args, !force)
			if err != nil {
				return nil, err
			}

			return nil, eachArg(inv, targets, func(target string) error {
				entry, err := inv.VFS().Stat(target)
				switch {
				case force && errors.Is(err, fs.ErrNotExist):
					return nil
				case err != nil:
					return engine.PathError(target, err)
				case entry.IsDir() && !recursive:
					return fmt.Errorf("%s: Is a directory (use -r)", target)
				case entry.IsDir():
					err = inv.VFS().RemoveAll(ctx, target)
				default:
					err = inv.VFS().Remove(ctx, target)
				}
				if err != nil {
					return engine.PathError(target, err)
				}
				return nil
			})
		},
	}
}

// expandGlobs replaces arguments holding a * pattern with the paths they
// match. A pattern matching nothing is kept so it's reported as missing,
// unless keepUnmatched is false.
func expandGlobs(inv *engine.Invocation, args []string, keepUnmatched bool) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !vfs.HasGlob(arg) {
			out = append(out, arg)
			continue
		}
		matches, err := inv.VFS().Glob(arg)
		if err != nil {
			return nil, engine.PathError(arg, err)
		}
		if len(matches) == 0 && keepUnmatched {
			out = append(out, arg)
		}
		out = append(out, matches...)
	}
	return out, nil
}
