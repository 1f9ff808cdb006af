package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/vfs"
)

func statCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "stat",
		Kind:  engine.KindFilesystem,
		Use:   "stat FILE...",
		Short: "Display file status.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			if len(inv.Args) == 0 {
				return nil, errors.New("missing operand")
			}

			return nil, eachArg(inv, inv.Args, func(file string) error {
				entry, err := inv.VFS().Stat(file)
				if err != nil {
					return engine.PathError(file, err)
				}

				kind := "regular file"
				if entry.IsDir() {
					kind = "directory"
				}
				md := entry.Metadata

				inv.Out.WriteLine(fmt.Sprintf("  File: %s", entry.Path))
				inv.Out.WriteLine(fmt.Sprintf("  Type: %s", kind))
				inv.Out.WriteLine(fmt.Sprintf("Access: (%04o/%s)  Owner: %s  Group: %s",
					md.Mode.Perm(), entry.ModeString(), md.Owner, md.Group))
				if entry.Node.URL != "" && entry.Node.URL != vfs.BlankURL {
					inv.Out.WriteLine(fmt.Sprintf("   URL: %s", entry.Node.URL))
				}
				return nil
			})
		},
	}
}
