package commands

import (
	"context"

	"github.com/startterm/startsh/core/engine"
)

func pwdCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "pwd",
		Kind:  engine.KindFilesystem,
		Use:   "pwd",
		Short: "Print the name of the current working directory.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			inv.Out.WriteLine(inv.VFS().Pwd())
			return nil, nil
		},
	}
}
