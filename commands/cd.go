package commands

import (
	"context"
	"errors"

	"github.com/startterm/startsh/core/engine"
)

const envOldPWD = "OLDPWD"

func cdCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "cd",
		Kind:  engine.KindFilesystem,
		Use:   "cd [DIR]",
		Short: "Change the working directory, home by default. \"cd -\" returns to the previous one.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			var target string
			switch len(inv.Args) {
			case 0:
				target = inv.VFS().Home()
			case 1:
				target = inv.Args[0]
			default:
				return nil, errors.New("too many arguments")
			}

			env := inv.Session.Env
			if target == "-" {
				prev, ok := env.Lookup(envOldPWD)
				if !ok {
					return nil, errors.New("OLDPWD not set")
				}
				target = prev
			}

			previous := inv.VFS().Pwd()
			if err := inv.VFS().Chdir(target); err != nil {
				return nil, engine.PathError(target, err)
			}
			env.Set(envOldPWD, previous)
			env.Set(engine.EnvPWD, inv.VFS().Pwd())
			return nil, nil
		},
	}
}
