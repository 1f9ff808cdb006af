package commands

import (
	"context"
	"fmt"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
)

func validVariable(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func exportCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "export",
		Kind:  engine.KindBuiltin,
		Use:   "export [-p] [NAME[=VALUE]...]",
		Short: "Set environment variables.",
		Flags: func(opts *getopt.Set) {
			opts.Bool('p', "display all exported variables")
		},
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			env := inv.Session.Env
			if len(inv.Args) == 0 || inv.Option("p") {
				for _, name := range env.Keys() {
					inv.Out.WriteLine(fmt.Sprintf("export %s=%q", name, env.Get(name)))
				}
				return nil, nil
			}

			return nil, eachArg(inv, inv.Args, func(arg string) error {
				name, value, ok := strings.Cut(arg, "=")
				if !validVariable(name) {
					return fmt.Errorf("'%s': not a valid identifier", arg)
				}
				if !ok {
					// Everything is exported, only make sure the name exists.
					if _, found := env.Lookup(name); !found {
						env.Set(name, "")
					}
					return nil
				}
				env.Set(name, value)
				return nil
			})
		},
	}
}

func unsetCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "unset",
		Kind:  engine.KindBuiltin,
		Use:   "unset NAME...",
		Short: "Remove each NAME from the environment.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			return nil, eachArg(inv, inv.Args, func(name string) error {
				if !validVariable(name) {
					return fmt.Errorf("'%s': not a valid identifier", name)
				}
				inv.Session.Env.Unset(name)
				return nil
			})
		},
	}
}

func envCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "env",
		Kind:  engine.KindBuiltin,
		Use:   "env",
		Short: "Print the environment.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			for _, envDef := range inv.Session.Env.Environ() {
				inv.Out.WriteLine(envDef)
			}
			return nil, nil
		},
	}
}
