package commands

import (
	"context"

	"github.com/startterm/startsh/core/engine"
)

func statusCommand(name string, code int) *SimpleCommand {
	short := "Do nothing, successfully."
	if code != 0 {
		short = "Do nothing, unsuccessfully."
	}

	return &SimpleCommand{
		Name:    name,
		Kind:    engine.KindBuiltin,
		Use:     name,
		Short:   short,
		Lenient: true,
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			return nil, engine.ExitStatus(code)
		},
	}
}

func exitCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "exit",
		Kind:  engine.KindBuiltin,
		Use:   "exit",
		Short: "Exit the shell.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			if inv.Session.OnExit != nil {
				inv.Session.OnExit()
			}
			return nil, nil
		},
	}
}
