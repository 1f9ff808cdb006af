package commands

import (
	"context"

	"github.com/startterm/startsh/core/engine"
)

func clearCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "clear",
		Kind:  engine.KindBuiltin,
		Use:   "clear",
		Short: "Clear the terminal screen.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			if term := inv.Session.Terminal; term != nil {
				term.Clear()
			}
			return nil, nil
		},
	}
}
