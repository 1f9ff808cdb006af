package commands

import (
	"context"

	"github.com/startterm/startsh/core/engine"
)

func hostnameCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "hostname",
		Kind:  engine.KindBuiltin,
		Use:   "hostname",
		Short: "Print the system's hostname.",
		// Never bail, even if flags are bad.
		Lenient: true,
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			inv.Out.WriteLine(inv.Session.Hostname)
			return nil, nil
		},
	}
}
