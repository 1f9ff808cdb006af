package commands

import (
	"context"
	"fmt"

	"github.com/startterm/startsh/core/engine"
)

func idCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "id",
		Kind:  engine.KindBuiltin,
		Use:   "id",
		Short: "Print user and group information.",
		// Never bail, even if args are bad.
		Lenient: true,
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			id := inv.Session.Identity()
			line := fmt.Sprintf("user=%s group=%s umask=%04o", id.User, id.Group, id.Umask)
			if id.Privileged {
				line += " privileged"
			}
			inv.Out.WriteLine(line)
			return nil, nil
		},
	}
}
