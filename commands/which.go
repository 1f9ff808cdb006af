package commands

import (
	"context"
	"fmt"

	"github.com/startterm/startsh/core/engine"
)

// describeCommand explains what runs name, checking aliases first the same
// way the engine does.
func describeCommand(inv *engine.Invocation, name string) (string, error) {
	if body, ok := inv.Session.Aliases.Lookup(name); ok {
		return fmt.Sprintf("%s: aliased to %s", name, quoteValue(body)), nil
	}

	origin, err := inv.Engine.Resolve(name)
	if err != nil {
		return "", err
	}
	switch origin {
	case engine.OriginPath:
		return name, nil
	case engine.OriginBin:
		return "/bin/" + name, nil
	case engine.OriginPackage:
		return name + ": package", nil
	}
	return name + ": shell builtin", nil
}

func whichCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "which",
		Kind:  engine.KindBuiltin,
		Use:   "which COMMAND...",
		Short: "Locate a command.",
		// Never bail, even if args are bad.
		Lenient: true,
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			return nil, eachArg(inv, inv.Words, func(name string) error {
				desc, err := describeCommand(inv, name)
				if err != nil {
					return fmt.Errorf("no %s in (%s)", name, inv.Session.Env.Get(engine.EnvPath))
				}
				inv.Out.WriteLine(desc)
				return nil
			})
		},
	}
}
