package commands

import (
	"context"
	"fmt"

	"github.com/startterm/startsh/core/engine"
)

// helpPrinter is implemented by commands that describe their own flags.
type helpPrinter interface {
	PrintHelp(out engine.Output)
}

func helpCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "help",
		Kind:  engine.KindBuiltin,
		Use:   "help [COMMAND]",
		Short: "Display information about the available commands.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			registry := inv.Engine.Registry()
			if len(inv.Args) > 0 {
				return nil, eachArg(inv, inv.Args, func(name string) error {
					cmd, ok := registry.Lookup(name)
					if !ok {
						return fmt.Errorf("no help topics match '%s'", name)
					}
					if hp, ok := cmd.Handler.(helpPrinter); ok {
						hp.PrintHelp(inv.Out)
						return nil
					}
					inv.Out.WriteLine("usage: " + cmd.Use)
					inv.Out.WriteLine(cmd.Help)
					return nil
				})
			}

			inv.Out.WriteLine("Welcome to " + engine.ShellName)
			inv.Out.WriteLine("Type `help NAME' to find out more about the command NAME.")
			inv.Out.WriteLine("")
			inv.Out.WriteLine("Commands:")

			commands := registry.Commands()
			width := 0
			for _, cmd := range commands {
				if len(cmd.Name) > width {
					width = len(cmd.Name)
				}
			}
			for _, cmd := range commands {
				inv.Out.WriteLine(fmt.Sprintf("  %-*s  %s", width, cmd.Name, cmd.Help))
			}

			if inv.Session.Packages == nil {
				return nil, nil
			}
			packages, err := inv.Session.Packages.List()
			if err != nil {
				return nil, err
			}
			if len(packages) > 0 {
				inv.Out.WriteLine("")
				inv.Out.WriteLine("Packages:")
				for _, name := range packages {
					inv.Out.WriteLine("  " + name)
				}
			}
			return nil, nil
		},
	}
}
