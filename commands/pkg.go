package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/startterm/startsh/core/engine"
)

func pkgCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "pkg",
		Kind:  engine.KindBuiltin,
		Use:   "pkg list | install NAME [FILE] | remove NAME | show NAME",
		Short: "Manage sandboxed script packages. install reads FILE or the piped input.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			packages := inv.Session.Packages
			if packages == nil {
				return nil, errors.New("packages are disabled")
			}

			sub := inv.Arg(0, "list")
			name := inv.Arg(1, "")
			if sub != "list" && name == "" {
				return nil, fmt.Errorf("%s: missing package name", sub)
			}

			switch sub {
			case "list":
				names, err := packages.List()
				if err != nil {
					return nil, err
				}
				for _, name := range names {
					inv.Out.WriteLine(name)
				}
				return engine.Lines(names...), nil

			case "install":
				var source string
				switch {
				case len(inv.Args) > 2:
					content, err := inv.VFS().ReadFile(inv.Args[2])
					if err != nil {
						return nil, engine.PathError(inv.Args[2], err)
					}
					source = content
				case inv.Piped():
					source = strings.Join(inv.Input.Lines, "\n")
				default:
					return nil, errors.New("install: missing package source")
				}
				if engine.IsJavaScript(source) {
					_, source, _ = strings.Cut(source, "\n")
				}
				if err := packages.Install(name, source); err != nil {
					return nil, fmt.Errorf("install: %w", err)
				}
				inv.Out.WriteSpans(successLine("installed " + name))
				return nil, nil

			case "remove":
				if err := packages.Remove(name); err != nil {
					return nil, fmt.Errorf("remove: %w", err)
				}
				inv.Out.WriteSpans(successLine("removed " + name))
				return nil, nil

			case "show":
				source, ok, err := packages.Get(name)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, fmt.Errorf("show: package %q not found", name)
				}
				lines := strings.Split(source, "\n")
				for _, line := range lines {
					inv.Out.WriteLine(line)
				}
				return engine.Lines(lines...), nil
			}
			return nil, fmt.Errorf("unknown subcommand '%s'", sub)
		},
	}
}
