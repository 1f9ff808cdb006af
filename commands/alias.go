package commands

import (
	"context"
	"fmt"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
)

// quoteValue wraps value in single quotes so it can be pasted back in.
func quoteValue(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

func aliasCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "alias",
		Kind:  engine.KindBuiltin,
		Use:   "alias [NAME[=VALUE]...]",
		Short: "Define or display aliases.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			aliases := inv.Session.Aliases
			if len(inv.Args) == 0 {
				for _, name := range aliases.Keys() {
					inv.Out.WriteLine(fmt.Sprintf("alias %s=%s", name, quoteValue(aliases.Get(name))))
				}
				return nil, nil
			}

			return nil, eachArg(inv, inv.Args, func(arg string) error {
				name, value, ok := strings.Cut(arg, "=")
				if !ok {
					body, found := aliases.Lookup(name)
					if !found {
						return fmt.Errorf("%s: not found", name)
					}
					inv.Out.WriteLine(fmt.Sprintf("alias %s=%s", name, quoteValue(body)))
					return nil
				}
				if name == "" || strings.ContainsAny(name, " \t/$'\"") {
					return fmt.Errorf("'%s': invalid alias name", name)
				}
				aliases.Set(name, value)
				return nil
			})
		},
	}
}

func unaliasCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "unalias",
		Kind:  engine.KindBuiltin,
		Use:   "unalias [-a] NAME...",
		Short: "Remove each NAME from the list of defined aliases.",
		Flags: func(opts *getopt.Set) {
			opts.Bool('a', "remove all alias definitions")
		},
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			aliases := inv.Session.Aliases
			if inv.Option("a") {
				aliases.Clear()
				return nil, nil
			}
			if len(inv.Args) == 0 {
				return nil, fmt.Errorf("usage: unalias [-a] NAME...")
			}

			return nil, eachArg(inv, inv.Args, func(name string) error {
				if _, ok := aliases.Lookup(name); !ok {
					return fmt.Errorf("%s: not found", name)
				}
				aliases.Unset(name)
				return nil
			})
		},
	}
}
