package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/startterm/startsh/core/engine"
)

// sourceCommand builds source, . and sh. Scripts run in the current
// session so exports and aliases stick.
func sourceCommand(name string) *SimpleCommand {
	use := name + " FILE [ARG]..."
	short := "Execute commands from FILE in the current shell."
	if name == "sh" {
		use = "sh [-c LINE | FILE] [ARG]..."
		short = "Run LINE or the script FILE."
	}

	return &SimpleCommand{
		Name:  name,
		Kind:  engine.KindBuiltin,
		Use:   use,
		Short: short,
		// Script arguments are passed through untouched.
		Lenient: true,
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			words := inv.Words
			if name == "sh" && len(words) > 0 && words[0] == "-c" {
				if len(words) < 2 {
					return nil, errors.New("-c: option requires an argument")
				}
				params := append([]string{name}, words[2:]...)
				status, err := inv.Engine.RunNested(ctx, words[1], params, inv.Out)
				if err != nil {
					return nil, err
				}
				return nil, engine.ExitStatus(status)
			}

			if len(words) == 0 || strings.HasPrefix(words[0], "-") {
				return nil, errors.New("missing script operand")
			}

			file := words[0]
			content, err := inv.VFS().ReadFile(file)
			if err != nil {
				return nil, engine.PathError(file, err)
			}

			script := *inv
			script.Name = file
			script.Words = words[1:]
			return nil, inv.Engine.RunScript(ctx, file, content, &script)
		},
	}
}
