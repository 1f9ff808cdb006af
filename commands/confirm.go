package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/startterm/startsh/core/engine"
)

func confirmCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "confirm",
		Kind:  engine.KindBuiltin,
		Use:   "confirm [PROMPT]",
		Short: "Ask a yes/no question; the status is 0 for yes.",
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			term := inv.Session.Terminal
			if term == nil {
				return nil, errors.New("not a terminal")
			}

			prompt := strings.Join(inv.Args, " ")
			if prompt == "" {
				prompt = "Continue?"
			}
			answer, err := term.ReadLine(ctx, prompt+" [y/N] ")
			if err != nil {
				return nil, err
			}

			switch strings.ToLower(strings.TrimSpace(answer)) {
			case "y", "yes":
				return nil, nil
			}
			return nil, engine.ExitStatus(1)
		},
	}
}
