package commands

import (
	"context"
	"fmt"
	"strconv"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
)

func historyCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "history",
		Kind:  engine.KindBuiltin,
		Use:   "history [-c] [N]",
		Short: "Display the history list with line numbers, the last N lines if given.",
		Flags: func(opts *getopt.Set) {
			opts.Bool('c', "clear the history by deleting all entries")
		},
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			history := inv.Session.History
			if history == nil {
				return nil, nil
			}
			if inv.Option("c") {
				history.Clear()
				return nil, nil
			}

			entries := history.Entries()
			start := 0
			if len(inv.Args) > 0 {
				n, err := strconv.Atoi(inv.Args[0])
				if err != nil || n < 0 {
					return nil, fmt.Errorf("%s: numeric argument required", inv.Args[0])
				}
				if n < len(entries) {
					start = len(entries) - n
				}
			}

			for i := start; i < len(entries); i++ {
				inv.Out.WriteLine(fmt.Sprintf("% 5d  %s", i+1, entries[i]))
			}
			return nil, nil
		},
	}
}
