package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/vfs"
)

type findQuery struct {
	root string
	name string
	kind string
}

func (q *findQuery) matches(e *vfs.Entry) (bool, error) {
	switch q.kind {
	case "d":
		if !e.IsDir() {
			return false, nil
		}
	case "f":
		if e.IsDir() {
			return false, nil
		}
	}
	if q.name == "" {
		return true, nil
	}
	return doublestar.Match(q.name, e.Node.Title)
}

func parseFindQuery(words []string) (*findQuery, error) {
	q := &findQuery{root: "."}
	rootSet := false
	for i := 0; i < len(words); i++ {
		word := words[i]
		switch word {
		case "-name", "-type":
			if i+1 >= len(words) {
				return nil, fmt.Errorf("missing argument to '%s'", word)
			}
			i++
			if word == "-name" {
				q.name = words[i]
				continue
			}
			if words[i] != "d" && words[i] != "f" {
				return nil, fmt.Errorf("unknown argument to -type: %s", words[i])
			}
			q.kind = words[i]
		default:
			if strings.HasPrefix(word, "-") || rootSet {
				return nil, fmt.Errorf("unknown predicate '%s'", word)
			}
			q.root = word
			rootSet = true
		}
	}
	if q.name != "" && !doublestar.ValidatePattern(q.name) {
		return nil, fmt.Errorf("invalid pattern '%s'", q.name)
	}
	return q, nil
}

func findCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "find",
		Kind:  engine.KindFilesystem,
		Use:   "find [PATH] [-name PATTERN] [-type d|f]",
		Short: "Search for files in a directory hierarchy.",
		// Predicates are single-dash words.
		Lenient: true,
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			q, err := parseFindQuery(inv.Words)
			if err != nil {
				return nil, err
			}

			root, err := inv.VFS().Stat(q.root)
			if err != nil {
				return nil, engine.PathError(q.root, err)
			}

			failed := false
			var walk func(display string, e *vfs.Entry)
			walk = func(display string, e *vfs.Entry) {
				if ok, _ := q.matches(e); ok {
					inv.Out.WriteLine(display)
				}
				if !e.IsDir() || ctx.Err() != nil {
					return
				}

				children, err := inv.VFS().ReadDir(e.Path)
				if err != nil {
					inv.Out.Errorf("find: %v", engine.PathError(display, err))
					failed = true
					return
				}
				for i := range children {
					walk(strings.TrimSuffix(display, "/")+"/"+children[i].Node.Title, &children[i])
				}
			}
			walk(q.root, root)

			if failed {
				return nil, engine.ExitStatus(1)
			}
			return nil, ctx.Err()
		},
	}
}
