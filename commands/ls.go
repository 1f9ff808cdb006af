package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/screen"
	"github.com/startterm/startsh/core/vfs"
)

func lsCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:  "ls",
		Kind:  engine.KindFilesystem,
		Use:   "ls [-al] [DIRECTORY...]",
		Short: "List the contents of DIRECTORY (the current directory by default).",
		Flags: func(opts *getopt.Set) {
			opts.Bool('a', "don't ignore entries starting with .")
			opts.Bool('l', "use a long listing format")
		},
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			dirs := inv.Args
			if len(dirs) == 0 {
				dirs = []string{"."}
			}
			showNames := len(dirs) > 1

			return nil, eachArg(inv, dirs, func(dir string) error {
				entries, err := inv.VFS().ReadDir(dir)
				if err != nil {
					return engine.PathError(dir, err)
				}

				var shown []vfs.Entry
				for _, e := range entries {
					if !inv.Option("a") && strings.HasPrefix(e.Node.Title, ".") {
						continue
					}
					shown = append(shown, e)
				}

				if showNames {
					inv.Out.WriteLine(dir + ":")
				}
				if inv.Option("l") {
					longListing(inv.Out, shown)
					return nil
				}
				for _, e := range shown {
					inv.Out.WriteSpans(entryName(e))
				}
				return nil
			})
		},
	}
}

// entryName renders a listing entry; directories are styled and get a
// trailing slash.
func entryName(e vfs.Entry) screen.Line {
	if e.IsDir() {
		return folderName(e.Node.Title)
	}
	return screen.Plain(e.Node.Title)
}

// longListing writes mode, owner and group columns before each name.
// Bookmarks also show where they point.
func longListing(out engine.Output, entries []vfs.Entry) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 1, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", e.ModeString(), e.Metadata.Owner, e.Metadata.Group)
	}
	tw.Flush()

	prefixes := strings.Split(sb.String(), "\n")
	for i, e := range entries {
		line := screen.Plain(prefixes[i]).Append(entryName(e))
		if url := e.Node.URL; !e.IsDir() && url != "" && url != vfs.BlankURL && e.Node.Content == "" {
			line = line.Append(screen.Plain(" -> "), screen.Styled(screen.StyleLink, url))
		}
		out.WriteSpans(line)
	}
}
