package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/startterm/startsh/core/vfs"
)

// Kind separates commands that work on the tree from the rest.
type Kind int

const (
	// KindFilesystem commands operate on the VFS.
	KindFilesystem Kind = iota
	// KindBuiltin commands only touch the session.
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindFilesystem:
		return "filesystem"
	case KindBuiltin:
		return "builtin"
	}
	return "unknown"
}

// Handler runs a command.
type Handler interface {
	Exec(ctx context.Context, inv *Invocation) (*Value, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, inv *Invocation) (*Value, error)

// Exec implements Handler.
func (f HandlerFunc) Exec(ctx context.Context, inv *Invocation) (*Value, error) {
	return f(ctx, inv)
}

// Command is a registered command.
type Command struct {
	Name string
	Kind Kind
	// Use is the usage line, e.g. "ls [-al] [PATH]".
	Use string
	// Help is a one-line description.
	Help    string
	Handler Handler
}

// Registry holds the commands known to an engine. It's built once and never
// changes.
type Registry struct {
	commands map[string]*Command
}

// NewRegistry indexes commands by name. It panics on a duplicate or
// incomplete command since that's a programming error.
func NewRegistry(commands ...*Command) *Registry {
	r := &Registry{commands: make(map[string]*Command, len(commands))}
	for _, cmd := range commands {
		switch {
		case cmd.Name == "":
			panic("engine: command with no name")
		case cmd.Handler == nil:
			panic(fmt.Sprintf("engine: command %q has no handler", cmd.Name))
		case r.commands[cmd.Name] != nil:
			panic(fmt.Sprintf("engine: duplicate command %q", cmd.Name))
		}
		r.commands[cmd.Name] = cmd
	}
	return r
}

// Lookup finds a command by name.
func (r *Registry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

func (r *Registry) lookupKind(name string, kind Kind) (*Command, bool) {
	cmd, ok := r.commands[name]
	if !ok || cmd.Kind != kind {
		return nil, false
	}
	return cmd, true
}

// Commands returns every command sorted by name.
func (r *Registry) Commands() []*Command {
	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Names returns every command name, sorted.
func (r *Registry) Names() []string {
	var names []string
	for _, cmd := range r.Commands() {
		names = append(names, cmd.Name)
	}
	return names
}

// Invocation is a single command call.
type Invocation struct {
	// Name is the command name after alias substitution and expansion.
	Name string
	// Words holds every expanded token after the name, options included.
	Words []string
	// Args holds the expanded positional arguments.
	Args []string
	// Options holds the boolean options that were set.
	Options map[string]bool
	// Input is the previous stage's output, nil if nothing was piped.
	Input *Value
	// Out is where the command prints.
	Out     Output
	Session *Session
	Engine  *Engine
}

// Option reports whether any of names was set.
func (inv *Invocation) Option(names ...string) bool {
	for _, name := range names {
		if inv.Options[name] {
			return true
		}
	}
	return false
}

// Piped reports whether the previous stage produced output.
func (inv *Invocation) Piped() bool {
	return inv.Input != nil
}

// Arg returns the i'th positional argument or def.
func (inv *Invocation) Arg(i int, def string) string {
	if i < len(inv.Args) {
		return inv.Args[i]
	}
	return def
}

// VFS is a shortcut for the session's file system.
func (inv *Invocation) VFS() *vfs.VFS {
	return inv.Session.VFS
}
