// Package commands holds the leaf commands of the shell.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/screen"
)

// SimpleCommand describes a command: its usage, the flags it accepts and
// the function that runs it.
type SimpleCommand struct {
	Name string
	Kind engine.Kind
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// Flags declares the command's flags. Options that aren't declared are
	// rejected unless Lenient is set.
	Flags   func(opts *getopt.Set)
	Lenient bool
	Run     engine.HandlerFunc
}

// flagSet builds a fresh set of the command's flags.
func (s *SimpleCommand) flagSet() *getopt.Set {
	opts := getopt.New()
	opts.SetProgram(s.Name)
	opts.BoolLong("help", 0, "show this help and exit")
	if s.Flags != nil {
		s.Flags(opts)
	}
	return opts
}

// PrintHelp writes help for the command to out.
func (s *SimpleCommand) PrintHelp(out engine.Output) {
	out.WriteLine("usage: " + s.Use)
	out.WriteLine(s.Short)
	out.WriteLine("")
	out.WriteLine("Flags:")

	var sb strings.Builder
	s.flagSet().PrintOptions(&sb)
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		out.WriteLine(line)
	}
}

// checkOptions rejects options the command doesn't declare.
func (s *SimpleCommand) checkOptions(inv *engine.Invocation) error {
	if s.Lenient {
		return nil
	}

	opts := s.flagSet()
	var unknown []string
	for name := range inv.Options {
		var opt getopt.Option
		if len([]rune(name)) == 1 {
			opt = opts.Lookup([]rune(name)[0])
		} else {
			opt = opts.Lookup(name)
		}
		if opt == nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Strings(unknown)
	name := unknown[0]
	if len([]rune(name)) == 1 {
		return fmt.Errorf("unknown option: -%s", name)
	}
	return fmt.Errorf("unknown option: --%s", name)
}

// Exec implements engine.Handler.
func (s *SimpleCommand) Exec(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
	if inv.Option("help") {
		s.PrintHelp(inv.Out)
		return nil, nil
	}
	if err := s.checkOptions(inv); err != nil {
		inv.Out.Errorf("%s: %v", inv.Name, err)
		s.PrintHelp(inv.Out)
		return nil, engine.ExitStatus(2)
	}
	return s.Run(ctx, inv)
}

// Command registers the simple command with the engine.
func (s *SimpleCommand) Command() *engine.Command {
	return &engine.Command{
		Name:    s.Name,
		Kind:    s.Kind,
		Use:     s.Use,
		Help:    s.Short,
		Handler: s,
	}
}

// parseFlags runs getopt over the invocation's words for commands whose
// flags take values. It returns the positional arguments.
func parseFlags(inv *engine.Invocation, opts *getopt.Set) ([]string, error) {
	if err := opts.Getopt(append([]string{inv.Name}, inv.Words...), nil); err != nil {
		return nil, err
	}
	return opts.Args(), nil
}

// eachArg calls fn for every argument. Failures are printed and the rest of
// the arguments are still processed.
func eachArg(inv *engine.Invocation, args []string, fn func(arg string) error) error {
	failed := false
	for _, arg := range args {
		if err := fn(arg); err != nil {
			inv.Out.Errorf("%s: %v", inv.Name, err)
			failed = true
		}
	}
	if failed {
		return engine.ExitStatus(1)
	}
	return nil
}

// input returns the piped lines, or an error if nothing was piped.
func input(inv *engine.Invocation) ([]string, error) {
	if !inv.Piped() {
		return nil, fmt.Errorf("requires piped input")
	}
	return inv.Input.Lines, nil
}

// folderName renders a directory name the way listings show it.
func folderName(name string) screen.Line {
	return screen.Styled(screen.StyleFolder, name+"/")
}

func successLine(text string) screen.Line {
	return screen.Styled(screen.StyleSuccess, text)
}

// Builtins returns every command the shell ships with.
func Builtins() []*engine.Command {
	var out []*engine.Command
	for _, cmd := range simpleCommands() {
		out = append(out, cmd.Command())
	}
	return out
}

func simpleCommands() []*SimpleCommand {
	return []*SimpleCommand{
		// Filesystem
		cdCommand(),
		pwdCommand(),
		lsCommand(),
		mkdirCommand(),
		rmdirCommand(),
		rmCommand(),
		mvCommand(),
		cpCommand(),
		touchCommand(),
		writeCommand("write"),
		writeCommand("append"),
		catCommand(),
		chmodCommand(),
		chownCommand(),
		findCommand(),
		statCommand(),

		// Text
		echoCommand(),
		grepCommand(),
		wcCommand(),
		headCommand("head"),
		headCommand("tail"),
		sortCommand(),

		// Session
		aliasCommand(),
		unaliasCommand(),
		exportCommand(),
		unsetCommand(),
		envCommand(),
		historyCommand(),
		helpCommand(),
		clearCommand(),
		whoamiCommand(),
		idCommand(),
		hostnameCommand(),
		uptimeCommand(),
		whichCommand(),
		suCommand(),
		sourceCommand("source"),
		sourceCommand("."),
		sourceCommand("sh"),
		pkgCommand(),
		statusCommand("true", 0),
		statusCommand("false", 1),
		exitCommand(),
		confirmCommand(),
	}
}
