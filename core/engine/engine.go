// Package engine executes parsed lines: it resolves each stage to a command,
// threads output through pipelines, runs scripts and sandboxed packages and
// turns failures into error lines.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/startterm/startsh/core/logger"
	"github.com/startterm/startsh/core/sandbox"
	"github.com/startterm/startsh/core/shell"
	"github.com/startterm/startsh/core/vfs"
)

// DefaultMaxDepth bounds how deeply scripts and compound aliases nest.
const DefaultMaxDepth = 16

// FrameState tracks a frame through its life.
type FrameState int

const (
	StateQueued FrameState = iota
	StateRunning
	StateDone
)

func (s FrameState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Frame is one line being executed. Scripts and compound aliases run in
// nested frames.
type Frame struct {
	Depth int
	Line  string
	// Group and Stage locate the stage currently running.
	Group int
	Stage int
	State FrameState

	params     []string
	suppressed map[string]bool
	out        Output
}

// Hooks let the owner of the engine gate input while it works. Suspend is
// called when a top-level line starts, Resume once it's completely done.
type Hooks struct {
	Suspend func()
	Resume  func()
}

// Config configures an Engine.
type Config struct {
	Registry *Registry
	Session  *Session
	Hooks    Hooks
	Logger   *zap.Logger
	// Metrics may be nil.
	Metrics  *Metrics
	MaxDepth int
}

// Engine runs lines against a session.
type Engine struct {
	registry *Registry
	session  *Session
	hooks    Hooks
	log      *zap.Logger
	metrics  *Metrics
	maxDepth int

	mu     sync.Mutex
	frames []*Frame
}

// New creates an engine.
func New(cfg Config) *Engine {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Engine{
		registry: cfg.Registry,
		session:  cfg.Session,
		hooks:    cfg.Hooks,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		maxDepth: cfg.MaxDepth,
	}
}

// Registry returns the engine's commands.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Session returns the engine's session.
func (e *Engine) Session() *Session {
	return e.session
}

// Frames returns a snapshot of the frame stack, outermost first.
func (e *Engine) Frames() []Frame {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Frame, len(e.frames))
	for i, f := range e.frames {
		out[i] = *f
	}
	return out
}

// Busy reports whether a line is executing.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.frames) > 0
}

// Run executes a line submitted by the user and returns its exit status.
// Output goes to the session's terminal.
func (e *Engine) Run(ctx context.Context, line string) int {
	status, err := e.run(ctx, line, runOptions{out: e.session.output()})
	if err != nil {
		e.session.output().Errorf("%s", classify(ShellName, err))
	}
	return status
}

// RunNested executes line in a frame nested inside the running one, with
// its output going to out. Positional parameters are inherited from the
// caller when params is nil.
func (e *Engine) RunNested(ctx context.Context, line string, params []string, out Output) (int, error) {
	return e.run(ctx, line, runOptions{params: params, out: out})
}

type runOptions struct {
	params   []string
	out      Output
	suppress []string
}

func (e *Engine) push(line string, opts runOptions) (*Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.frames) >= e.maxDepth {
		return nil, ErrNestingDepth
	}

	frame := &Frame{
		Depth:      len(e.frames) + 1,
		Line:       line,
		State:      StateQueued,
		params:     opts.params,
		suppressed: make(map[string]bool),
		out:        opts.out,
	}
	if len(e.frames) > 0 {
		parent := e.frames[len(e.frames)-1]
		if frame.params == nil {
			frame.params = parent.params
		}
		for name := range parent.suppressed {
			frame.suppressed[name] = true
		}
	}
	if frame.params == nil {
		frame.params = []string{ShellName}
	}
	for _, name := range opts.suppress {
		frame.suppressed[name] = true
	}
	e.frames = append(e.frames, frame)
	return frame, nil
}

func (e *Engine) pop(frame *Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	frame.State = StateDone
	e.frames = e.frames[:len(e.frames)-1]
}

func (e *Engine) update(frame *Frame, group, stage int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	frame.State = StateRunning
	frame.Group = group
	frame.Stage = stage
}

func (e *Engine) run(ctx context.Context, line string, opts runOptions) (int, error) {
	frame, err := e.push(line, opts)
	if err != nil {
		return 1, err
	}

	if frame.Depth == 1 {
		e.metrics.line()
		if e.hooks.Suspend != nil {
			e.hooks.Suspend()
		}
	}

	status := e.runFrame(ctx, frame)
	e.pop(frame)

	if frame.Depth == 1 {
		if err := e.session.VFS.Refresh(ctx); err != nil {
			e.log.Warn("couldn't refresh tree", zap.Error(err))
		}
		e.session.Env.Set(EnvPWD, e.session.VFS.Pwd())
		if e.hooks.Resume != nil {
			e.hooks.Resume()
		}
	}
	return status, nil
}

func (e *Engine) runFrame(ctx context.Context, frame *Frame) int {
	prog := shell.Parse(frame.Line)
	e.update(frame, 0, 0)

	status := 0
	for _, perr := range prog.Errors {
		e.log.Info(logger.MsgMalformedGroup, zap.String("segment", perr.Segment), zap.Error(perr.Err))
		status = e.fail(frame.out, &Error{Kind: ParseError, Command: ShellName, Err: perr})
		e.session.SetStatus(status)
	}

	for i, group := range prog.Groups {
		if ctx.Err() != nil {
			break
		}
		status = e.runGroup(ctx, frame, i, group)
		e.session.SetStatus(status)
	}
	return status
}

// runGroup runs one pipeline. A failing stage aborts the pipeline but never
// the rest of the line.
func (e *Engine) runGroup(ctx context.Context, frame *Frame, index int, group shell.Group) int {
	var input *Value
	for j, stage := range group.Stages {
		e.update(frame, index, j)

		last := j == len(group.Stages)-1
		out := frame.out
		var pipe *PipeOutput
		if !last {
			pipe = NewPipeOutput(frame.out)
			out = pipe
		}

		value, err := e.runStage(ctx, frame, stage, input, out)
		if err != nil {
			return e.fail(frame.out, err)
		}
		if !last {
			input = value
			if input == nil {
				input = pipe.Value()
			}
		}
	}
	return 0
}

// fail renders err and returns the status it sets.
func (e *Engine) fail(out Output, err error) int {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code
	}

	engineErr := classify(ShellName, err)
	e.metrics.failure(engineErr.Kind)
	e.log.Info(logger.MsgCommandFailed,
		zap.String("command", engineErr.Command),
		zap.Stringer("kind", engineErr.Kind),
		zap.Error(engineErr.Err))
	out.Errorf("%s", engineErr)
	return engineErr.Status()
}

// lookup expands variables for a frame: positional parameters, $?, $#, $@
// and the environment.
func (e *Engine) lookup(frame *Frame) shell.LookupFunc {
	return func(name string) (string, bool) {
		params := frame.params
		switch name {
		case "?":
			return strconv.Itoa(e.session.Status()), true
		case "#":
			return strconv.Itoa(len(params) - 1), true
		case "@":
			return strings.Join(params[1:], " "), true
		case "$":
			return "1", true
		}
		if idx, err := strconv.Atoi(name); err == nil && len(name) == 1 {
			if idx < len(params) {
				return params[idx], true
			}
			return "", false
		}
		return e.session.Env.Lookup(name)
	}
}

func (e *Engine) runStage(ctx context.Context, frame *Frame, stage shell.Stage, input *Value, out Output) (*Value, error) {
	lookup := e.lookup(frame)
	name := shell.Word(stage.Name, lookup)

	// Aliases may chain, but each expands at most once per stage.
	var expanded []string
	defer func() {
		for _, alias := range expanded {
			delete(frame.suppressed, alias)
		}
	}()
	for !shell.IsQuoted(stage.Name) && !frame.suppressed[name] {
		body, ok := e.session.Aliases.Lookup(name)
		if !ok {
			break
		}
		aliased, compound := e.substitute(body, stage)
		if compound {
			e.metrics.command(OriginAlias)
			status, err := e.run(ctx, aliased.String(), runOptions{out: out, suppress: append(expanded, name)})
			if err != nil {
				return nil, err
			}
			return nil, ExitStatus(status)
		}
		frame.suppressed[name] = true
		expanded = append(expanded, name)
		stage = aliased
		name = shell.Word(stage.Name, lookup)
	}

	origin, handler, err := e.resolve(name)
	e.metrics.command(origin)
	if err != nil {
		e.log.Info(logger.MsgUnknownCommand, zap.String("command", name), zap.Error(err))
		return nil, err
	}
	e.log.Info(logger.MsgRunCommand, zap.String("command", name), zap.Stringer("origin", origin))

	inv := &Invocation{
		Name:    name,
		Words:   expandWords(stage.Tokens, lookup),
		Args:    expandWords(stage.Args, lookup),
		Options: stage.Options,
		Input:   input,
		Out:     out,
		Session: e.session,
		Engine:  e,
	}
	value, err := e.invoke(ctx, handler, inv)
	if err != nil {
		return nil, classify(name, err)
	}
	return value, nil
}

// expandWords expands raw tokens. Unquoted tokens that expand to nothing
// are dropped.
func expandWords(raw []string, lookup shell.LookupFunc) []string {
	words := make([]string, 0, len(raw))
	for _, tok := range raw {
		word := shell.Word(tok, lookup)
		if word == "" && !strings.ContainsAny(tok, `"'`) {
			continue
		}
		words = append(words, word)
	}
	return words
}

// substitute applies an alias body to stage. A body with several stages or
// groups can't be spliced and comes back as a raw stage to run nested.
func (e *Engine) substitute(body string, stage shell.Stage) (shell.Stage, bool) {
	prog := shell.Parse(body)
	if len(prog.Errors) > 0 || len(prog.Groups) != 1 || len(prog.Groups[0].Stages) != 1 {
		return shell.Stage{Name: body, Tokens: stage.Tokens}, true
	}

	head := prog.Groups[0].Stages[0]
	tokens := append(append([]string(nil), head.Tokens...), stage.Tokens...)
	return shell.NewStage(head.Name, tokens), false
}

func (e *Engine) invoke(ctx context.Context, handler Handler, inv *Invocation) (value *Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error(logger.MsgCommandPanicked, zap.String("command", inv.Name), zap.Any("panic", r))
			value = nil
			err = &Error{Kind: RuntimeError, Command: inv.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return handler.Exec(ctx, inv)
}

// Resolve reports how name would be run, without running it. Aliases are
// not consulted.
func (e *Engine) Resolve(name string) (Origin, error) {
	origin, _, err := e.resolve(name)
	return origin, err
}

// hasPathMarker reports whether name is an explicit path to run rather than
// a command to look up.
func hasPathMarker(name string) bool {
	for _, prefix := range []string{"./", "../", "/", "~/"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// resolve finds what runs name. In order: an explicit path, a filesystem
// command, a builtin, an executable under /bin, an installed package.
func (e *Engine) resolve(name string) (Origin, Handler, error) {
	if hasPathMarker(name) {
		handler, err := e.executable(name)
		return OriginPath, handler, err
	}
	if cmd, ok := e.registry.lookupKind(name, KindFilesystem); ok {
		return OriginFilesystem, cmd.Handler, nil
	}
	if cmd, ok := e.registry.lookupKind(name, KindBuiltin); ok {
		return OriginBuiltin, cmd.Handler, nil
	}
	if _, err := e.session.VFS.Stat("/bin/" + name); err == nil {
		handler, err := e.executable("/bin/" + name)
		return OriginBin, handler, err
	}
	if e.session.Packages != nil {
		source, ok, err := e.session.Packages.Get(name)
		if err != nil {
			return OriginPackage, nil, &Error{Kind: ProviderError, Command: ShellName, Err: err}
		}
		if ok {
			return OriginPackage, e.packageHandler(name, source), nil
		}
	}
	return OriginNone, nil, &Error{
		Kind:    ResolutionError,
		Command: ShellName,
		Err:     fmt.Errorf("%w: %s", ErrCommandNotFound, name),
	}
}

// executable checks that p is a file the user may execute.
func (e *Engine) executable(p string) (Handler, error) {
	fail := func(kind ErrorKind, err error) (Handler, error) {
		return nil, &Error{Kind: kind, Command: ShellName, Err: PathError(p, err)}
	}

	entry, err := e.session.VFS.Stat(p)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fail(PermissionError, err)
	case err != nil:
		return fail(ResolutionError, err)
	case entry.IsDir():
		return fail(RuntimeError, vfs.ErrIsDir)
	case !e.session.VFS.HasPermission(entry.Node, 'x'):
		return fail(PermissionError, fs.ErrPermission)
	}

	path := entry.Path
	return HandlerFunc(func(ctx context.Context, inv *Invocation) (*Value, error) {
		content, err := inv.VFS().ReadFile(path)
		if err != nil {
			return nil, PathError(path, err)
		}
		return nil, e.RunScript(ctx, path, content, inv)
	}), nil
}

func (e *Engine) packageHandler(name, source string) Handler {
	return HandlerFunc(func(ctx context.Context, inv *Invocation) (*Value, error) {
		return nil, e.Sandboxed(ctx, name, source, inv)
	})
}

// IsJavaScript reports whether script content starts with a #!js or
// #!javascript line.
func IsJavaScript(content string) bool {
	first, _, _ := strings.Cut(content, "\n")
	switch strings.TrimSpace(first) {
	case "#!js", "#!javascript":
		return true
	}
	return false
}

// RunScript runs a script file. JavaScript goes through the sandbox, anything
// else runs line by line in a nested frame with $0 set to path and $1.. to
// the invocation's words.
func (e *Engine) RunScript(ctx context.Context, path, content string, inv *Invocation) error {
	if IsJavaScript(content) {
		_, body, _ := strings.Cut(content, "\n")
		return e.Sandboxed(ctx, path, body, inv)
	}

	params := append([]string{path}, inv.Words...)
	status, err := e.RunNested(ctx, content, params, inv.Out)
	if err != nil {
		return err
	}
	return ExitStatus(status)
}

// Sandboxed runs JavaScript source with the invocation's words and input,
// printing what it produces.
func (e *Engine) Sandboxed(ctx context.Context, name, source string, inv *Invocation) error {
	runner := e.session.Runner
	if runner == nil {
		return errors.New("scripting is disabled")
	}

	var piped []string
	if inv.Input != nil {
		piped = append([]string{}, inv.Input.Lines...)
	}

	messages, err := runner.Run(ctx, name, source, inv.Words, piped)
	if err != nil {
		return err
	}

	var failure error
	for msg := range messages {
		switch msg.Kind {
		case sandbox.MessageLine:
			inv.Out.WriteLine(msg.Text)
		case sandbox.MessageMarkup:
			inv.Out.WriteMarkup(msg.Text)
		case sandbox.MessageResult:
			for _, line := range msg.Lines {
				inv.Out.WriteLine(line)
			}
		case sandbox.MessageError:
			failure = errors.New(msg.Text)
		}
	}
	return failure
}
