package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/startterm/startsh/commands"
	"github.com/startterm/startsh/core/editor"
	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/logger"
	"github.com/startterm/startsh/core/sandbox"
	"github.com/startterm/startsh/core/screen"
	"github.com/startterm/startsh/core/vfs"
)

// Version is reported by /proc/version.
const Version = "2.0.0"

// ResizeNotice is printed after the grid changes size.
const ResizeNotice = "--- Terminal resized. Buffer cleared. ---"

// DefaultProfile is written to /etc/profile the first time a shell starts
// over an empty store.
const DefaultProfile = `# Sourced at login and by su.
alias l=ls
alias la='ls -a'
alias ll='ls -la'
alias ..='cd ..'
alias ...='cd ../..'
alias ....='cd ../../..'
alias h=history
alias c=clear
alias ff='find . -name'
`

// ErrBusy is returned by Submit while a line is still executing.
var ErrBusy = errors.New("shell is busy")

// Options configures a Shell.
type Options struct {
	Rows, Cols int
	// Surface receives every frame. May be nil.
	Surface screen.Surface

	// Provider holds the bookmark tree. Required.
	Provider vfs.ResourceProvider
	// Store persists metadata, mounts and packages. Defaults to memory.
	Store vfs.KeyValueStore

	User     string
	Group    string
	Hostname string
	// Prompt is the initial $PS1.
	Prompt string
	// Motd is printed before the first prompt.
	Motd        string
	HistorySize int

	// Sandbox configures package execution. Ignored if DisableSandbox.
	Sandbox         sandbox.Config
	DisableSandbox  bool
	DefaultPackages []string

	// Commands defaults to commands.Builtins().
	Commands []*engine.Command
	Metrics  *engine.Metrics
	Logger   *zap.Logger

	// OnExit is called once when the user leaves the shell.
	OnExit func()
}

// Shell is an interactive session: keys go in, frames come out.
//
// One lock serializes key handling, engine output and rendering.
type Shell struct {
	mu      sync.Mutex
	buffer  *screen.Buffer
	editor  *editor.Editor
	surface screen.Surface
	engine  *engine.Engine
	session *engine.Session
	log     *zap.Logger
	motd    string
	onExit  func()

	ctx        context.Context
	cancel     context.CancelFunc
	cancelLine context.CancelFunc
	wg         sync.WaitGroup
	done       chan struct{}
	exitOnce   sync.Once
}

var _ engine.Terminal = (*Shell)(nil)

// NewShell builds a shell over the provider's tree. Call Start to print the
// banner and log in.
func NewShell(ctx context.Context, opts Options) (*Shell, error) {
	if opts.Provider == nil {
		return nil, errors.New("a resource provider is required")
	}
	if opts.Rows <= 0 {
		opts.Rows = 24
	}
	if opts.Cols <= 0 {
		opts.Cols = 80
	}
	if opts.User == "" {
		opts.User = "guest"
	}
	if opts.Group == "" {
		opts.Group = "users"
	}
	if opts.Hostname == "" {
		opts.Hostname = "startsh"
	}
	if opts.Store == nil {
		opts.Store = vfs.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Commands == nil {
		opts.Commands = commands.Builtins()
	}

	s := &Shell{
		buffer:  screen.NewBuffer(opts.Rows, opts.Cols),
		surface: opts.Surface,
		log:     opts.Logger,
		motd:    opts.Motd,
		onExit:  opts.OnExit,
		done:    make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	history := editor.NewHistory(opts.HistorySize)
	s.editor = editor.New(s.buffer, history)
	s.editor.Complete = s.complete
	s.editor.Submit = s.submitted
	s.editor.OnEOF = s.exit
	s.editor.SetEnabled(false)

	started := time.Now()
	fsys, err := vfs.New(ctx, vfs.Options{
		Provider:     opts.Provider,
		Store:        opts.Store,
		Identity:     vfs.NewIdentity(opts.User, opts.Group),
		DefaultOwner: opts.User,
		DefaultGroup: opts.Group,
		Proc:         s.procFiles(opts.Hostname, started),
		Logger:       opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading tree: %w", err)
	}

	session := engine.NewSession(fsys, s)
	session.Hostname = opts.Hostname
	session.Prompt = opts.Prompt
	session.Started = started
	session.History = history
	session.Packages = sandbox.NewPackageStore(opts.Store)
	if !opts.DisableSandbox {
		session.Runner = sandbox.NewRunner(opts.Sandbox, opts.Logger)
	}
	session.OnExit = s.exit
	session.Login()
	s.session = session

	if err := session.Packages.InstallDefaults(opts.DefaultPackages); err != nil {
		return nil, fmt.Errorf("installing default packages: %w", err)
	}
	if err := s.ensureProfile(ctx); err != nil {
		return nil, err
	}

	s.engine = engine.New(engine.Config{
		Registry: engine.NewRegistry(opts.Commands...),
		Session:  session,
		Hooks:    engine.Hooks{Suspend: s.suspend, Resume: s.resume},
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
	})

	if opts.Surface != nil {
		opts.Surface.SetGrid(opts.Rows, opts.Cols)
	}
	return s, nil
}

func (s *Shell) procFiles(hostname string, started time.Time) []vfs.ProcFile {
	return []vfs.ProcFile{
		{Name: "version", Generator: func() string { return "startsh version " + Version }},
		{Name: "user", Generator: func() string {
			if s.session == nil {
				return ""
			}
			return s.session.Identity().User
		}},
		{Name: "hostname", Generator: func() string { return hostname }},
		{Name: "uptime", Generator: func() string {
			return fmt.Sprintf("%.2f", time.Since(started).Seconds())
		}},
	}
}

// ensureProfile writes the default profile unless one exists.
func (s *Shell) ensureProfile(ctx context.Context) error {
	fsys := s.session.VFS
	if _, err := fsys.Stat(commands.ProfilePath); err == nil {
		return nil
	}
	if err := fsys.WriteFile(ctx, commands.ProfilePath, DefaultProfile); err != nil {
		return fmt.Errorf("writing %s: %w", commands.ProfilePath, err)
	}
	return nil
}

// Session returns the shell's session.
func (s *Shell) Session() *engine.Session {
	return s.session
}

// Engine returns the shell's engine.
func (s *Shell) Engine() *engine.Engine {
	return s.engine
}

// Start prints the banner, sources the profile and shows the first prompt.
func (s *Shell) Start(ctx context.Context) {
	s.mu.Lock()
	for _, line := range strings.Split(s.motd, "\n") {
		if line != "" {
			s.buffer.WriteLine(screen.Plain(line))
		}
	}
	s.mu.Unlock()

	out := engine.NewScreenOutput(s)
	err := commands.SourceProfile(ctx, &engine.Invocation{
		Name:    commands.ProfilePath,
		Out:     out,
		Session: s.session,
		Engine:  s.engine,
	})
	var status *engine.StatusError
	if err != nil && !errors.As(err, &status) {
		out.Errorf("%s: %v", commands.ProfilePath, err)
	}
	s.log.Info(logger.MsgSessionStarted,
		zap.String("user", s.session.Identity().User),
		zap.String("cwd", s.session.VFS.Pwd()))
	s.resume()
}

// Prompt expands $PS1: \u is the user, \h the host, \w the current
// directory with ~ for home and \$ is # for privileged users.
func (s *Shell) Prompt() string {
	prompt, ok := s.session.Env.Lookup(engine.EnvPrompt)
	if !ok {
		prompt = engine.DefaultPrompt
	}
	id := s.session.Identity()

	prompt = strings.ReplaceAll(prompt, `\u`, id.User)
	prompt = strings.ReplaceAll(prompt, `\h`, s.session.Hostname)
	prompt = strings.ReplaceAll(prompt, `\w`, s.session.VFS.DisplayPath())
	if id.Privileged {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}
	return prompt
}

// HandleKey applies a key and redraws. An interrupt while a line is running
// cancels it.
func (s *Shell) HandleKey(k editor.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.editor.HandleKey(k) {
		if k.Kind == editor.KeyInterrupt && s.cancelLine != nil {
			s.cancelLine()
		}
		return
	}
	s.render()
}

// Run feeds keys to the shell until the channel closes, the context ends or
// the user exits.
func (s *Shell) Run(ctx context.Context, keys <-chan editor.Key) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			s.HandleKey(k)
		}
	}
}

// Submit runs line as if it had been typed and Enter pressed.
func (s *Shell) Submit(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.editor.Enabled() || s.editor.Reading() {
		return ErrBusy
	}
	s.editor.SetLine(line)
	s.editor.HandleKey(editor.Key{Kind: editor.KeyEnter})
	s.render()
	return nil
}

// Wait blocks until every submitted line has finished.
func (s *Shell) Wait() {
	s.wg.Wait()
}

// Done is closed once the user exits.
func (s *Shell) Done() <-chan struct{} {
	return s.done
}

// Close stops running lines and waits for them.
func (s *Shell) Close() error {
	s.cancel()
	s.mu.Lock()
	s.editor.CancelRead()
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// submitted is called by the editor, with the lock held.
func (s *Shell) submitted(line string) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelLine = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.engine.Run(ctx, line)
	}()
}

func (s *Shell) suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor.SetEnabled(false)
}

func (s *Shell) resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLine = nil
	s.editor.SetPrompt(s.Prompt())
	s.editor.SetEnabled(true)
	s.render()
}

func (s *Shell) exit() {
	s.exitOnce.Do(func() {
		s.log.Info(logger.MsgSessionEnded, zap.String("user", s.session.Identity().User))
		close(s.done)
		if s.onExit != nil {
			s.onExit()
		}
	})
}

// render draws a frame. The lock must be held.
func (s *Shell) render() {
	overlay := s.editor.Overlay()
	if overlay != nil {
		s.buffer.Reserve(overlay)
	}
	if s.surface == nil {
		return
	}
	if err := s.buffer.Render(s.surface, overlay); err != nil {
		s.log.Warn("rendering failed", zap.Error(err))
	}
}

// Frame returns what the surface currently shows.
func (s *Shell) Frame() []screen.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Compose(s.editor.Overlay())
}

// Text returns the current frame as plain text.
func (s *Shell) Text() []string {
	frame := s.Frame()
	out := make([]string, len(frame))
	for i, row := range frame {
		out[i] = row.String()
	}
	return out
}

// Resize changes the grid. The buffer is cleared and a notice printed.
func (s *Shell) Resize(rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer.Resize(rows, cols)
	if s.surface != nil {
		s.surface.SetGrid(rows, cols)
	}
	s.buffer.WriteLine(screen.Plain(ResizeNotice))
	s.render()
}

// WriteLine implements engine.Terminal.
func (s *Shell) WriteLine(line screen.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.WriteLine(line)
	s.render()
}

// Clear implements engine.Terminal.
func (s *Shell) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Clear()
	s.render()
}

// ReadLine implements engine.Terminal. Keys are accepted while the read is
// pending even though the engine is busy.
func (s *Shell) ReadLine(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	result := s.editor.ReadLine(prompt)
	s.render()
	s.mu.Unlock()

	select {
	case line := <-result:
		return line, nil
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()
		// An answer given before the cancel still counts.
		select {
		case line := <-result:
			return line, nil
		default:
		}
		s.editor.CancelRead()
		s.render()
		return "", ctx.Err()
	}
}

// Size implements engine.Terminal.
func (s *Shell) Size() (rows, cols int) {
	return s.buffer.Size()
}
