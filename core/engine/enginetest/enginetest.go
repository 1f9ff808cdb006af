// Package enginetest builds engines over in-memory trees for tests.
package enginetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/startterm/startsh/core/editor"
	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/sandbox"
	"github.com/startterm/startsh/core/screen"
	"github.com/startterm/startsh/core/vfs"
)

// Default identity of a harness session.
const (
	User     = "guest"
	Group    = "users"
	Hostname = "startsh"
)

// Terminal records what's written to it.
type Terminal struct {
	mu      sync.Mutex
	lines   []screen.Line
	prompts []string
	// Answers are handed out in order to ReadLine calls. Once they run out
	// ReadLine fails.
	Answers []string
	Cleared int
}

var _ engine.Terminal = (*Terminal)(nil)

// WriteLine implements engine.Terminal.
func (t *Terminal) WriteLine(line screen.Line) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line.SplitLines()...)
}

// Clear implements engine.Terminal.
func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
	t.Cleared++
}

// ReadLine implements engine.Terminal.
func (t *Terminal) ReadLine(ctx context.Context, prompt string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prompts = append(t.prompts, prompt)
	if len(t.Answers) == 0 {
		return "", errors.New("no input")
	}
	answer := t.Answers[0]
	t.Answers = t.Answers[1:]
	return answer, nil
}

// Size implements engine.Terminal.
func (t *Terminal) Size() (rows, cols int) {
	return 24, 80
}

// Lines returns the styled lines written since the last Reset.
func (t *Terminal) Lines() []screen.Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]screen.Line(nil), t.lines...)
}

// Text returns the plain text written since the last Reset.
func (t *Terminal) Text() []string {
	var out []string
	for _, line := range t.Lines() {
		out = append(out, line.String())
	}
	return out
}

// Markup returns the written lines as markup.
func (t *Terminal) Markup() []string {
	var out []string
	for _, line := range t.Lines() {
		out = append(out, line.Markup())
	}
	return out
}

// Prompts returns the prompts ReadLine was called with.
func (t *Terminal) Prompts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.prompts...)
}

// Reset forgets what was written.
func (t *Terminal) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
}

// Harness is an engine wired to an in-memory session.
type Harness struct {
	T        testing.TB
	Engine   *engine.Engine
	Session  *engine.Session
	Terminal *Terminal
	Provider *vfs.MemoryProvider
	Store    *vfs.AferoStore
	History  *editor.History
}

// Option customizes a harness.
type Option func(*engine.Config)

// WithCommands registers commands.
func WithCommands(commands ...*engine.Command) Option {
	return func(cfg *engine.Config) {
		cfg.Registry = engine.NewRegistry(commands...)
	}
}

// WithMetrics records metrics.
func WithMetrics(m *engine.Metrics) Option {
	return func(cfg *engine.Config) {
		cfg.Metrics = m
	}
}

// WithHooks installs input gate hooks.
func WithHooks(hooks engine.Hooks) Option {
	return func(cfg *engine.Config) {
		cfg.Hooks = hooks
	}
}

// New creates a harness logged in as User.
func New(t testing.TB, opts ...Option) *Harness {
	t.Helper()

	logger := zaptest.NewLogger(t)
	provider := vfs.NewMemoryProvider()
	store := vfs.NewMemoryStore()
	started := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	fsys, err := vfs.New(context.Background(), vfs.Options{
		Provider:     provider,
		Store:        store,
		Identity:     vfs.NewIdentity(User, Group),
		DefaultOwner: User,
		DefaultGroup: Group,
		Proc: []vfs.ProcFile{
			{Name: "hostname", Generator: func() string { return Hostname }},
		},
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("creating vfs: %v", err)
	}

	term := &Terminal{}
	history := editor.NewHistory(100)
	session := engine.NewSession(fsys, term)
	session.Hostname = Hostname
	session.Started = started
	session.History = history
	session.Packages = sandbox.NewPackageStore(store)
	session.Runner = sandbox.NewRunner(sandbox.DefaultConfig(), logger)
	session.Login()

	cfg := engine.Config{Session: session, Logger: logger}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Harness{
		T:        t,
		Engine:   engine.New(cfg),
		Session:  session,
		Terminal: term,
		Provider: provider,
		Store:    store,
		History:  history,
	}
}

// Run executes line and returns the text it printed.
func (h *Harness) Run(line string) []string {
	h.T.Helper()
	h.Terminal.Reset()
	h.History.Append(line)
	h.Engine.Run(context.Background(), line)
	return h.Terminal.Text()
}

// Output runs line and returns what it printed as one string.
func (h *Harness) Output(line string) string {
	h.T.Helper()
	return strings.Join(h.Run(line), "\n")
}

// Status is the last exit status.
func (h *Harness) Status() int {
	return h.Session.Status()
}

// WriteFile creates or replaces a file, failing the test on error.
func (h *Harness) WriteFile(p, content string) {
	h.T.Helper()
	if err := h.Session.VFS.WriteFile(context.Background(), p, content); err != nil {
		h.T.Fatalf("writing %s: %v", p, err)
	}
}

// Mkdir creates directories, failing the test on error.
func (h *Harness) Mkdir(p string) {
	h.T.Helper()
	if err := h.Session.VFS.MkdirAll(context.Background(), p); err != nil {
		h.T.Fatalf("mkdir %s: %v", p, err)
	}
}

// Chmod changes a mode, failing the test on error.
func (h *Harness) Chmod(p, mode string) {
	h.T.Helper()
	if err := h.Session.VFS.Chmod(context.Background(), p, mode); err != nil {
		h.T.Fatalf("chmod %s: %v", p, err)
	}
}
