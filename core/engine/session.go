package engine

import (
	"context"
	"sync"
	"time"

	"github.com/startterm/startsh/core/sandbox"
	"github.com/startterm/startsh/core/screen"
	"github.com/startterm/startsh/core/vfs"
)

// Well known environment variables.
const (
	EnvHome     = "HOME"
	EnvPWD      = "PWD"
	EnvPath     = "PATH"
	EnvPrompt   = "PS1"
	EnvHostname = "HOSTNAME"
	EnvUser     = "USER"
	EnvShell    = "SHELL"

	// DefaultPrompt is used when PS1 isn't set.
	DefaultPrompt = `\u@\h:\w\$ `
	// ShellName is how the shell names itself in errors and $0.
	ShellName = "startsh"
)

// Terminal is the interactive side of a session.
type Terminal interface {
	LineWriter
	// Clear empties the screen.
	Clear()
	// ReadLine asks the user for a line of input with prompt. An interrupt
	// answers "".
	ReadLine(ctx context.Context, prompt string) (string, error)
	// Size returns the grid size.
	Size() (rows, cols int)
}

// History gives commands access to submitted lines.
type History interface {
	Entries() []string
	Clear()
}

// Session is everything a command can see: who is logged in, where they
// are and what they've configured.
type Session struct {
	Env      *Environment
	Aliases  *Environment
	VFS      *vfs.VFS
	Packages *sandbox.PackageStore
	Runner   *sandbox.Runner
	Terminal Terminal
	History  History
	Hostname string
	// Prompt is the $PS1 set at login. Empty means DefaultPrompt.
	Prompt  string
	Started time.Time
	// OnExit is called by the exit command.
	OnExit func()

	mu     sync.Mutex
	status int
}

// NewSession creates a session over fsys with an empty environment.
func NewSession(fsys *vfs.VFS, term Terminal) *Session {
	return &Session{
		Env:      NewEnvironment(),
		Aliases:  NewEnvironment(),
		VFS:      fsys,
		Terminal: term,
		Started:  time.Now(),
	}
}

// Status returns the last exit status, $?.
func (s *Session) Status() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus records the last exit status.
func (s *Session) SetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Identity is the logged in identity.
func (s *Session) Identity() vfs.Identity {
	return s.VFS.Identity()
}

// Uptime is how long the session has been running.
func (s *Session) Uptime() time.Duration {
	return time.Since(s.Started)
}

// Login resets the environment and aliases for the current identity.
func (s *Session) Login() {
	id := s.VFS.Identity()

	s.Env.Clear()
	s.Aliases.Clear()
	s.Env.Set(EnvUser, id.User)
	s.Env.Set(EnvHome, s.VFS.Home())
	s.Env.Set(EnvPWD, s.VFS.Pwd())
	s.Env.Set(EnvPath, "/bin")
	s.Env.Set(EnvHostname, s.Hostname)
	s.Env.Set(EnvShell, ShellName)
	if s.Prompt != "" {
		s.Env.Set(EnvPrompt, s.Prompt)
	} else {
		s.Env.Set(EnvPrompt, DefaultPrompt)
	}
}

// SwitchUser changes identity and logs in again. The caller is expected to
// source the profile afterwards.
func (s *Session) SwitchUser(user, group string) {
	id := vfs.NewIdentity(user, group)
	id.Umask = s.VFS.Identity().Umask
	s.VFS.SetIdentity(id)
	s.Login()
}

// output returns an Output that prints to the terminal.
func (s *Session) output() Output {
	if s.Terminal == nil {
		return NewScreenOutput(discard{})
	}
	return NewScreenOutput(s.Terminal)
}

type discard struct{}

func (discard) WriteLine(screen.Line) {}
