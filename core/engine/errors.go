package engine

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/startterm/startsh/core/vfs"
)

// ErrorKind classifies command failures.
type ErrorKind int

const (
	// ParseError is a malformed group.
	ParseError ErrorKind = iota
	// ResolutionError is a name or path that couldn't be found.
	ResolutionError
	// PermissionError is a denied read, write or execute.
	PermissionError
	// ProviderError is a failure reported by the resource provider.
	ProviderError
	// RuntimeError is everything else a command reports.
	RuntimeError
)

func (k ErrorKind) String() string {
	switch k {
	case ParseError:
		return "parse"
	case ResolutionError:
		return "resolution"
	case PermissionError:
		return "permission"
	case ProviderError:
		return "provider"
	case RuntimeError:
		return "runtime"
	}
	return "unknown"
}

// Error is a failed group. It renders as "command: message".
type Error struct {
	Kind    ErrorKind
	Command string
	Err     error
}

func (e *Error) Error() string {
	if e.Command == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status is the exit status the error sets.
func (e *Error) Status() int {
	switch e.Kind {
	case ResolutionError:
		if errors.Is(e.Err, ErrCommandNotFound) {
			return 127
		}
	case ParseError:
		return 2
	}
	return 1
}

var (
	// ErrCommandNotFound is reported when nothing resolves a command name.
	ErrCommandNotFound = errors.New("command not found")
	// ErrNestingDepth is reported when scripts nest too deeply.
	ErrNestingDepth = errors.New("maximum nesting depth exceeded")
)

// StatusError ends a command with a non-zero status without printing
// anything.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitStatus returns an error that sets $? to code.
func ExitStatus(code int) error {
	if code == 0 {
		return nil
	}
	return &StatusError{Code: code}
}

// PathError reports err against a user-supplied path in the
// "path: Description" form commands print.
func PathError(path string, err error) error {
	return &describedError{prefix: path, err: err}
}

type describedError struct {
	prefix string
	err    error
}

func (e *describedError) Error() string {
	return fmt.Sprintf("%s: %s", e.prefix, vfs.Describe(e.err))
}

func (e *describedError) Unwrap() error {
	return e.err
}

// classify wraps err as an *Error for command.
func classify(command string, err error) *Error {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr
	}

	kind := RuntimeError
	var providerErr *vfs.ProviderError
	switch {
	case errors.As(err, &providerErr):
		kind = ProviderError
	case errors.Is(err, fs.ErrPermission), errors.Is(err, vfs.ErrReadOnly):
		kind = PermissionError
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, ErrCommandNotFound):
		kind = ResolutionError
	}
	return &Error{Kind: kind, Command: command, Err: err}
}
