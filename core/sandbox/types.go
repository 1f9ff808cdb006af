// Package sandbox runs user-installed JavaScript packages in an isolated goja
// runtime. Scripts see only the st_api bridge, their arguments and the piped
// input; everything they produce comes back as messages.
package sandbox

import (
	"time"
)

// Config defines sandbox configuration
type Config struct {
	Timeout          time.Duration // Execution timeout
	MaxCallStackSize int           // Maximum JavaScript call depth
	MessageBuffer    int           // Messages buffered before the script blocks
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxCallStackSize: 1024,
		MessageBuffer:    64,
	}
}

// MessageKind says what a Message carries.
type MessageKind int

const (
	// MessageLine is a line of plain text output.
	MessageLine MessageKind = iota
	// MessageMarkup is a sanitized markup fragment.
	MessageMarkup
	// MessageResult is the final value, always the last message on success.
	MessageResult
	// MessageError is the final failure, always the last message on error.
	MessageError
)

func (k MessageKind) String() string {
	switch k {
	case MessageLine:
		return "line"
	case MessageMarkup:
		return "markup"
	case MessageResult:
		return "result"
	case MessageError:
		return "error"
	}
	return "unknown"
}

// Message crosses the boundary between a running script and the host.
type Message struct {
	Kind MessageKind
	// Text holds the line, markup or error message.
	Text string
	// Lines holds the result of a MessageResult, nil if the script returned
	// nothing.
	Lines []string
}
