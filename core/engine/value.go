package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/startterm/startsh/core/screen"
)

// Value is what a stage hands to the next stage of a pipeline. A nil *Value
// means nothing was piped.
type Value struct {
	Lines []string
	// Data optionally carries a structured result alongside the lines.
	Data interface{}
}

// Lines returns a Value holding lines.
func Lines(lines ...string) *Value {
	return &Value{Lines: lines}
}

// Text returns the value's lines; it's safe to call on nil.
func (v *Value) Text() []string {
	if v == nil {
		return nil
	}
	return v.Lines
}

// Output receives what a command prints.
type Output interface {
	// WriteLine prints plain text. Embedded newlines start new lines.
	WriteLine(text string)
	// WriteMarkup prints a markup fragment such as
	// <span class="term-folder">docs</span>.
	WriteMarkup(markup string)
	// WriteSpans prints an already styled line.
	WriteSpans(line screen.Line)
	// Errorf prints an error-styled line. Errors are never piped.
	Errorf(format string, args ...interface{})
}

// LineWriter is anything that can show a styled line.
type LineWriter interface {
	WriteLine(line screen.Line)
}

// ScreenOutput writes to a terminal.
type ScreenOutput struct {
	w LineWriter
}

var _ Output = (*ScreenOutput)(nil)

// NewScreenOutput creates an output that prints to w.
func NewScreenOutput(w LineWriter) *ScreenOutput {
	return &ScreenOutput{w: w}
}

func (s *ScreenOutput) WriteLine(text string) {
	s.w.WriteLine(screen.Plain(text))
}

func (s *ScreenOutput) WriteMarkup(markup string) {
	s.w.WriteLine(screen.ParseMarkup(markup))
}

func (s *ScreenOutput) WriteSpans(line screen.Line) {
	s.w.WriteLine(line)
}

func (s *ScreenOutput) Errorf(format string, args ...interface{}) {
	s.w.WriteLine(screen.Styled(screen.StyleError, fmt.Sprintf(format, args...)))
}

// PipeOutput collects a stage's output as plain lines for the next stage.
// Styling is dropped; errors pass through to the parent output.
type PipeOutput struct {
	mu     sync.Mutex
	lines  []string
	parent Output
}

var _ Output = (*PipeOutput)(nil)

// NewPipeOutput creates a pipe whose errors go to parent.
func NewPipeOutput(parent Output) *PipeOutput {
	return &PipeOutput{parent: parent}
}

func (p *PipeOutput) WriteLine(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, strings.Split(text, "\n")...)
}

func (p *PipeOutput) WriteMarkup(markup string) {
	p.WriteSpans(screen.ParseMarkup(markup))
}

func (p *PipeOutput) WriteSpans(line screen.Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, part := range line.SplitLines() {
		p.lines = append(p.lines, part.String())
	}
}

func (p *PipeOutput) Errorf(format string, args ...interface{}) {
	p.parent.Errorf(format, args...)
}

// Value returns the collected lines, nil if nothing was written.
func (p *PipeOutput) Value() *Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lines == nil {
		return nil
	}
	return Lines(append([]string(nil), p.lines...)...)
}
