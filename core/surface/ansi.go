// Package surface draws rendered frames onto real displays: a VT100 stream
// for raw terminals and SSH channels, or a tcell screen.
package surface

import (
	"bytes"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/startterm/startsh/core/screen"
)

const (
	hideCursor = "\x1b[?25l"
	showCursor = "\x1b[?25h"
	cursorHome = "\x1b[H"
	clearAll   = "\x1b[2J"
)

var ansiStyles = map[screen.Style]*color.Color{
	screen.StyleError:     color.New(color.FgRed),
	screen.StyleFolder:    color.New(color.FgBlue, color.Bold),
	screen.StyleSuccess:   color.New(color.FgGreen),
	screen.StyleWarning:   color.New(color.FgYellow),
	screen.StyleHighlight: color.New(color.FgBlack, color.BgYellow),
	screen.StylePrompt:    color.New(color.FgGreen, color.Bold),
	screen.StyleCursor:    color.New(color.ReverseVideo),
	screen.StyleLink:      color.New(color.FgCyan, color.Underline),
}

func init() {
	// Frames go to remote terminals, so the local tty doesn't matter.
	for _, c := range ansiStyles {
		c.EnableColor()
	}
}

// ANSI redraws every frame in full on a VT100 compatible stream.
type ANSI struct {
	mu sync.Mutex
	w  io.Writer

	rows, cols int
	cleared    bool
}

var _ screen.Surface = (*ANSI)(nil)

// NewANSI creates a surface writing to w.
func NewANSI(w io.Writer) *ANSI {
	return &ANSI{w: w}
}

// SetGrid records the grid size; the next frame clears the terminal first.
func (a *ANSI) SetGrid(rows, cols int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows, a.cols = rows, cols
	a.cleared = false
}

func (a *ANSI) Render(rows []screen.Line) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var buf bytes.Buffer
	if !a.cleared {
		buf.WriteString(clearAll)
		a.cleared = true
	}
	buf.Write(EncodeFrame(rows))
	_, err := a.w.Write(buf.Bytes())
	return err
}

// Close shows the cursor again and moves below the frame.
func (a *ANSI) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := io.WriteString(a.w, "\r\n"+showCursor)
	return err
}

// EncodeFrame turns a frame into VT100 output that homes the cursor and
// overwrites every row.
func EncodeFrame(rows []screen.Line) []byte {
	var buf bytes.Buffer
	buf.WriteString(hideCursor)
	buf.WriteString(cursorHome)
	for i, row := range rows {
		if i > 0 {
			buf.WriteString("\r\n")
		}
		buf.WriteString(EncodeLine(row))
	}
	return buf.Bytes()
}

// EncodeLine renders the spans of a line with SGR colors.
func EncodeLine(line screen.Line) string {
	var buf bytes.Buffer
	for _, span := range line {
		if c, ok := ansiStyles[span.Style]; ok {
			buf.WriteString(c.Sprint(span.Text))
			continue
		}
		buf.WriteString(span.Text)
	}
	return buf.String()
}
