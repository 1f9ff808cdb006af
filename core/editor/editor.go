// Package editor implements the interactive input line: cursor motion,
// history browsing, IME composition, completion and submission.
package editor

import (
	"unicode"

	"github.com/startterm/startsh/core/screen"
)

// Writer is the part of the screen buffer the editor commits lines to.
type Writer interface {
	Write(line screen.Line)
	Newline()
	Clear()
}

var _ Writer = (*screen.Buffer)(nil)

// Completer rewrites line given the cursor offset and returns the new line
// and offset. It must not submit.
type Completer func(line string, offset int) (string, int)

// InterruptMarker is appended to a line abandoned with Ctrl-C.
const InterruptMarker = "^C"

// Editor holds the line being composed. Offsets are counted in runes from
// the end of the prompt.
//
// Editor is not safe for concurrent use; the shell serializes access.
type Editor struct {
	out     Writer
	history *History

	prompt    string
	buf       []rune
	cursor    int
	composing bool
	enabled   bool
	read      *pendingRead

	// Complete handles Tab.
	Complete Completer
	// Submit receives each line committed with Enter in primary mode. Input
	// stays disabled until SetEnabled(true) is called.
	Submit func(line string)
	// OnEOF is called for Ctrl-D on an empty line.
	OnEOF func()
}

type snapshot struct {
	prompt  string
	buf     []rune
	cursor  int
	history historyState
}

type pendingRead struct {
	result chan string
	saved  snapshot
}

// New creates an enabled editor that commits lines to out.
func New(out Writer, history *History) *Editor {
	if history == nil {
		history = NewHistory(0)
	}
	return &Editor{
		out:     out,
		history: history,
		enabled: true,
	}
}

// History returns the editor's history.
func (e *Editor) History() *History {
	return e.history
}

// SetPrompt replaces the prompt shown before the line.
func (e *Editor) SetPrompt(prompt string) {
	e.prompt = prompt
}

// Prompt returns the current prompt.
func (e *Editor) Prompt() string {
	return e.prompt
}

// Line returns the text being composed.
func (e *Editor) Line() string {
	return string(e.buf)
}

// Cursor returns the cursor offset within the line.
func (e *Editor) Cursor() int {
	return e.cursor
}

// SetLine replaces the text and moves the cursor to its end.
func (e *Editor) SetLine(line string) {
	e.buf = []rune(line)
	e.cursor = len(e.buf)
}

// SetEnabled opens or closes the input gate.
func (e *Editor) SetEnabled(enabled bool) {
	e.enabled = enabled
}

// Enabled reports whether the primary input gate is open.
func (e *Editor) Enabled() bool {
	return e.enabled
}

// Active reports whether keys are currently accepted, either because input is
// enabled or because an interactive read is pending.
func (e *Editor) Active() bool {
	return e.enabled || e.read != nil
}

// Reading reports whether an interactive read is pending.
func (e *Editor) Reading() bool {
	return e.read != nil
}

// Overlay returns the prompt and line with the cell under the cursor
// highlighted, or nil if input is inactive.
func (e *Editor) Overlay() screen.Line {
	if !e.Active() {
		return nil
	}

	under := " "
	after := ""
	if e.cursor < len(e.buf) {
		under = string(e.buf[e.cursor])
		after = string(e.buf[e.cursor+1:])
	}
	return screen.Styled(screen.StylePrompt, e.prompt).Append(
		screen.Plain(string(e.buf[:e.cursor])),
		screen.Styled(screen.StyleCursor, under),
		screen.Plain(after),
	)
}

// ReadLine starts an interactive read with its own prompt. The primary line,
// cursor and history position are restored once the read resolves. The
// channel receives the entered text, or "" if the read was interrupted.
func (e *Editor) ReadLine(prompt string) <-chan string {
	result := make(chan string, 1)
	if e.read != nil {
		// Only one read at a time; the newer one replaces the older.
		e.read.result <- ""
		e.restore(e.read.saved)
	}

	e.read = &pendingRead{result: result, saved: e.save()}
	e.prompt = prompt
	e.buf = nil
	e.cursor = 0
	e.composing = false
	return result
}

// CancelRead resolves a pending interactive read with "".
func (e *Editor) CancelRead() {
	if e.read == nil {
		return
	}
	r := e.read
	e.read = nil
	e.restore(r.saved)
	r.result <- ""
}

func (e *Editor) save() snapshot {
	return snapshot{
		prompt:  e.prompt,
		buf:     append([]rune(nil), e.buf...),
		cursor:  e.cursor,
		history: e.history.save(),
	}
}

func (e *Editor) restore(s snapshot) {
	e.prompt = s.prompt
	e.buf = s.buf
	e.cursor = s.cursor
	e.history.restore(s.history)
	e.composing = false
}

// HandleKey applies a key. It returns false if the key was ignored because
// input is inactive.
func (e *Editor) HandleKey(k Key) bool {
	if !e.Active() {
		return false
	}

	switch k.Kind {
	case KeyRune:
		if e.composing || !unicode.IsPrint(k.Rune) {
			return true
		}
		e.insert([]rune{k.Rune})
	case KeyText:
		if !e.composing {
			e.insert([]rune(k.Text))
		}
	case KeyCompositionStart:
		e.composing = true
	case KeyCompositionEnd:
		e.composing = false
		e.insert([]rune(k.Text))
	case KeyEnter:
		e.commit("")
	case KeyInterrupt:
		e.commit(InterruptMarker)
	case KeyBackspace:
		e.backspace()
	case KeyDelete:
		e.deleteForward()
	case KeyLeft:
		e.moveTo(e.cursor - 1)
	case KeyRight:
		e.moveTo(e.cursor + 1)
	case KeyHome:
		e.cursor = 0
	case KeyEnd:
		e.cursor = len(e.buf)
	case KeyWordLeft:
		e.cursor = e.wordLeft()
	case KeyWordRight:
		e.cursor = e.wordRight()
	case KeyKillEnd:
		e.buf = e.buf[:e.cursor]
	case KeyKillStart:
		e.buf = append([]rune(nil), e.buf[e.cursor:]...)
		e.cursor = 0
	case KeyKillWordBack:
		start := e.wordLeft()
		e.buf = append(append([]rune(nil), e.buf[:start]...), e.buf[e.cursor:]...)
		e.cursor = start
	case KeyUp:
		if e.read == nil {
			if line, ok := e.history.Prev(string(e.buf)); ok {
				e.SetLine(line)
			}
		}
	case KeyDown:
		if e.read == nil {
			if line, ok := e.history.Next(); ok {
				e.SetLine(line)
			}
		}
	case KeyTab:
		if e.Complete != nil && !e.composing {
			line, offset := e.Complete(string(e.buf), e.cursor)
			e.buf = []rune(line)
			e.moveTo(offset)
		}
	case KeyClear:
		e.out.Clear()
	case KeyEOF:
		if len(e.buf) > 0 {
			e.deleteForward()
		} else if e.read != nil {
			e.commit("")
		} else if e.OnEOF != nil {
			e.OnEOF()
		}
	}
	return true
}

func (e *Editor) insert(runes []rune) {
	if len(runes) == 0 {
		return
	}
	next := make([]rune, 0, len(e.buf)+len(runes))
	next = append(next, e.buf[:e.cursor]...)
	next = append(next, runes...)
	next = append(next, e.buf[e.cursor:]...)
	e.buf = next
	e.cursor += len(runes)
}

func (e *Editor) backspace() {
	if e.cursor == 0 {
		return
	}
	e.buf = append(e.buf[:e.cursor-1:e.cursor-1], e.buf[e.cursor:]...)
	e.cursor--
}

func (e *Editor) deleteForward() {
	if e.cursor >= len(e.buf) {
		return
	}
	e.buf = append(e.buf[:e.cursor:e.cursor], e.buf[e.cursor+1:]...)
}

func (e *Editor) moveTo(offset int) {
	switch {
	case offset < 0:
		offset = 0
	case offset > len(e.buf):
		offset = len(e.buf)
	}
	e.cursor = offset
}

func (e *Editor) wordLeft() int {
	i := e.cursor
	for i > 0 && unicode.IsSpace(e.buf[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(e.buf[i-1]) {
		i--
	}
	return i
}

func (e *Editor) wordRight() int {
	i := e.cursor
	for i < len(e.buf) && unicode.IsSpace(e.buf[i]) {
		i++
	}
	for i < len(e.buf) && !unicode.IsSpace(e.buf[i]) {
		i++
	}
	return i
}

// commit freezes the prompt and line into the buffer so they survive
// scrolling, then hands the line off.
func (e *Editor) commit(marker string) {
	line := string(e.buf)
	e.out.Write(screen.Styled(screen.StylePrompt, e.prompt).Append(screen.Plain(line + marker)))
	e.out.Newline()
	e.buf = nil
	e.cursor = 0
	e.composing = false

	if marker != "" {
		line = ""
	}

	if r := e.read; r != nil {
		e.read = nil
		e.restore(r.saved)
		r.result <- line
		return
	}

	e.history.Append(line)
	e.enabled = false
	if e.Submit != nil {
		e.Submit(line)
	}
}
