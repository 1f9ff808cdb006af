package surface

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/startterm/startsh/core/editor"
	"github.com/startterm/startsh/core/screen"
)

var tcellStyles = map[screen.Style]tcell.Style{
	screen.StyleNormal:    tcell.StyleDefault,
	screen.StyleError:     tcell.StyleDefault.Foreground(tcell.ColorRed),
	screen.StyleFolder:    tcell.StyleDefault.Foreground(tcell.ColorBlue).Bold(true),
	screen.StyleSuccess:   tcell.StyleDefault.Foreground(tcell.ColorGreen),
	screen.StyleWarning:   tcell.StyleDefault.Foreground(tcell.ColorYellow),
	screen.StyleHighlight: tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow),
	screen.StylePrompt:    tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true),
	screen.StyleCursor:    tcell.StyleDefault.Reverse(true),
	screen.StyleLink:      tcell.StyleDefault.Foreground(tcell.ColorAqua).Underline(true),
}

// TcellStyle maps a span style onto the screen.
func TcellStyle(style screen.Style) tcell.Style {
	if s, ok := tcellStyles[style]; ok {
		return s
	}
	return tcell.StyleDefault
}

// Tcell draws frames on a tcell screen. The caller owns Init and Fini.
type Tcell struct {
	mu     sync.Mutex
	screen tcell.Screen
}

var _ screen.Surface = (*Tcell)(nil)

func NewTcell(s tcell.Screen) *Tcell {
	s.HideCursor()
	return &Tcell{screen: s}
}

// SetGrid clears the screen. The shell follows the screen's size, not the
// other way around.
func (t *Tcell) SetGrid(rows, cols int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.screen.Clear()
}

func (t *Tcell) Render(rows []screen.Line) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for y, row := range rows {
		x := 0
		for _, span := range row {
			style := TcellStyle(span.Style)
			for _, r := range span.Text {
				width := screen.RuneWidth(r)
				if width == 0 {
					continue
				}
				t.screen.SetContent(x, y, r, nil, style)
				x += width
			}
		}
	}
	t.screen.Show()
	return nil
}

// TcellKey maps a key event onto the editor's keys. ok is false for keys the
// editor doesn't use.
func TcellKey(ev *tcell.EventKey) (key editor.Key, ok bool) {
	if ev.Modifiers()&tcell.ModAlt != 0 && ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case 'b', 'B':
			return editor.Key{Kind: editor.KeyWordLeft}, true
		case 'f', 'F':
			return editor.Key{Kind: editor.KeyWordRight}, true
		case 'd', 'D':
			return editor.Key{Kind: editor.KeyKillEnd}, true
		}
		return editor.Key{}, false
	}

	switch ev.Key() {
	case tcell.KeyRune:
		return editor.RuneKey(ev.Rune()), true
	case tcell.KeyEnter:
		return editor.Key{Kind: editor.KeyEnter}, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return editor.Key{Kind: editor.KeyBackspace}, true
	case tcell.KeyDelete:
		return editor.Key{Kind: editor.KeyDelete}, true
	case tcell.KeyLeft, tcell.KeyCtrlB:
		if ev.Modifiers()&(tcell.ModCtrl|tcell.ModAlt) != 0 && ev.Key() == tcell.KeyLeft {
			return editor.Key{Kind: editor.KeyWordLeft}, true
		}
		return editor.Key{Kind: editor.KeyLeft}, true
	case tcell.KeyRight, tcell.KeyCtrlF:
		if ev.Modifiers()&(tcell.ModCtrl|tcell.ModAlt) != 0 && ev.Key() == tcell.KeyRight {
			return editor.Key{Kind: editor.KeyWordRight}, true
		}
		return editor.Key{Kind: editor.KeyRight}, true
	case tcell.KeyUp, tcell.KeyCtrlP:
		return editor.Key{Kind: editor.KeyUp}, true
	case tcell.KeyDown, tcell.KeyCtrlN:
		return editor.Key{Kind: editor.KeyDown}, true
	case tcell.KeyHome, tcell.KeyCtrlA:
		return editor.Key{Kind: editor.KeyHome}, true
	case tcell.KeyEnd, tcell.KeyCtrlE:
		return editor.Key{Kind: editor.KeyEnd}, true
	case tcell.KeyCtrlK:
		return editor.Key{Kind: editor.KeyKillEnd}, true
	case tcell.KeyCtrlU:
		return editor.Key{Kind: editor.KeyKillStart}, true
	case tcell.KeyCtrlW:
		return editor.Key{Kind: editor.KeyKillWordBack}, true
	case tcell.KeyTab:
		return editor.Key{Kind: editor.KeyTab}, true
	case tcell.KeyCtrlC:
		return editor.Key{Kind: editor.KeyInterrupt}, true
	case tcell.KeyCtrlL:
		return editor.Key{Kind: editor.KeyClear}, true
	case tcell.KeyCtrlD:
		return editor.Key{Kind: editor.KeyEOF}, true
	}
	return editor.Key{}, false
}

// PollKeys feeds key events from the screen into keys until ctx is done or
// the screen is finalized. Pastes arrive as a single KeyText. onResize gets
// the new size in rows and columns. keys is closed on return.
func PollKeys(ctx context.Context, s tcell.Screen, keys chan<- editor.Key, onResize func(rows, cols int)) {
	defer close(keys)

	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	defer close(quit)
	go s.ChannelEvents(events, quit)

	emit := func(k editor.Key) bool {
		select {
		case keys <- k:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var paste []rune
	pasting := false
	for {
		var ev tcell.Event
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			ev = e
		}

		switch ev := ev.(type) {
		case *tcell.EventResize:
			if onResize != nil {
				cols, rows := ev.Size()
				onResize(rows, cols)
			}
		case *tcell.EventPaste:
			if ev.Start() {
				pasting, paste = true, nil
				continue
			}
			pasting = false
			if len(paste) > 0 && !emit(editor.Key{Kind: editor.KeyText, Text: string(paste)}) {
				return
			}
		case *tcell.EventKey:
			if pasting {
				switch ev.Key() {
				case tcell.KeyRune:
					paste = append(paste, ev.Rune())
				case tcell.KeyEnter, tcell.KeyTab:
					// The line editor holds a single line.
					paste = append(paste, ' ')
				}
				continue
			}
			if k, ok := TcellKey(ev); ok && !emit(k) {
				return
			}
		}
	}
}
