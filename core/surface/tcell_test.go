package surface

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startterm/startsh/core/editor"
	"github.com/startterm/startsh/core/screen"
)

func newSimulationScreen(t *testing.T, cols, rows int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(cols, rows)
	t.Cleanup(s.Fini)
	return s
}

func TestTcell_Render(t *testing.T) {
	s := newSimulationScreen(t, 6, 2)
	surface := NewTcell(s)
	surface.SetGrid(2, 6)

	require.NoError(t, surface.Render([]screen.Line{
		screen.Styled(screen.StylePrompt, "$ ").Append(screen.Plain("ls  ")),
		screen.Plain("日本  "),
	}))

	primary, _, style, _ := s.GetContent(0, 0)
	assert.Equal(t, '$', primary)
	assert.Equal(t, TcellStyle(screen.StylePrompt), style)

	primary, _, style, _ = s.GetContent(2, 0)
	assert.Equal(t, 'l', primary)
	assert.Equal(t, tcell.StyleDefault, style)

	primary, _, _, width := s.GetContent(0, 1)
	assert.Equal(t, '日', primary)
	assert.Equal(t, 2, width)

	primary, _, _, _ = s.GetContent(2, 1)
	assert.Equal(t, '本', primary)
}

func TestTcellStyle_Unknown(t *testing.T) {
	assert.Equal(t, tcell.StyleDefault, TcellStyle(screen.Style(200)))
}

func TestTcellKey(t *testing.T) {
	cases := map[string]struct {
		ev     *tcell.EventKey
		want   editor.Key
		wantOk bool
	}{
		"rune":       {tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone), editor.RuneKey('a'), true},
		"enter":      {tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), editor.Key{Kind: editor.KeyEnter}, true},
		"backspace2": {tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), editor.Key{Kind: editor.KeyBackspace}, true},
		"ctrl-c":     {tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), editor.Key{Kind: editor.KeyInterrupt}, true},
		"ctrl-d":     {tcell.NewEventKey(tcell.KeyCtrlD, 0, tcell.ModCtrl), editor.Key{Kind: editor.KeyEOF}, true},
		"ctrl-a":     {tcell.NewEventKey(tcell.KeyCtrlA, 0, tcell.ModCtrl), editor.Key{Kind: editor.KeyHome}, true},
		"tab":        {tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone), editor.Key{Kind: editor.KeyTab}, true},
		"ctrl-left":  {tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModCtrl), editor.Key{Kind: editor.KeyWordLeft}, true},
		"left":       {tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), editor.Key{Kind: editor.KeyLeft}, true},
		"alt-f":      {tcell.NewEventKey(tcell.KeyRune, 'f', tcell.ModAlt), editor.Key{Kind: editor.KeyWordRight}, true},
		"alt-x":      {tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), editor.Key{}, false},
		"f1":         {tcell.NewEventKey(tcell.KeyF1, 0, tcell.ModNone), editor.Key{}, false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got, ok := TcellKey(tc.ev)
			assert.Equal(t, tc.wantOk, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPollKeys(t *testing.T) {
	s := newSimulationScreen(t, 80, 24)

	var mu sync.Mutex
	var sizes [][2]int
	onResize := func(rows, cols int) {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, [2]int{rows, cols})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	keys := make(chan editor.Key, 16)
	go PollKeys(ctx, s, keys, onResize)

	require.NoError(t, s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)))
	require.NoError(t, s.PostEvent(tcell.NewEventResize(40, 12)))
	require.NoError(t, s.PostEvent(tcell.NewEventPaste(true)))
	require.NoError(t, s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'h', tcell.ModNone)))
	require.NoError(t, s.PostEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)))
	require.NoError(t, s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'i', tcell.ModNone)))
	require.NoError(t, s.PostEvent(tcell.NewEventPaste(false)))

	next := func() editor.Key {
		select {
		case k := <-keys:
			return k
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for a key")
			return editor.Key{}
		}
	}

	assert.Equal(t, editor.RuneKey('x'), next())
	assert.Equal(t, editor.Key{Kind: editor.KeyText, Text: "h i"}, next())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, size := range sizes {
			if size == [2]int{12, 40} {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	cancel()
	for range keys {
	}
}
