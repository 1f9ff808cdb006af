package core

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/startterm/startsh/core/editor"
	"github.com/startterm/startsh/core/screen"
	"github.com/startterm/startsh/core/vfs"
)

type recordingSurface struct {
	mu         sync.Mutex
	rows, cols int
	frames     [][]screen.Line
}

func (r *recordingSurface) SetGrid(rows, cols int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows, r.cols = rows, cols
}

func (r *recordingSurface) Render(rows []screen.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, rows)
	return nil
}

func (r *recordingSurface) last() []screen.Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

func newTestShell(t *testing.T, opts Options) *Shell {
	t.Helper()

	if opts.Provider == nil {
		opts.Provider = vfs.NewMemoryProvider()
	}
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	s, err := NewShell(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	s.Start(context.Background())
	return s
}

// screenText returns the visible rows with trailing blanks removed.
func screenText(s *Shell) []string {
	rows := s.Text()
	for i, row := range rows {
		rows[i] = strings.TrimRight(row, " ")
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	return rows
}

func submit(t *testing.T, s *Shell, line string) {
	t.Helper()
	require.NoError(t, s.Submit(line))
	s.Wait()
}

func TestShell_Start(t *testing.T) {
	s := newTestShell(t, Options{Motd: "Welcome to startsh\nHave fun"})

	assert.Equal(t, []string{
		"Welcome to startsh",
		"Have fun",
		"guest@startsh:~$",
	}, screenText(s))

	body, ok := s.Session().Aliases.Lookup("ll")
	assert.True(t, ok, "profile should define aliases")
	assert.Equal(t, "ls -la", body)
}

func TestShell_Submit(t *testing.T) {
	s := newTestShell(t, Options{})

	submit(t, s, "echo hello")
	submit(t, s, "nope")

	assert.Equal(t, []string{
		"guest@startsh:~$ echo hello",
		"hello",
		"guest@startsh:~$ nope",
		"startsh: command not found: nope",
		"guest@startsh:~$",
	}, screenText(s))
	assert.Equal(t, 127, s.Session().Status())
	assert.Equal(t, []string{"echo hello", "nope"}, s.Session().History.Entries())
}

func TestShell_Prompt(t *testing.T) {
	s := newTestShell(t, Options{Hostname: "box"})
	assert.Equal(t, "guest@box:~$ ", s.Prompt())

	submit(t, s, "cd /etc")
	assert.Equal(t, "guest@box:/etc$ ", s.Prompt())

	submit(t, s, "cd ~")
	submit(t, s, "mkdir docs; cd docs")
	assert.Equal(t, "guest@box:~/docs$ ", s.Prompt())

	s.Session().Env.Set("PS1", `[\u \w]\$ `)
	assert.Equal(t, "[guest ~/docs]$ ", s.Prompt())

	submit(t, s, "su")
	assert.Equal(t, "root@box:~# ", s.Prompt())
}

func TestShell_Complete(t *testing.T) {
	s := newTestShell(t, Options{})
	submit(t, s, "touch notes")

	cases := []struct {
		name       string
		line       string
		offset     int
		wantLine   string
		wantOffset int
	}{
		{"command", "ech", 3, "echo ", 5},
		{"command mid line", "ech foo", 3, "echo  foo", 5},
		{"after pipe", "echo hi | sor", 13, "echo hi | sort ", 15},
		{"ambiguous command", "so", 2, "so", 2},
		{"alias", "ll", 2, "ll ", 3},
		{"unknown", "xyz", 3, "xyz", 3},
		{"file", "cat no", 6, "cat notes ", 10},
		{"folder with space", "ls ../Oth", 9, `ls "../Other Bookmarks/"`, 24},
		{"absolute folder", "cd /e", 5, "cd /etc/", 8},
		{"nested file", "cat /etc/pro", 12, "cat /etc/profile ", 17},
		{"proc", "cat /proc/ho", 12, "cat /proc/hostname ", 19},
		{"common prefix", "cat /proc/u", 11, "cat /proc/u", 11},
		{"missing dir", "cat /nope/x", 11, "cat /nope/x", 11},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line, offset := s.complete(tc.line, tc.offset)
			assert.Equal(t, tc.wantLine, line)
			assert.Equal(t, tc.wantOffset, offset)
		})
	}
}

func TestShell_CompleteLists(t *testing.T) {
	s := newTestShell(t, Options{})

	for _, k := range editor.TextKeys("cat /proc/u") {
		s.HandleKey(k)
	}
	s.HandleKey(editor.Key{Kind: editor.KeyTab})

	assert.Equal(t, []string{
		"guest@startsh:~$ cat /proc/u",
		"/proc/user  /proc/uptime",
		"guest@startsh:~$ cat /proc/u",
	}, screenText(s))
}

func TestCommonPrefix(t *testing.T) {
	assert.Equal(t, "", commonPrefix(nil))
	assert.Equal(t, "abc", commonPrefix([]string{"abc"}))
	assert.Equal(t, "ab", commonPrefix([]string{"abc", "abd", "ab"}))
	assert.Equal(t, "", commonPrefix([]string{"abc", "xyz"}))
	assert.Equal(t, "日本", commonPrefix([]string{"日本語", "日本人"}))
}

func TestShell_Confirm(t *testing.T) {
	s := newTestShell(t, Options{})

	require.NoError(t, s.Submit("confirm Proceed?"))
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.editor.Reading()
	}, time.Second, 5*time.Millisecond)

	// The primary line is busy; only the read accepts input.
	assert.ErrorIs(t, s.Submit("echo no"), ErrBusy)

	for _, k := range editor.TextKeys("y") {
		s.HandleKey(k)
	}
	s.HandleKey(editor.Key{Kind: editor.KeyEnter})
	s.Wait()

	assert.Equal(t, 0, s.Session().Status())
	assert.Equal(t, []string{
		"guest@startsh:~$ confirm Proceed?",
		"Proceed? [y/N] y",
		"guest@startsh:~$",
	}, screenText(s))
}

func TestShell_ReadLineAnsweredBeforeCancel(t *testing.T) {
	s := newTestShell(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type answer struct {
		line string
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		line, err := s.ReadLine(ctx, "Name? ")
		done <- answer{line, err}
	}()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.editor.Reading()
	}, time.Second, 5*time.Millisecond)

	// Answer and cancel together so both are ready when the read wakes.
	s.mu.Lock()
	for _, k := range editor.TextKeys("ada") {
		s.editor.HandleKey(k)
	}
	s.editor.HandleKey(editor.Key{Kind: editor.KeyEnter})
	cancel()
	s.mu.Unlock()

	got := <-done
	assert.NoError(t, got.err)
	assert.Equal(t, "ada", got.line)
}

func TestShell_ReadLineCancelled(t *testing.T) {
	s := newTestShell(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.ReadLine(ctx, "Name? ")
		done <- err
	}()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.editor.Reading()
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.False(t, s.editor.Reading())
}

func TestShell_Interrupt(t *testing.T) {
	s := newTestShell(t, Options{})

	for _, k := range editor.TextKeys("abc") {
		s.HandleKey(k)
	}
	s.HandleKey(editor.Key{Kind: editor.KeyInterrupt})
	s.Wait()

	assert.Equal(t, []string{
		"guest@startsh:~$ abc^C",
		"guest@startsh:~$",
	}, screenText(s))
	assert.Empty(t, s.Session().History.Entries())
}

func TestShell_Run(t *testing.T) {
	s := newTestShell(t, Options{})

	keys := make(chan editor.Key, 32)
	for _, k := range editor.TextKeys("echo hi") {
		keys <- k
	}
	keys <- editor.Key{Kind: editor.KeyEnter}
	close(keys)

	require.NoError(t, s.Run(context.Background(), keys))
	s.Wait()

	assert.Equal(t, []string{
		"guest@startsh:~$ echo hi",
		"hi",
		"guest@startsh:~$",
	}, screenText(s))
}

func TestShell_RunCancelled(t *testing.T) {
	s := newTestShell(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx, make(chan editor.Key)), context.Canceled)
}

func TestShell_Exit(t *testing.T) {
	exited := 0
	s := newTestShell(t, Options{OnExit: func() { exited++ }})

	submit(t, s, "exit")
	select {
	case <-s.Done():
	default:
		t.Fatal("shell should be done")
	}
	assert.Equal(t, 1, exited)

	// Run returns straight away once the user has left.
	assert.NoError(t, s.Run(context.Background(), make(chan editor.Key)))
}

func TestShell_EOF(t *testing.T) {
	s := newTestShell(t, Options{})

	s.HandleKey(editor.Key{Kind: editor.KeyEOF})
	select {
	case <-s.Done():
	default:
		t.Fatal("Ctrl-D on an empty line should exit")
	}
}

func TestShell_Clear(t *testing.T) {
	s := newTestShell(t, Options{Motd: "banner"})

	submit(t, s, "clear")
	assert.Equal(t, []string{"guest@startsh:~$"}, screenText(s))
}

func TestShell_Resize(t *testing.T) {
	surface := &recordingSurface{}
	s := newTestShell(t, Options{Surface: surface, Rows: 24, Cols: 80})

	submit(t, s, "echo hello")
	s.Resize(10, 50)

	rows, cols := s.Size()
	assert.Equal(t, 10, rows)
	assert.Equal(t, 50, cols)
	assert.Equal(t, 10, surface.rows)
	assert.Equal(t, 50, surface.cols)

	assert.Equal(t, []string{ResizeNotice, "guest@startsh:~$"}, screenText(s))

	frame := surface.last()
	require.Len(t, frame, 10)
	for _, row := range frame {
		assert.Equal(t, 50, row.Width())
	}
}

func TestShell_Proc(t *testing.T) {
	s := newTestShell(t, Options{Hostname: "box"})

	submit(t, s, "cat /proc/user /proc/hostname /proc/version")
	assert.Equal(t, []string{
		"guest@box:~$ cat /proc/user /proc/hostname /proc/version",
		"guest",
		"box",
		"startsh version " + Version,
		"guest@box:~$",
	}, screenText(s))
}

func TestShell_DefaultPackages(t *testing.T) {
	s := newTestShell(t, Options{DefaultPackages: []string{"rev"}})

	submit(t, s, "rev hello")
	assert.Contains(t, screenText(s), "olleh")

	_, err := NewShell(context.Background(), Options{
		Provider:        vfs.NewMemoryProvider(),
		DefaultPackages: []string{"missing"},
	})
	assert.Error(t, err)
}

func TestShell_ExistingProfile(t *testing.T) {
	store := vfs.NewMemoryStore()
	provider := vfs.NewMemoryProvider()

	first := newTestShell(t, Options{Provider: provider, Store: store})
	submit(t, first, "write /etc/profile 'alias hi=\"echo hi there\"'")

	second := newTestShell(t, Options{Provider: provider, Store: store})
	_, ok := second.Session().Aliases.Lookup("ll")
	assert.False(t, ok, "an edited profile is kept")

	submit(t, second, "hi")
	assert.Contains(t, screenText(second), "hi there")
}

func TestShell_Golden(t *testing.T) {
	s := newTestShell(t, Options{Rows: 6, Cols: 30})

	submit(t, s, "mkdir docs")
	submit(t, s, "ls")

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	var markup []string
	for _, row := range s.Frame() {
		markup = append(markup, strings.TrimRight(row.Markup(), " "))
	}
	g.Assert(t, "frame", []byte(strings.Join(markup, "\n")+"\n"))
}

func TestNewShell_RequiresProvider(t *testing.T) {
	_, err := NewShell(context.Background(), Options{})
	assert.Error(t, err)
}
