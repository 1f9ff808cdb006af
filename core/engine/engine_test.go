package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/engine/enginetest"
	"github.com/startterm/startsh/core/screen"
)

func builtin(name string, fn engine.HandlerFunc) *engine.Command {
	return &engine.Command{Name: name, Kind: engine.KindBuiltin, Handler: fn}
}

// testCommands are minimal commands that exercise the engine contract.
func testCommands(frames *[]engine.Frame) []*engine.Command {
	return []*engine.Command{
		builtin("say", func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			inv.Out.WriteLine(strings.Join(inv.Words, " "))
			return nil, nil
		}),
		builtin("upper", func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			for _, line := range inv.Input.Text() {
				inv.Out.WriteLine(strings.ToUpper(line))
			}
			return nil, nil
		}),
		builtin("count", func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			if !inv.Piped() {
				inv.Out.WriteLine("not piped")
				return nil, nil
			}
			inv.Out.WriteLine(fmt.Sprint(len(inv.Input.Lines)))
			return nil, nil
		}),
		builtin("styled", func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			inv.Out.WriteMarkup(`<span class="term-folder">docs/</span> and <b>more</b>`)
			return nil, nil
		}),
		builtin("value", func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			inv.Out.WriteLine("ignored by the pipe")
			return engine.Lines("x", "y"), nil
		}),
		builtin("silent", func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			return nil, nil
		}),
		builtin("fail", func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			inv.Out.WriteLine("before failing")
			return nil, errors.New("boom")
		}),
		builtin("explode", func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			panic("kaboom")
		}),
		builtin("frames", func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			*frames = inv.Engine.Frames()
			return nil, nil
		}),
		{
			Name: "where",
			Kind: engine.KindFilesystem,
			Handler: engine.HandlerFunc(func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
				inv.Out.WriteLine(inv.VFS().Pwd())
				return nil, nil
			}),
		},
	}
}

func newHarness(t *testing.T, opts ...enginetest.Option) (*enginetest.Harness, *[]engine.Frame) {
	var frames []engine.Frame
	opts = append([]enginetest.Option{enginetest.WithCommands(testCommands(&frames)...)}, opts...)
	return enginetest.New(t, opts...), &frames
}

func TestEngine_Run(t *testing.T) {
	cases := []struct {
		name       string
		line       string
		want       []string
		wantStatus int
	}{
		{"single stage", "say hello world", []string{"hello world"}, 0},
		{"quoted words", `say "a  b" 'c $USER'`, []string{"a  b c $USER"}, 0},
		{"expansion", `say $USER "${HOSTNAME}"`, []string{"guest startsh"}, 0},
		{"pipe threads lines", "say a b | upper", []string{"A B"}, 0},
		{"three stages", "say a | upper | count", []string{"1"}, 0},
		{"markup stripped in pipe", "styled | upper", []string{"DOCS/ AND MORE"}, 0},
		{"returned value wins", "value | count", []string{"2"}, 0},
		{"silent stage pipes nothing", "silent | count", []string{"not piped"}, 0},
		{"sequence", "say one; say two", []string{"one", "two"}, 0},
		{"failure continues", "fail; say after", []string{"before failing", "fail: boom", "after"}, 0},
		{"failure aborts pipeline", "fail | say never", []string{"fail: boom"}, 1},
		{"status variable", "fail; say $?; say $?", []string{"before failing", "fail: boom", "1", "0"}, 0},
		{"not found", "nope", []string{"startsh: command not found: nope"}, 127},
		{"not found mid pipeline", "say a | nope | upper", []string{"startsh: command not found: nope"}, 127},
		{"panic recovered", "explode", []string{"explode: panic: kaboom"}, 1},
		{"comment", "# nothing here", nil, 0},
		{"filesystem command", "where", []string{"/Bookmarks Bar"}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newHarness(t)
			assert.Equal(t, tc.want, h.Run(tc.line))
			assert.Equal(t, tc.wantStatus, h.Status())
		})
	}
}

func TestEngine_ParseErrorSkipsGroup(t *testing.T) {
	h, _ := newHarness(t)

	out := h.Run(`say ok; say "unterminated`)
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "startsh: parse error")
	assert.Contains(t, out[0], "unterminated quote")
	assert.Equal(t, "ok", out[1])

	out = h.Run(`say "abc; say after`)
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "unterminated quote")
	assert.Equal(t, "after", out[1])
	assert.Equal(t, 0, h.Status())
}

func TestEngine_ErrorsAreStyled(t *testing.T) {
	h, _ := newHarness(t)

	h.Run("nope")
	lines := h.Terminal.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, screen.StyleError, lines[0][0].Style)
}

func TestEngine_Aliases(t *testing.T) {
	h, _ := newHarness(t)
	h.Session.Aliases.Set("hi", "say hello")
	h.Session.Aliases.Set("say", "say prefixed")
	h.Session.Aliases.Set("both", "say a; say b")
	h.Session.Aliases.Set("shout", "say x | upper")

	cases := []struct {
		line string
		want []string
	}{
		{"hi world", []string{"prefixed hello world"}},
		{"say y", []string{"prefixed y"}},
		{`"say" quoted`, []string{"quoted"}},
		{"both c", []string{"prefixed a", "prefixed b c"}},
		{"shout now", []string{"PREFIXED X"}},
	}

	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			assert.Equal(t, tc.want, h.Run(tc.line))
		})
	}
}

func TestEngine_Scripts(t *testing.T) {
	h, _ := newHarness(t)
	h.WriteFile("/bin/greet", "# greets people\nsay hello $1\nsay $# args: $@\nsay from $0")
	h.Chmod("/bin/greet", "755")
	h.WriteFile("~/local", "say local $1")
	h.Chmod("~/local", "u+x")
	h.WriteFile("~/plain", "say never")
	h.WriteFile("/bin/js", "#!js\nreturn args.join('+');")
	h.Chmod("/bin/js", "a+x")

	cases := []struct {
		line string
		want []string
	}{
		{"greet bob -v", []string{"hello bob", "2 args: bob -v", "from /bin/greet"}},
		{"./local x", []string{"local x"}},
		{"~/local y", []string{"local y"}},
		{"/bin/greet", []string{"hello", "0 args:", "from /bin/greet"}},
		{`greet ""`, []string{"hello", "1 args:", "from /bin/greet"}},
		{"./plain", []string{"startsh: ./plain: Permission denied"}},
		{"./missing", []string{"startsh: ./missing: No such file or directory"}},
		{"Bookmarks/local", []string{"startsh: command not found: Bookmarks/local"}},
		{"js a b", []string{"a+b"}},
		{"greet me | upper", []string{"HELLO ME", "1 ARGS: ME", "FROM /BIN/GREET"}},
		{"say a b | js", []string{""}},
	}

	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			assert.Equal(t, tc.want, h.Run(tc.line))
		})
	}
}

func TestEngine_ScriptStatus(t *testing.T) {
	h, _ := newHarness(t)
	h.WriteFile("/bin/failing", "say first\nnope")
	h.Chmod("/bin/failing", "755")

	assert.Equal(t, []string{"first", "startsh: command not found: nope"}, h.Run("failing"))
	assert.Equal(t, 127, h.Status())
}

func TestEngine_NestingDepth(t *testing.T) {
	h, _ := newHarness(t)
	h.WriteFile("/bin/loop", "loop")
	h.Chmod("/bin/loop", "755")

	out := h.Run("loop; say done")
	assert.Equal(t, []string{"loop: maximum nesting depth exceeded", "done"}, out)
	assert.False(t, h.Engine.Busy())
}

func TestEngine_Frames(t *testing.T) {
	h, frames := newHarness(t)
	h.WriteFile("/bin/inner", "say x; frames")
	h.Chmod("/bin/inner", "755")

	h.Run("say a | inner")
	require.Len(t, *frames, 2)
	outer, inner := (*frames)[0], (*frames)[1]
	assert.Equal(t, 1, outer.Depth)
	assert.Equal(t, 1, outer.Stage)
	assert.Equal(t, engine.StateRunning, outer.State)
	assert.Equal(t, 2, inner.Depth)
	assert.Equal(t, 1, inner.Group)
	assert.Equal(t, "say x; frames", inner.Line)
	assert.Empty(t, h.Engine.Frames())
}

func TestEngine_Hooks(t *testing.T) {
	var events []string
	hooks := engine.Hooks{
		Suspend: func() { events = append(events, "suspend") },
		Resume:  func() { events = append(events, "resume") },
	}
	h, _ := newHarness(t, enginetest.WithHooks(hooks))
	h.WriteFile("/bin/nested", "say nested")
	h.Chmod("/bin/nested", "755")

	h.Run("nested; nested")
	assert.Equal(t, []string{"suspend", "resume"}, events)
}

func TestEngine_Packages(t *testing.T) {
	h, _ := newHarness(t)
	require.NoError(t, h.Session.Packages.InstallDefaults([]string{"rev"}))
	require.NoError(t, h.Session.Packages.Install("hello", `st_api.writeHtml('<span class="term-success">hi</span> ' + args[0]);`))
	require.NoError(t, h.Session.Packages.Install("crash", "throw new Error('bad input');"))

	assert.Equal(t, []string{"olleh"}, h.Run("rev hello"))
	assert.Equal(t, []string{"CBA"}, h.Run("say abc | upper | rev"))
	assert.Equal(t, []string{"hi x"}, h.Run("hello x"))
	assert.Equal(t, []string{`<span class="term-success">hi</span> x`}, h.Terminal.Markup())
	assert.Equal(t, []string{"crash: bad input"}, h.Run("crash"))
	assert.Equal(t, 1, h.Status())
}

func TestEngine_ResolutionOrder(t *testing.T) {
	h, _ := newHarness(t)
	require.NoError(t, h.Session.Packages.Install("say", "return 'package';"))
	require.NoError(t, h.Session.Packages.Install("tool", "return 'package';"))
	h.WriteFile("/bin/say", "upper")
	h.WriteFile("/bin/tool", "say script")
	h.Chmod("/bin/tool", "755")

	assert.Equal(t, []string{"builtin"}, h.Run("say builtin"))
	assert.Equal(t, []string{"script"}, h.Run("tool"))

	h.Chmod("/bin/tool", "644")
	assert.Equal(t, []string{"startsh: /bin/tool: Permission denied"}, h.Run("tool"))
}

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, _ := newHarness(t, enginetest.WithMetrics(engine.NewMetrics(reg)))

	h.Run("say a | upper; nope; fail")

	expected := `
# HELP startsh_commands_total Commands run, by how their name was resolved.
# TYPE startsh_commands_total counter
startsh_commands_total{origin="builtin"} 3
startsh_commands_total{origin="none"} 1
# HELP startsh_command_failures_total Failed pipelines, by error kind.
# TYPE startsh_command_failures_total counter
startsh_command_failures_total{kind="resolution"} 1
startsh_command_failures_total{kind="runtime"} 1
# HELP startsh_lines_total Lines submitted at the top level.
# TYPE startsh_lines_total counter
startsh_lines_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))
}

func TestError(t *testing.T) {
	err := &engine.Error{Kind: engine.PermissionError, Command: "rm", Err: engine.PathError("x", engine.ErrCommandNotFound)}
	assert.Equal(t, "rm: x: command not found", err.Error())
	assert.ErrorIs(t, err, engine.ErrCommandNotFound)
	assert.Equal(t, "permission", err.Kind.String())

	var target *engine.Error
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))

	assert.Nil(t, engine.ExitStatus(0))
	assert.Equal(t, "exit status 3", engine.ExitStatus(3).Error())
}

func TestNewRegistry_Duplicate(t *testing.T) {
	noop := engine.HandlerFunc(func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
		return nil, nil
	})

	assert.Panics(t, func() {
		engine.NewRegistry(builtin("a", noop), builtin("a", noop))
	})
	assert.Panics(t, func() {
		engine.NewRegistry(&engine.Command{Name: "b"})
	})

	r := engine.NewRegistry(builtin("b", noop), builtin("a", noop))
	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestPipeOutput(t *testing.T) {
	parent := &recordingOutput{}
	pipe := engine.NewPipeOutput(parent)
	assert.Nil(t, pipe.Value())

	pipe.WriteLine("a\nb")
	pipe.WriteMarkup(`<span class="term-error">c</span>`)
	pipe.WriteSpans(screen.Styled(screen.StyleFolder, "d"))
	pipe.Errorf("oops %d", 1)

	assert.Equal(t, []string{"a", "b", "c", "d"}, pipe.Value().Lines)
	assert.Equal(t, []string{"oops 1"}, parent.errors)
}

type recordingOutput struct {
	engine.Output
	errors []string
}

func (r *recordingOutput) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}
