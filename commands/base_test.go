package commands

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/engine/enginetest"
)

func newHarness(t *testing.T) *enginetest.Harness {
	t.Helper()
	return enginetest.New(t, enginetest.WithCommands(Builtins()...))
}

func TestAllCommands(t *testing.T) {
	seen := make(map[string]bool)
	for _, cmd := range Builtins() {
		t.Run(cmd.Name, func(t *testing.T) {
			require.NotNil(t, cmd.Handler, "nil handler")
			assert.NotEmpty(t, cmd.Use, "usage")
			assert.NotEmpty(t, cmd.Help, "help")
			assert.True(t, strings.HasPrefix(cmd.Use, cmd.Name), "usage should start with the name: %q", cmd.Use)
			assert.False(t, seen[cmd.Name], "duplicate")
			seen[cmd.Name] = true
		})
	}

	// NewRegistry panics on duplicates.
	assert.NotPanics(t, func() { engine.NewRegistry(Builtins()...) })
}

func TestSimpleCommand_Help(t *testing.T) {
	h := newHarness(t)

	out := h.Run("mkdir --help")
	require.NotEmpty(t, out)
	assert.Equal(t, "usage: mkdir [-p] DIRECTORY...", out[0])
	assert.Equal(t, "Create the DIRECTORY(ies), if they do not already exist.", out[1])
	assert.Contains(t, strings.Join(out, "\n"), "--parents")
	assert.Equal(t, 0, h.Status())
}

func TestSimpleCommand_UnknownOption(t *testing.T) {
	h := newHarness(t)

	out := h.Run("pwd -z")
	require.NotEmpty(t, out)
	assert.Equal(t, "pwd: unknown option: -z", out[0])
	assert.Equal(t, "usage: pwd", out[1])
	assert.Equal(t, 2, h.Status())

	out = h.Run("ls --bogus")
	require.NotEmpty(t, out)
	assert.Equal(t, "ls: unknown option: --bogus", out[0])
}

type goldenTestSuite map[string]goldenTest

type goldenTest struct {
	Setup func(h *enginetest.Harness)
	Lines []string
}

func (gts goldenTestSuite) Run(t *testing.T) {
	t.Helper()

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	for tn, tc := range gts {
		t.Run(tn, func(t *testing.T) {
			h := newHarness(t)
			if tc.Setup != nil {
				tc.Setup(h)
			}

			var out []string
			for _, line := range tc.Lines {
				out = append(out, h.Run(line)...)
			}

			g.Assert(t, tn, []byte(strings.Join(out, "\n")+"\n"))
		})
	}
}

func TestLs(t *testing.T) {
	cases := goldenTestSuite{
		"root": {Lines: []string{"ls /"}},
		"long": {
			Setup: func(h *enginetest.Harness) {
				h.Mkdir("docs")
				h.WriteFile("notes", "hello")
			},
			Lines: []string{"ls -l"},
		},
		"hidden": {
			Setup: func(h *enginetest.Harness) {
				h.WriteFile(".hidden", "x")
				h.WriteFile("shown", "y")
			},
			Lines: []string{"ls", "ls -a"},
		},
		"several": {
			Lines: []string{"ls /proc /etc"},
		},
	}

	cases.Run(t)
}

func TestStat(t *testing.T) {
	cases := goldenTestSuite{
		"file": {
			Setup: func(h *enginetest.Harness) {
				h.WriteFile("notes", "https://example.com")
				h.Chmod("notes", "600")
			},
			Lines: []string{"stat notes"},
		},
		"dir": {
			Setup: func(h *enginetest.Harness) {
				h.Mkdir("docs")
			},
			Lines: []string{"stat docs /proc"},
		},
	}

	cases.Run(t)
}

type commandTest struct {
	name   string
	setup  func(h *enginetest.Harness)
	line   string
	want   []string
	status int
}

func runCommandTests(t *testing.T, cases []commandTest) {
	t.Helper()

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			if tc.setup != nil {
				tc.setup(h)
			}

			assert.Equal(t, tc.want, h.Run(tc.line))
			assert.Equal(t, tc.status, h.Status(), "exit status")
		})
	}
}

func withFile(p, content string) func(h *enginetest.Harness) {
	return func(h *enginetest.Harness) {
		h.WriteFile(p, content)
	}
}

func withDir(p string) func(h *enginetest.Harness) {
	return func(h *enginetest.Harness) {
		h.Mkdir(p)
	}
}
