package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/startterm/startsh/core/engine/enginetest"
)

func TestFilesystemCommands(t *testing.T) {
	runCommandTests(t, []commandTest{
		{name: "pwd", line: "pwd", want: []string{"/Bookmarks Bar"}},
		{name: "mkdir and cd", line: "mkdir foo; cd foo; pwd", want: []string{"/Bookmarks Bar/foo"}},
		{name: "cd home", line: "cd /; cd; pwd", want: []string{"/Bookmarks Bar"}},
		{name: "cd quoted", line: `cd "/Other Bookmarks"; pwd`, want: []string{"/Other Bookmarks"}},
		{name: "cd previous", line: "cd /etc; cd -; pwd", want: []string{"/Bookmarks Bar"}},
		{name: "cd missing", line: "cd nope", want: []string{"cd: nope: No such file or directory"}, status: 1},
		{name: "cd file", setup: withFile("f", "x"), line: "cd f", want: []string{"cd: f: Not a directory"}, status: 1},
		{name: "cd too many", line: "cd a b", want: []string{"cd: too many arguments"}, status: 1},

		{name: "mkdir missing operand", line: "mkdir", want: []string{"mkdir: missing operand"}, status: 1},
		{name: "mkdir exists", line: "mkdir foo; mkdir foo", want: []string{"mkdir: foo: File exists"}, status: 1},
		{name: "mkdir parents", line: "mkdir -p a/b/c; cd a/b/c; pwd", want: []string{"/Bookmarks Bar/a/b/c"}},
		{name: "mkdir read-only", line: "mkdir /proc/x", want: []string{"mkdir: /proc/x: Read-only file system"}, status: 1},

		{name: "rmdir", setup: withDir("d"), line: "rmdir d; ls", want: nil},
		{name: "rmdir not empty", setup: withDir("a/b"), line: "rmdir a", want: []string{"rmdir: a: Directory not empty"}, status: 1},
		{name: "rmdir file", setup: withFile("f", "x"), line: "rmdir f", want: []string{"rmdir: f: Not a directory"}, status: 1},
		{name: "rmdir missing operand", line: "rmdir", want: []string{"rmdir: missing operand"}, status: 1},

		{name: "rm file", setup: withFile("f", "x"), line: "rm f; ls", want: nil},
		{name: "rm dir", setup: withDir("d"), line: "rm d", want: []string{"rm: d: Is a directory (use -r)"}, status: 1},
		{name: "rm recursive", setup: withDir("d/e"), line: "rm -r d; ls", want: nil},
		{name: "rm missing", line: "rm nope", want: []string{"rm: nope: No such file or directory"}, status: 1},
		{name: "rm force", line: "rm -f nope", want: nil},
		{name: "rm missing operand", line: "rm", want: []string{"rm: missing operand"}, status: 1},
		{
			name: "rm glob",
			setup: func(h *enginetest.Harness) {
				h.WriteFile("a1", "x")
				h.WriteFile("a2", "x")
				h.WriteFile("b", "x")
			},
			line: "rm a*; ls",
			want: []string{"b"},
		},

		{name: "mv rename", setup: withFile("a", "x"), line: "mv a b; ls", want: []string{"b"}},
		{
			name: "mv into dir",
			setup: func(h *enginetest.Harness) {
				h.Mkdir("d")
				h.WriteFile("a", "x")
			},
			line: "mv a d; ls d",
			want: []string{"a"},
		},
		{
			name: "mv out of locked dir",
			setup: func(h *enginetest.Harness) {
				h.Mkdir("d")
				h.WriteFile("d/f", "x")
			},
			line: "chmod 555 d; mv d/f g; ls d",
			want: []string{"mv: d/f: Permission denied", "f"},
		},
		{
			name: "rm recursive locked subdir",
			setup: func(h *enginetest.Harness) {
				h.Mkdir("a/b")
				h.WriteFile("a/b/f", "x")
			},
			line: "chmod 555 a/b; rm -r a; ls a/b",
			want: []string{"rm: a: Permission denied", "f"},
		},
		{name: "mv missing destination", setup: withFile("a", "x"), line: "mv a", want: []string{"mv: missing destination file operand after 'a'"}, status: 1},
		{name: "cp", setup: withFile("a", "hello"), line: "cp a b; cat b", want: []string{"hello"}},
		{name: "cp dir", setup: withDir("d"), line: "cp d e", want: []string{"cp: -r not specified; omitting directory 'd'"}, status: 1},
		{name: "cp recursive", setup: withDir("d/e"), line: "cp -r d f; ls f", want: []string{"e/"}},

		{name: "touch", line: "touch t; ls", want: []string{"t"}},
		{name: "touch missing operand", line: "touch", want: []string{"touch: missing file operand"}, status: 1},
		{name: "write", line: "write notes hello world; cat notes", want: []string{"hello world"}},
		{name: "append", line: "write notes one; append notes two; cat notes", want: []string{"one", "two"}},
		{name: "write piped", line: "echo abc | write notes; cat notes", want: []string{"abc"}},
		{name: "write without content", line: "write notes", want: []string{"write: missing content"}, status: 1},
		{name: "write to etc", line: "write /etc/motd hi; cat /etc/motd", want: []string{"hi"}},

		{name: "cat missing", line: "cat nope", want: []string{"cat: nope: No such file or directory"}, status: 1},
		{name: "cat piped", line: "echo hi | cat", want: []string{"hi"}},
		{name: "cat nothing", line: "cat", want: []string{"cat: requires piped input"}, status: 1},
		{name: "cat proc", line: "cat /proc/hostname", want: []string{enginetest.Hostname}},

		{name: "chmod octal", setup: withFile("s", "x"), line: "chmod 700 s; ls -l", want: []string{"-rwx------ guest users s -> x"}},
		{name: "chmod symbolic", setup: withFile("s", "x"), line: "chmod -w s; write s y", want: []string{"write: s: Permission denied"}, status: 1},
		{name: "chmod missing operand", line: "chmod", want: []string{"chmod: missing operand"}, status: 1},
		{name: "chmod missing file", line: "chmod 755", want: []string{"chmod: missing operand after '755'"}, status: 1},
		{name: "chown unprivileged", setup: withFile("f", "x"), line: "chown root f", want: []string{"chown: f: Permission denied"}, status: 1},

		{
			name: "find name",
			setup: func(h *enginetest.Harness) {
				h.Mkdir("docs/sub")
				h.WriteFile("docs/a.txt", "x")
				h.WriteFile("docs/sub/b.txt", "y")
			},
			line: `find docs -name "*.txt"`,
			want: []string{"docs/sub/b.txt", "docs/a.txt"},
		},
		{
			name: "find type",
			setup: func(h *enginetest.Harness) {
				h.Mkdir("docs/sub")
				h.WriteFile("docs/a.txt", "x")
			},
			line: "find docs -type d",
			want: []string{"docs", "docs/sub"},
		},
		{name: "find bad predicate", line: "find -bogus", want: []string{"find: unknown predicate '-bogus'"}, status: 1},
		{name: "find missing", line: "find nope", want: []string{"find: nope: No such file or directory"}, status: 1},

		{name: "ls missing", line: "ls nope", want: []string{"ls: nope: No such file or directory"}, status: 1},
		{name: "ls file", setup: withFile("f", "x"), line: "ls f", want: []string{"ls: f: Not a directory"}, status: 1},
	})
}

func TestChown_Root(t *testing.T) {
	h := newHarness(t)
	h.WriteFile("f", "x")

	h.Run("su")
	assert.Empty(t, h.Run("chown nobody:staff f"))

	entry, err := h.Session.VFS.Stat("f")
	assert.NoError(t, err)
	assert.Equal(t, "nobody", entry.Metadata.Owner)
	assert.Equal(t, "staff", entry.Metadata.Group)
}

func TestLs_Styles(t *testing.T) {
	h := newHarness(t)
	h.Mkdir("docs")
	h.WriteFile("notes", "x")

	h.Run("ls")
	assert.Equal(t, []string{`<span class="term-folder">docs/</span>`, "notes"}, h.Terminal.Markup())
}
