package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageNames(prog *Program) [][]string {
	var out [][]string
	for _, g := range prog.Groups {
		var names []string
		for _, s := range g.Stages {
			names = append(names, s.Name)
		}
		out = append(out, names)
	}
	return out
}

func TestParse_Structure(t *testing.T) {
	cases := map[string]struct {
		line string
		want [][]string
	}{
		"single":           {"ls", [][]string{{"ls"}}},
		"sequence":         {"mkdir foo; cd foo; pwd", [][]string{{"mkdir"}, {"cd"}, {"pwd"}}},
		"pipeline":         {`echo "a b" | wc`, [][]string{{"echo", "wc"}}},
		"mixed":            {"ls | grep a; pwd", [][]string{{"ls", "grep"}, {"pwd"}}},
		"newlines":         {"ls\npwd\r\nwhoami", [][]string{{"ls"}, {"pwd"}, {"whoami"}}},
		"empty groups":     {";; ls ;;", [][]string{{"ls"}}},
		"empty stages":     {"| ls | | wc |", [][]string{{"ls", "wc"}}},
		"comment":          {"# just a note; ls", [][]string{{"ls"}}},
		"quoted separator": {`echo "a;b|c"; ls`, [][]string{{"echo"}, {"ls"}}},
		"escaped sep":      {`echo a\;b`, [][]string{{"echo"}}},
		"blank":            {"   ", nil},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			prog := Parse(tc.line)
			assert.Empty(t, prog.Errors)
			assert.Equal(t, tc.want, stageNames(prog))
		})
	}
}

func TestParse_UnterminatedQuote(t *testing.T) {
	cases := map[string]struct {
		line    string
		want    [][]string
		segment string
	}{
		"later groups still run": {
			line:    `pwd; echo "oops | wc; ls`,
			want:    [][]string{{"pwd"}, {"ls"}},
			segment: `echo "oops | wc`,
		},
		"first group": {
			line:    `echo "abc; echo ok`,
			want:    [][]string{{"echo"}},
			segment: `echo "abc`,
		},
		"last group": {
			line:    `pwd; echo 'abc`,
			want:    [][]string{{"pwd"}},
			segment: `echo 'abc`,
		},
		"quotes after the bad group": {
			line:    `echo "a; echo "b c"; pwd`,
			want:    [][]string{{"echo"}, {"pwd"}},
			segment: `echo "a`,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			prog := Parse(tc.line)
			assert.Equal(t, tc.want, stageNames(prog))
			require.Len(t, prog.Errors, 1)
			assert.ErrorIs(t, prog.Errors[0], ErrUnterminatedQuote)
			assert.Equal(t, tc.segment, prog.Errors[0].Segment)
		})
	}
}

func TestNewStage_Options(t *testing.T) {
	cases := map[string]struct {
		tokens      []string
		wantArgs    []string
		wantOptions map[string]bool
	}{
		"long":       {[]string{"--all", "x"}, []string{"x"}, map[string]bool{"all": true}},
		"shorts":     {[]string{"-la", "dir"}, []string{"dir"}, map[string]bool{"l": true, "a": true}},
		"dash":       {[]string{"-"}, []string{"-"}, map[string]bool{}},
		"end":        {[]string{"-r", "--", "-x", "--y"}, []string{"-x", "--y"}, map[string]bool{"r": true}},
		"quoted":     {[]string{`"-n"`, `'--x'`}, []string{`"-n"`, `'--x'`}, map[string]bool{}},
		"positional": {[]string{"a", "b"}, []string{"a", "b"}, map[string]bool{}},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			stage := NewStage("cmd", tc.tokens)
			assert.Equal(t, tc.wantArgs, stage.Args)
			assert.Equal(t, tc.wantOptions, stage.Options)
			assert.Equal(t, tc.tokens, stage.Tokens)
		})
	}
}

func TestTokenize(t *testing.T) {
	cases := map[string][]string{
		`echo hello world`:      {"echo", "hello", "world"},
		`echo "a b"  'c d'`:     {"echo", `"a b"`, `'c d'`},
		`export A="x y"`:        {"export", `A="x y"`},
		`echo a\ b`:             {"echo", `a\ b`},
		"  \tls\t-l  ":          {"ls", "-l"},
		`echo "it's" 'say "x"'`: {"echo", `"it's"`, `'say "x"'`},
	}

	for line, want := range cases {
		t.Run(line, func(t *testing.T) {
			assert.Equal(t, want, Tokenize(line))
		})
	}
}
