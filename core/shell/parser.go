// Package shell parses submitted lines into sequence groups of pipelines.
//
// The grammar is deliberately small: ';' sequences, '|' pipes, single and
// double quotes, backslash escapes and '#' comment lines. There are no
// redirections, subshells or job control.
package shell

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnterminatedQuote is reported for a group whose quote never closes.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// ParseError describes a segment of the line that was skipped.
type ParseError struct {
	Segment string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error near %q: %v", e.Segment, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Program is a parsed line.
type Program struct {
	Groups []Group
	// Errors holds segments that were dropped. The rest of the line is still
	// valid.
	Errors []*ParseError
}

// Group is one ';' separated unit, a pipeline of one or more stages.
type Group struct {
	Source string
	Stages []Stage
}

// Stage is one command in a pipeline. Tokens keep their quotes; they're
// stripped and expanded when the stage executes.
type Stage struct {
	// Name is the raw command token.
	Name string
	// Tokens holds the raw tokens following the name.
	Tokens []string
	// Args holds the raw positional tokens in order.
	Args []string
	// Options holds boolean long (--name) and short (-abc) options.
	Options map[string]bool
}

// Parse splits line into groups and stages. It never fails; malformed
// groups are reported in Program.Errors and left out.
func Parse(line string) *Program {
	line = strings.ReplaceAll(line, "\r\n", ";")
	line = strings.ReplaceAll(line, "\n", ";")

	prog := &Program{}
	for _, seg := range scanGroups(line) {
		source := strings.TrimSpace(seg.text)
		if seg.err != nil {
			prog.Errors = append(prog.Errors, &ParseError{Segment: source, Err: seg.err})
			continue
		}
		if source == "" || strings.HasPrefix(source, "#") {
			continue
		}

		group := Group{Source: source}
		for _, stageText := range seg.stages {
			tokens := Tokenize(stageText)
			if len(tokens) == 0 {
				continue
			}
			group.Stages = append(group.Stages, NewStage(tokens[0], tokens[1:]))
		}
		if len(group.Stages) > 0 {
			prog.Groups = append(prog.Groups, group)
		}
	}
	return prog
}

// NewStage classifies raw tokens into options and positional arguments.
//
// "--x" is a long option, "-abc" sets a, b and c. A bare "-" is positional
// and a bare "--" ends option parsing. Quoted tokens are always positional.
func NewStage(name string, tokens []string) Stage {
	stage := Stage{
		Name:    name,
		Tokens:  append([]string(nil), tokens...),
		Options: make(map[string]bool),
	}

	optionsDone := false
	for _, tok := range tokens {
		switch {
		case optionsDone || IsQuoted(tok) || tok == "-" || !strings.HasPrefix(tok, "-"):
			stage.Args = append(stage.Args, tok)
		case tok == "--":
			optionsDone = true
		case strings.HasPrefix(tok, "--"):
			stage.Options[tok[2:]] = true
		default:
			for _, r := range tok[1:] {
				stage.Options[string(r)] = true
			}
		}
	}
	return stage
}

// HasOption reports whether any of names was set.
func (s *Stage) HasOption(names ...string) bool {
	for _, name := range names {
		if s.Options[name] {
			return true
		}
	}
	return false
}

// String reassembles the stage's raw tokens.
func (s Stage) String() string {
	return strings.Join(append([]string{s.Name}, s.Tokens...), " ")
}

type segment struct {
	text   string
	stages []string
	err    error
}

// scanGroups splits on ';' and '|' outside of quotes and escapes. A group
// whose quote never closes ends at the next ';' regardless of quoting and
// scanning resumes after it.
func scanGroups(line string) []segment {
	var (
		out        []segment
		current    segment
		groupBuf   strings.Builder
		stageBuf   strings.Builder
		quote      rune
		escaped    bool
		groupStart int
	)

	flushStage := func() {
		current.stages = append(current.stages, stageBuf.String())
		stageBuf.Reset()
	}
	flushGroup := func() {
		flushStage()
		current.text = groupBuf.String()
		out = append(out, current)
		current = segment{}
		groupBuf.Reset()
	}

	for i, r := range line {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			flushGroup()
			groupStart = i + 1
			continue
		case r == '|':
			groupBuf.WriteRune(r)
			flushStage()
			continue
		}
		groupBuf.WriteRune(r)
		stageBuf.WriteRune(r)
	}

	if quote != 0 {
		rest := line[groupStart:]
		end := strings.IndexByte(rest, ';')
		if end >= 0 {
			bad := rest[:end]
			out = append(out, segment{text: bad, stages: []string{bad}, err: ErrUnterminatedQuote})
			return append(out, scanGroups(rest[end+1:])...)
		}
		current.err = ErrUnterminatedQuote
	}
	flushGroup()
	return out
}

// Tokenize splits a stage into raw whitespace separated tokens. Quoted runs
// and escapes are kept verbatim and may be glued to unquoted text, so
// `name="a b"` is a single token.
func Tokenize(stage string) []string {
	var (
		out     []string
		sb      strings.Builder
		inToken bool
		quote   rune
		escaped bool
	)

	for _, r := range stage {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case isBlank(r):
			if inToken {
				out = append(out, sb.String())
				sb.Reset()
				inToken = false
			}
			continue
		}
		sb.WriteRune(r)
		inToken = true
	}
	if inToken {
		out = append(out, sb.String())
	}
	return out
}

func isBlank(r rune) bool {
	return unicode.IsSpace(r)
}
