package commands

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/startterm/startsh/core/engine"
)

var (
	unescapeOctal   = regexp.MustCompile(`\\0[0-8][0-8]?[0-8]?`)
	unescapeHex     = regexp.MustCompile(`\\x[0-9a-fA-F][0-9a-fA-F]?`)
	unescapeReplace = strings.NewReplacer(
		`\n`, "\n", // newline
		`\t`, "\t", // horizontal tab
		`\\`, `\`, // backslash literal
		`\a`, "\a", // alert
		`\v`, "\v", // vertical tab
	)
)

func unescape(s string) string {
	s = unescapeReplace.Replace(s)
	s = unescapeOctal.ReplaceAllStringFunc(s, func(arg string) string {
		out, err := strconv.ParseInt(arg[2:], 8, 8)
		if err != nil {
			return arg
		}
		return string(rune(out))
	})
	s = unescapeHex.ReplaceAllStringFunc(s, func(arg string) string {
		out, err := strconv.ParseInt(arg[2:], 16, 8)
		if err != nil {
			return arg
		}
		return string(rune(out))
	})
	return s
}

// echoFlags consumes leading -e and -E words. Anything else, including
// unknown options, is printed.
func echoFlags(words []string) (escaped bool, rest []string) {
	for i, word := range words {
		switch word {
		case "-e":
			escaped = true
		case "-E":
			escaped = false
		default:
			return escaped, words[i:]
		}
	}
	return escaped, nil
}

func echoCommand() *SimpleCommand {
	return &SimpleCommand{
		Name:    "echo",
		Kind:    engine.KindBuiltin,
		Use:     "echo [-e] [ARG]...",
		Short:   "Display a line of text; -e interprets backslash escapes.",
		Lenient: true,
		Run: func(ctx context.Context, inv *engine.Invocation) (*engine.Value, error) {
			escaped, words := echoFlags(inv.Words)
			text := strings.Join(words, " ")
			if escaped {
				text = unescape(text)
			}
			inv.Out.WriteLine(text)
			return nil, nil
		},
	}
}
