package shell

import (
	"strings"
	"unicode"

	"github.com/anmitsu/go-shlex"
)

// LookupFunc resolves a variable name. Special names are "?", "#", "@" and
// the digits "0" through "9".
type LookupFunc func(name string) (string, bool)

// IsQuoted reports whether the raw token begins with a quote.
func IsQuoted(tok string) bool {
	return strings.HasPrefix(tok, `"`) || strings.HasPrefix(tok, `'`)
}

// Word expands variables in a raw token and strips its quoting.
func Word(raw string, lookup LookupFunc) string {
	return Unquote(Expand(raw, lookup))
}

// Words applies Word to each token.
func Words(raw []string, lookup LookupFunc) []string {
	out := make([]string, len(raw))
	for i, tok := range raw {
		out[i] = Word(tok, lookup)
	}
	return out
}

// Unquote strips quotes and escapes from a raw token using POSIX rules. A
// token that can't be unquoted is returned unchanged.
func Unquote(raw string) string {
	parts, err := shlex.Split(raw, true)
	if err != nil {
		return raw
	}
	return strings.Join(parts, "")
}

// Expand substitutes $NAME and ${NAME} outside of single quotes. Substituted
// values are escaped so a later Unquote keeps them literal.
func Expand(raw string, lookup LookupFunc) string {
	if !strings.Contains(raw, "$") || lookup == nil {
		return raw
	}

	var (
		sb      strings.Builder
		quote   rune
		escaped bool
		runes   = []rune(raw)
	)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote == '\'':
			if r == '\'' {
				quote = 0
			}
		case r == '"':
			if quote == '"' {
				quote = 0
			} else {
				quote = '"'
			}
		case r == '\'' && quote == 0:
			quote = '\''
		case r == '$':
			name, width := variableName(runes[i+1:])
			if width == 0 {
				break
			}
			value, _ := lookup(name)
			sb.WriteString(escapeValue(value, quote == '"'))
			i += width
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// variableName reads the name following a '$'. width is the number of runes
// consumed, zero if there's no valid name.
func variableName(runes []rune) (name string, width int) {
	if len(runes) == 0 {
		return "", 0
	}

	switch r := runes[0]; {
	case r == '{':
		for i := 1; i < len(runes); i++ {
			if runes[i] == '}' {
				if i == 1 {
					return "", 0
				}
				return string(runes[1:i]), i + 1
			}
		}
		return "", 0
	case r == '?' || r == '#' || r == '@' || r == '$' || (r >= '0' && r <= '9'):
		return string(r), 1
	case r == '_' || unicode.IsLetter(r):
		i := 1
		for i < len(runes) && (runes[i] == '_' || unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
			i++
		}
		return string(runes[:i]), i
	}
	return "", 0
}

func escapeValue(value string, inDoubleQuotes bool) string {
	var sb strings.Builder
	for _, r := range value {
		switch {
		case inDoubleQuotes && (r == '\\' || r == '"'):
			sb.WriteRune('\\')
		case !inDoubleQuotes && (r == '\\' || r == '"' || r == '\'' || unicode.IsSpace(r)):
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
