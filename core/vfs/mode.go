package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

const (
	ModeMaskUser  fs.FileMode = 0700
	ModeMaskGroup fs.FileMode = 0070
	ModeMaskOther fs.FileMode = 0007
	ModeMaskAll               = ModeMaskUser | ModeMaskGroup | ModeMaskOther

	ModeRead  fs.FileMode = 0444
	ModeWrite fs.FileMode = 0222
	ModeExec  fs.FileMode = 0111
)

func blendMode(orig, next fs.FileMode) fs.FileMode {
	return (orig &^ ModeMaskAll) | (next & ModeMaskAll)
}

// ApplyMode applies a chmod expression to orig. The expression is either
// octal ("755") or a comma separated list of symbolic clauses ("u+x,go-w")
// applied left to right. Bits outside the permission mask are preserved.
func ApplyMode(expr string, orig fs.FileMode) (fs.FileMode, error) {
	if expr == "" {
		return orig, errors.New("no mode provided")
	}

	// If mode is an octal integer, the value is absolute
	if octalMode, err := strconv.ParseUint(expr, 8, 32); err == nil {
		if octalMode > uint64(ModeMaskAll) {
			return orig, fmt.Errorf("invalid mode %q", expr)
		}
		return blendMode(orig, fs.FileMode(octalMode)), nil
	}

	mode := orig
	for _, clause := range strings.Split(expr, ",") {
		next, err := applyClause(clause, mode)
		if err != nil {
			return orig, err
		}
		mode = next
	}
	return mode, nil
}

func applyClause(clause string, orig fs.FileMode) (fs.FileMode, error) {
	var who fs.FileMode
	rest := clause

whoLoop:
	for len(rest) > 0 {
		switch rest[0] {
		case 'a':
			who |= ModeMaskAll
		case 'u':
			who |= ModeMaskUser
		case 'g':
			who |= ModeMaskGroup
		case 'o':
			who |= ModeMaskOther
		default:
			break whoLoop
		}
		rest = rest[1:]
	}

	if !strings.ContainsAny(rest, "+-=") {
		return orig, errors.New("no action provided")
	}
	if who == 0 {
		who = ModeMaskAll
	}

	mode := orig
	for len(rest) > 0 {
		op := rest[0]
		if op != '+' && op != '-' && op != '=' {
			return orig, fmt.Errorf("unknown symbol %q", rune(op))
		}
		rest = rest[1:]

		var apply fs.FileMode
		for len(rest) > 0 && !strings.ContainsRune("+-=", rune(rest[0])) {
			switch rest[0] {
			case 'r':
				apply |= ModeRead
			case 'w':
				apply |= ModeWrite
			case 'x':
				apply |= ModeExec
			case 'X':
				// Only sets execute on directories or if some execute bit is set.
				if mode&ModeExec != 0 || mode.IsDir() {
					apply |= ModeExec
				}
			case 's', 't':
				// Not implemented.
			default:
				return orig, fmt.Errorf("unknown symbol %q", rune(rest[0]))
			}
			rest = rest[1:]
		}

		switch op {
		case '+':
			mode = blendMode(mode, mode|(apply&who))
		case '-':
			mode = blendMode(mode, mode&^(apply&who))
		case '=':
			mode = blendMode(mode, (mode&^who)|(apply&who))
		}
	}
	return mode, nil
}
