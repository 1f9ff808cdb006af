package vfs

import (
	"regexp"
	"strings"
)

// CompileGlob turns a pattern where '*' matches any run of characters into
// an anchored regular expression. Everything else matches literally.
func CompileGlob(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// HasGlob reports whether p contains a wildcard.
func HasGlob(p string) bool {
	return strings.Contains(p, "*")
}

// Glob expands a '*' pattern in the last segment of pattern into the
// matching paths, written relative to the same base as pattern. Names
// starting with "." only match patterns that start with ".". Patterns
// without a wildcard are returned as is.
func (v *VFS) Glob(pattern string) ([]string, error) {
	if !HasGlob(pattern) {
		return []string{pattern}, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	dir, base := splitPath(pattern)
	res, err := v.resolve(dir)
	if err != nil {
		return nil, pathErr("glob", pattern, unwrapPathErr(err))
	}
	if !res.Node.IsDir() {
		return nil, pathErr("glob", pattern, ErrNotDir)
	}
	if err := v.checkRead("glob", pattern, res.Node); err != nil {
		return nil, err
	}

	re := CompileGlob(base)
	var prefix string
	switch {
	case dir == "/":
		prefix = "/"
	case dir != "." || strings.HasPrefix(pattern, "./"):
		prefix = dir + "/"
	}

	matches := []string{}
	for _, c := range res.Node.Children {
		if strings.HasPrefix(c.Title, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if re.MatchString(c.Title) {
			matches = append(matches, prefix+c.Title)
		}
	}
	return matches, nil
}
