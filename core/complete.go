package core

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/startterm/startsh/core/screen"
)

// candidate is a possible completion of the word under the cursor.
type candidate struct {
	text string
	dir  bool
}

// complete implements editor.Completer. The first word of a stage completes
// to commands, aliases and packages; anything else, or a word with a slash,
// completes to paths. A unique match is finished off with "/" for folders and
// a space otherwise. Several matches extend the word to their longest common
// prefix, or are listed if that adds nothing.
func (s *Shell) complete(line string, offset int) (string, int) {
	runes := []rune(line)
	if offset > len(runes) {
		offset = len(runes)
	}
	head, tail := string(runes[:offset]), string(runes[offset:])

	start := strings.LastIndexAny(head, " \t|;") + 1
	before, word := head[:start], head[start:]

	quote := ""
	if strings.HasPrefix(word, `"`) || strings.HasPrefix(word, "'") {
		quote, word = word[:1], word[1:]
	}

	var found []candidate
	if commandPosition(before) && quote == "" && !strings.Contains(word, "/") {
		found = s.commandCandidates(word)
	} else {
		found = s.pathCandidates(word)
	}

	var insert string
	switch len(found) {
	case 0:
		return line, offset
	case 1:
		insert = found[0].text
		if found[0].dir {
			insert += "/"
		}
		if quote != "" || strings.ContainsAny(insert, " \t") {
			if quote == "" {
				quote = `"`
			}
			insert = quote + insert + quote
		}
		if !found[0].dir {
			insert += " "
		}
	default:
		texts := make([]string, len(found))
		for i, c := range found {
			texts[i] = c.text
		}
		insert = commonPrefix(texts)
		if quote == "" {
			if i := strings.IndexAny(insert, " \t"); i >= 0 {
				insert = insert[:i]
			}
		}
		if insert == word {
			s.listCandidates(line, texts)
		}
		insert = quote + insert
	}

	newHead := before + insert
	return newHead + tail, utf8.RuneCountInString(newHead)
}

// commandPosition reports whether a word following before names a command.
func commandPosition(before string) bool {
	trimmed := strings.TrimSpace(before)
	return trimmed == "" || strings.HasSuffix(trimmed, "|") || strings.HasSuffix(trimmed, ";")
}

func (s *Shell) commandCandidates(prefix string) []candidate {
	seen := make(map[string]bool)
	add := func(names ...string) {
		for _, name := range names {
			if strings.HasPrefix(name, prefix) {
				seen[name] = true
			}
		}
	}

	add(s.engine.Registry().Names()...)
	add(s.session.Aliases.Keys()...)
	if s.session.Packages != nil {
		if names, err := s.session.Packages.List(); err == nil {
			add(names...)
		}
	}
	if entries, err := s.session.VFS.ReadDir("/bin"); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				add(entry.Node.Title)
			}
		}
	}

	out := make([]candidate, 0, len(seen))
	for name := range seen {
		out = append(out, candidate{text: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].text < out[j].text })
	return out
}

func (s *Shell) pathCandidates(word string) []candidate {
	dir, base := "", word
	if i := strings.LastIndex(word, "/"); i >= 0 {
		dir, base = word[:i+1], word[i+1:]
	}

	listing := dir
	if listing == "" {
		listing = "."
	}
	entries, err := s.session.VFS.ReadDir(listing)
	if err != nil {
		return nil
	}

	var out []candidate
	for _, entry := range entries {
		name := entry.Node.Title
		if !strings.HasPrefix(name, base) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		out = append(out, candidate{text: dir + name, dir: entry.IsDir()})
	}
	return out
}

// listCandidates freezes the current line and prints the matches below it.
func (s *Shell) listCandidates(line string, texts []string) {
	s.buffer.WriteLine(screen.Styled(screen.StylePrompt, s.editor.Prompt()).Append(screen.Plain(line)))
	s.buffer.WriteLine(screen.Plain(strings.Join(texts, "  ")))
}

// commonPrefix returns the longest prefix shared by every string.
func commonPrefix(texts []string) string {
	if len(texts) == 0 {
		return ""
	}
	prefix := texts[0]
	for _, t := range texts[1:] {
		for !strings.HasPrefix(t, prefix) {
			_, size := utf8.DecodeLastRuneInString(prefix)
			prefix = prefix[:len(prefix)-size]
		}
	}
	return prefix
}
