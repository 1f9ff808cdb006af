package editor

import "strings"

const defaultHistoryMax = 500

// History is the list of submitted lines plus a scratch slot that holds the
// unsubmitted line while the user browses.
type History struct {
	entries []string
	max     int

	// index is the entry being shown, len(entries) means the scratch line.
	index   int
	scratch string
}

// NewHistory creates a history holding at most max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultHistoryMax
	}
	return &History{max: max}
}

// Append records a submitted line. Blank lines and repeats of the most recent
// entry are skipped. Browsing state is reset either way.
func (h *History) Append(entry string) bool {
	defer h.Reset()

	if strings.TrimSpace(entry) == "" {
		return false
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == entry {
		return false
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	return true
}

// Entries returns a copy of the recorded lines, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

// Clear forgets every entry.
func (h *History) Clear() {
	h.entries = nil
	h.Reset()
}

// Len returns the number of recorded lines.
func (h *History) Len() int {
	return len(h.entries)
}

// Browsing reports whether an entry other than the scratch line is shown.
func (h *History) Browsing() bool {
	return h.index < len(h.entries)
}

// Prev moves one entry back. current is saved to the scratch slot when
// leaving it. ok is false past the oldest entry.
func (h *History) Prev(current string) (line string, ok bool) {
	if h.index > len(h.entries) {
		h.index = len(h.entries)
	}
	if h.index == 0 {
		return "", false
	}
	if h.index == len(h.entries) {
		h.scratch = current
	}
	h.index--
	return h.entries[h.index], true
}

// Next moves one entry forward, returning the scratch line after the newest
// entry. ok is false when already on the scratch line.
func (h *History) Next() (line string, ok bool) {
	if h.index >= len(h.entries) {
		return "", false
	}
	h.index++
	if h.index == len(h.entries) {
		return h.scratch, true
	}
	return h.entries[h.index], true
}

// Reset returns to the scratch line and forgets it.
func (h *History) Reset() {
	h.index = len(h.entries)
	h.scratch = ""
}

type historyState struct {
	index   int
	scratch string
}

func (h *History) save() historyState {
	return historyState{index: h.index, scratch: h.scratch}
}

func (h *History) restore(s historyState) {
	h.index = s.index
	h.scratch = s.scratch
}
