package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWcCount(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		want  wcCount
	}{
		{"empty", nil, wcCount{}},
		{"one word", []string{"hello"}, wcCount{lines: 1, words: 1, chars: 5}},
		{"leading space", []string{"  a b"}, wcCount{lines: 1, words: 2, chars: 5}},
		{"two lines", []string{"a b", "c"}, wcCount{lines: 2, words: 3, chars: 5}},
		{"unicode", []string{"héllo wörld"}, wcCount{lines: 1, words: 2, chars: 11}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := newWcCount(tc.lines)
			assert.Equal(t, tc.want.lines, got.lines, "lines")
			assert.Equal(t, tc.want.words, got.words, "words")
			assert.Equal(t, tc.want.chars, got.chars, "chars")
		})
	}
}
