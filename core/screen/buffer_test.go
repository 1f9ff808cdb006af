package screen

import (
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func assertRowWidths(t *testing.T, b *Buffer) {
	t.Helper()
	_, cols := b.Size()
	for i, row := range b.Rows() {
		assert.Equal(t, cols, row.Width(), "row %d: %q", i, row.String())
	}
}

func TestBuffer_RowWidthInvariant(t *testing.T) {
	fragments := []Line{
		Plain("hello"),
		Styled(StyleError, "error: nope"),
		Plain("中文字符"),
		Plain(strings.Repeat("x", 37)),
		Plain("tab\there"),
		ParseMarkup(`<span class="term-folder">docs/</span> and more`),
		ParseMarkup(`<span class="term-error">unterminated`),
		Plain("ｆｕｌｌｗｉｄｔｈ"),
	}

	for _, size := range []struct{ rows, cols int }{{1, 1}, {3, 2}, {5, 7}, {24, 80}} {
		rng := rand.New(rand.NewSource(int64(size.rows*100 + size.cols)))
		b := NewBuffer(size.rows, size.cols)
		for i := 0; i < 200; i++ {
			switch rng.Intn(4) {
			case 0:
				b.Newline()
			case 1:
				b.WriteLine(fragments[rng.Intn(len(fragments))])
			default:
				b.Write(fragments[rng.Intn(len(fragments))])
			}
			assertRowWidths(t, b)

			x, y := b.Cursor()
			assert.GreaterOrEqual(t, x, 0)
			assert.LessOrEqual(t, x, size.cols)
			assert.GreaterOrEqual(t, y, 0)
			assert.Less(t, y, size.rows)
		}
	}
}

func TestBuffer_OverwriteAtIdempotent(t *testing.T) {
	cases := map[string]struct {
		col      int
		fragment Line
	}{
		"start":       {0, Plain("abc")},
		"middle":      {4, Styled(StyleError, "err")},
		"overflow":    {8, Plain("abcdefgh")},
		"wide":        {3, Plain("中文")},
		"past end":    {20, Plain("x")},
		"wide at end": {9, Plain("中")},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			b := NewBuffer(2, 10)
			b.Write(Plain("0123中56789"))

			b.OverwriteAt(0, tc.col, tc.fragment)
			once := b.Rows()[0]
			b.OverwriteAt(0, tc.col, tc.fragment)
			twice := b.Rows()[0]

			assert.Equal(t, once, twice)
			assert.Equal(t, 10, twice.Width())
		})
	}
}

func TestBuffer_OverwriteAtKeepsTail(t *testing.T) {
	b := NewBuffer(1, 10)
	b.Write(Plain("0123456789"))
	b.OverwriteAt(0, 2, Styled(StyleError, "ab"))

	row := b.Rows()[0]
	assert.Equal(t, "01ab456789", row.String())
	assert.Equal(t, Line{
		{Text: "01", Style: StyleNormal},
		{Text: "ab", Style: StyleError},
		{Text: "456789", Style: StyleNormal},
	}, row)
}

func TestBuffer_WrapKeepsStyles(t *testing.T) {
	b := NewBuffer(3, 10)
	b.Write(Plain("$ "))
	b.Write(Styled(StyleFolder, "abcdefghijklmno"))

	rows := b.Rows()
	assert.Equal(t, Line{{Text: "$ ", Style: StyleNormal}, {Text: "abcdefgh", Style: StyleFolder}}, rows[0])
	assert.Equal(t, Line{{Text: "ijklmno", Style: StyleFolder}, {Text: "   ", Style: StyleNormal}}, rows[1])

	x, y := b.Cursor()
	assert.Equal(t, 7, x)
	assert.Equal(t, 1, y)
}

func TestBuffer_WideRuneMovesToNextRow(t *testing.T) {
	b := NewBuffer(2, 5)
	b.Write(Plain("abcd中"))

	assert.Equal(t, []string{"abcd ", "中   "}, b.Text())
}

func TestBuffer_TwentyFiveCharactersInTenColumns(t *testing.T) {
	b := NewBuffer(5, 10)
	b.Write(Plain(strings.Repeat("a", 25)))

	occupied := 0
	for _, row := range b.Text() {
		assert.LessOrEqual(t, StringWidth(row), 10)
		if strings.TrimSpace(row) != "" {
			occupied++
		}
	}
	assert.Equal(t, 3, occupied)
}

func TestBuffer_Scroll(t *testing.T) {
	b := NewBuffer(3, 4)
	for _, s := range []string{"one", "two", "thr", "fou"} {
		b.WriteLine(Plain(s))
	}

	assert.Equal(t, []string{"thr ", "fou ", "    "}, b.Text())
	assert.Equal(t, 2, b.Scrolls())

	_, y := b.Cursor()
	assert.Equal(t, 2, y)
}

func TestBuffer_Reserve(t *testing.T) {
	b := NewBuffer(4, 10)
	b.WriteLine(Plain("a"))
	b.WriteLine(Plain("b"))
	b.WriteLine(Plain("c"))

	needed := b.Reserve(Plain(strings.Repeat("x", 25)))
	assert.Equal(t, 3, needed)

	_, y := b.Cursor()
	assert.Equal(t, 1, y)
	assert.Equal(t, "c", strings.TrimSpace(b.Text()[0]))
}

func TestBuffer_ComposeDoesNotCommit(t *testing.T) {
	b := NewBuffer(2, 8)
	frame := b.Compose(Line{{Text: "$ ", Style: StylePrompt}, {Text: "ls", Style: StyleNormal}})

	assert.Equal(t, "$ ls    ", frame[0].String())
	assert.Equal(t, "        ", b.Text()[0])
}

func TestBuffer_ComposeGolden(t *testing.T) {
	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)

	b := NewBuffer(4, 12)
	b.WriteMarkup(`<span class="term-folder">docs/</span>`)
	b.WriteMarkup(`<span class="term-error">x: no such file</span>`)
	frame := b.Compose(Line{
		{Text: "u@h:~$ ", Style: StylePrompt},
		{Text: "ca", Style: StyleNormal},
		{Text: " ", Style: StyleCursor},
	})

	var sb strings.Builder
	for _, row := range frame {
		sb.WriteString(row.Markup())
		sb.WriteString("\n")
	}
	g.Assert(t, "compose_frame", []byte(sb.String()))
}
