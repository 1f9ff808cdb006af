// Package screen holds the fixed size character grid the shell renders into.
//
// Rows are stored as runs of styled spans rather than markup strings so width
// accounting and truncation never have to parse tags.
package screen

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Style is the presentation class of a span.
type Style uint8

const (
	StyleNormal Style = iota
	StyleError
	StyleFolder
	StyleSuccess
	StyleWarning
	StyleHighlight
	StylePrompt
	StyleCursor
	StyleLink
)

var styleClasses = map[Style]string{
	StyleNormal:    "",
	StyleError:     "term-error",
	StyleFolder:    "term-folder",
	StyleSuccess:   "term-success",
	StyleWarning:   "term-warning",
	StyleHighlight: "term-highlight",
	StylePrompt:    "term-prompt",
	StyleCursor:    "term-cursor",
	StyleLink:      "term-link",
}

// Class returns the markup class name of the style.
func (s Style) Class() string {
	return styleClasses[s]
}

// StyleForClass maps a markup class attribute to a style. Unknown classes
// render as StyleNormal.
func StyleForClass(class string) Style {
	for _, field := range strings.Fields(class) {
		for style, name := range styleClasses {
			if name != "" && name == field {
				return style
			}
		}
	}
	return StyleNormal
}

// Span is a run of text sharing one style.
type Span struct {
	Text  string
	Style Style
}

// Line is a row of styled spans.
type Line []Span

// Plain creates an unstyled line.
func Plain(text string) Line {
	return Styled(StyleNormal, text)
}

// Styled creates a line with a single styled span.
func Styled(style Style, text string) Line {
	if text == "" {
		return nil
	}
	return Line{{Text: text, Style: style}}
}

// Blank creates a line of width spaces.
func Blank(width int) Line {
	if width <= 0 {
		return nil
	}
	return Plain(strings.Repeat(" ", width))
}

// RuneWidth is the number of cells r occupies, CJK and fullwidth runes take
// two.
func RuneWidth(r rune) int {
	return runewidth.RuneWidth(r)
}

// StringWidth is the number of cells s occupies.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Width returns the visible width of the line in cells.
func (l Line) Width() int {
	width := 0
	for _, span := range l {
		width += StringWidth(span.Text)
	}
	return width
}

// String returns the plain text of the line.
func (l Line) String() string {
	var sb strings.Builder
	for _, span := range l {
		sb.WriteString(span.Text)
	}
	return sb.String()
}

// Append concatenates lines.
func (l Line) Append(others ...Line) Line {
	out := make(Line, 0, len(l))
	out = append(out, l...)
	for _, other := range others {
		out = append(out, other...)
	}
	return out.normalize()
}

// Pad appends spaces until the line is width cells wide.
func (l Line) Pad(width int) Line {
	if missing := width - l.Width(); missing > 0 {
		return l.Append(Blank(missing))
	}
	return l
}

// Fit truncates or pads the line to exactly width cells.
func (l Line) Fit(width int) Line {
	return l.Slice(0, width).Pad(width)
}

// Slice returns the cells in [from, to). A wide rune cut by either edge is
// replaced by spaces for the cells that remain inside the range.
func (l Line) Slice(from, to int) Line {
	if from < 0 {
		from = 0
	}
	if to <= from {
		return nil
	}

	var out Line
	col := 0
	for _, span := range l {
		var sb strings.Builder
		for _, r := range span.Text {
			w := RuneWidth(r)
			start, end := col, col+w
			col = end

			switch {
			case w == 0:
				if start > from && start <= to {
					sb.WriteRune(r)
				}
			case end <= from || start >= to:
				// outside
			case start >= from && end <= to:
				sb.WriteRune(r)
			default:
				overlap := minInt(end, to) - maxInt(start, from)
				sb.WriteString(strings.Repeat(" ", overlap))
			}
		}
		if sb.Len() > 0 {
			out = append(out, Span{Text: sb.String(), Style: span.Style})
		}
		if col >= to {
			break
		}
	}
	return out.normalize()
}

// SplitAt splits the line so head is at most col cells wide. A wide rune that
// would straddle col is kept whole in tail.
func (l Line) SplitAt(col int) (head, tail Line) {
	width := 0
	for i, span := range l {
		for offset, r := range span.Text {
			w := RuneWidth(r)
			if width+w > col {
				head = append(head, l[:i]...)
				if offset > 0 {
					head = append(head, Span{Text: span.Text[:offset], Style: span.Style})
				}
				tail = append(tail, Span{Text: span.Text[offset:], Style: span.Style})
				tail = append(tail, l[i+1:]...)
				return head.normalize(), tail.normalize()
			}
			width += w
		}
	}
	return l.normalize(), nil
}

// SplitLines splits the line on embedded newlines.
func (l Line) SplitLines() []Line {
	out := []Line{nil}
	for _, span := range l {
		parts := strings.Split(span.Text, "\n")
		for i, part := range parts {
			if i > 0 {
				out = append(out, nil)
			}
			if part != "" {
				out[len(out)-1] = append(out[len(out)-1], Span{Text: part, Style: span.Style})
			}
		}
	}
	return out
}

// Sanitize replaces control runes with spaces so every rune in the line
// occupies at least one cell. Runes wider than maxWidth become '?'.
func (l Line) Sanitize(maxWidth int) Line {
	out := make(Line, 0, len(l))
	for _, span := range l {
		text := strings.Map(func(r rune) rune {
			switch {
			case r == '\t':
				return ' '
			case unicode.IsControl(r):
				return ' '
			case RuneWidth(r) > maxWidth:
				return '?'
			}
			return r
		}, span.Text)
		out = append(out, Span{Text: text, Style: span.Style})
	}
	return out.normalize()
}

// normalize drops empty spans and merges neighbours sharing a style.
func (l Line) normalize() Line {
	var out Line
	for _, span := range l {
		if span.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Style == span.Style {
			out[n-1].Text += span.Text
			continue
		}
		out = append(out, span)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
