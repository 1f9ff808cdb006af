package screen

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ParseMarkup converts an HTML-like fragment into a styled line. Only span
// classes carry meaning, e.g. <span class="term-error">oops</span>. Text is
// unescaped. If the fragment can't be tokenized the raw text is used as a
// single unstyled span.
func ParseMarkup(markup string) Line {
	line, err := parseMarkup(markup)
	if err != nil {
		return Plain(markup)
	}
	return line
}

func parseMarkup(markup string) (Line, error) {
	if !strings.ContainsAny(markup, "<&") {
		return Plain(markup), nil
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	styles := []Style{StyleNormal}
	var out Line

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return out.normalize(), nil

		case html.TextToken:
			out = append(out, Span{Text: string(z.Text()), Style: styles[len(styles)-1]})

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			style := styles[len(styles)-1]
			switch string(name) {
			case "span":
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "class" {
						style = StyleForClass(string(val))
					}
				}
			case "b", "strong":
				style = StyleHighlight
			case "a":
				style = StyleLink
			case "br":
				out = append(out, Span{Text: "\n", Style: style})
				continue
			}
			styles = append(styles, style)

		case html.EndTagToken:
			if len(styles) > 1 {
				styles = styles[:len(styles)-1]
			}

		case html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				out = append(out, Span{Text: "\n", Style: styles[len(styles)-1]})
			}
		}
	}
}

// StripMarkup returns the plain text a fragment renders as.
func StripMarkup(markup string) string {
	return ParseMarkup(markup).String()
}

// EscapeMarkup escapes text so it renders literally.
func EscapeMarkup(text string) string {
	return html.EscapeString(text)
}

// Markup renders the line back into span markup.
func (l Line) Markup() string {
	var sb strings.Builder
	for _, span := range l {
		text := html.EscapeString(span.Text)
		if class := span.Style.Class(); class != "" {
			sb.WriteString(`<span class="` + class + `">` + text + `</span>`)
		} else {
			sb.WriteString(text)
		}
	}
	return sb.String()
}
