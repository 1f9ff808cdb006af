package vfs

import (
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ImportNetscape copies the bookmarks in a Netscape bookmark file (the
// format browsers export) under parentID. It returns the number of nodes
// created.
func ImportNetscape(ctx context.Context, provider ResourceProvider, parentID string, r io.Reader) (int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, err
	}

	imp := &netscapeImporter{ctx: ctx, provider: provider}
	imp.folder(doc.Find("dl").First(), parentID)
	return imp.created, imp.err
}

type netscapeImporter struct {
	ctx      context.Context
	provider ResourceProvider
	created  int
	err      error
}

func (imp *netscapeImporter) folder(dl *goquery.Selection, parentID string) {
	dl.ChildrenFiltered("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		if h3 := dt.ChildrenFiltered("h3").First(); h3.Length() > 0 {
			node, err := imp.provider.Create(imp.ctx, parentID, strings.TrimSpace(h3.Text()), "")
			if err != nil {
				imp.err = providerErr("import", err)
				return false
			}
			imp.created++
			imp.folder(dt.ChildrenFiltered("dl").First(), node.ID)
			return imp.err == nil
		}

		a := dt.ChildrenFiltered("a").First()
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return true
		}
		title := strings.TrimSpace(a.Text())
		if title == "" {
			title = href
		}
		if _, err := imp.provider.Create(imp.ctx, parentID, title, href); err != nil {
			imp.err = providerErr("import", err)
			return false
		}
		imp.created++
		return true
	})
}
