package vfs

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	folder, err := p.Create(ctx, "1", "news", "")
	require.NoError(t, err)
	assert.True(t, folder.IsDir())

	link, err := p.Create(ctx, folder.ID, "example", "https://example.com")
	require.NoError(t, err)
	assert.False(t, link.IsDir())

	t.Run("root folders are fixed", func(t *testing.T) {
		assert.Error(t, p.Remove(ctx, "1"))
		_, err := p.Move(ctx, "2", "1")
		assert.Error(t, err)
		_, err = p.Create(ctx, MemoryRootID, "top", "")
		assert.Error(t, err)
	})

	t.Run("non-empty folder", func(t *testing.T) {
		assert.Error(t, p.Remove(ctx, folder.ID))
	})

	t.Run("folder url", func(t *testing.T) {
		url := "https://example.com"
		_, err := p.Update(ctx, folder.ID, Changes{URL: &url})
		assert.Error(t, err)
	})

	t.Run("into own descendant", func(t *testing.T) {
		sub, err := p.Create(ctx, folder.ID, "sub", "")
		require.NoError(t, err)
		_, err = p.Move(ctx, folder.ID, sub.ID)
		assert.Error(t, err)
	})

	t.Run("tree is a copy", func(t *testing.T) {
		tree, err := p.GetTree(ctx)
		require.NoError(t, err)
		tree.Children[0].Title = "changed"

		again, err := p.GetTree(ctx)
		require.NoError(t, err)
		assert.Equal(t, BookmarksBar, again.Children[0].Title)
	})

	t.Run("snapshot", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, p.SaveSnapshot(&buf))

		loaded, err := LoadSnapshot(&buf)
		require.NoError(t, err)

		want, err := p.GetTree(ctx)
		require.NoError(t, err)
		got, err := loaded.GetTree(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("remove tree", func(t *testing.T) {
		require.NoError(t, p.RemoveTree(ctx, folder.ID))
		tree, err := p.GetTree(ctx)
		require.NoError(t, err)
		assert.Empty(t, tree.Children[0].Children)
	})
}

const netscapeExport = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3 ADD_DATE="1700000000">Work</H3>
    <DL><p>
        <DT><A HREF="https://go.dev/">The Go Programming Language</A>
        <DT><H3>Docs</H3>
        <DL><p>
            <DT><A HREF="https://pkg.go.dev/">pkg.go.dev</A>
        </DL><p>
    </DL><p>
    <DT><A HREF="https://example.com/">Example</A>
    <DT><A HREF="https://untitled.example/"></A>
</DL><p>
`

func TestImportNetscape(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	n, err := ImportNetscape(ctx, p, "1", strings.NewReader(netscapeExport))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	tree, err := p.GetTree(ctx)
	require.NoError(t, err)
	bar := tree.Children[0]

	var titles []string
	for _, c := range bar.Children {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"Work", "Example", "https://untitled.example/"}, titles)

	work := bar.Child("Work")
	require.NotNil(t, work)
	require.True(t, work.IsDir())
	assert.Equal(t, "https://go.dev/", work.Child("The Go Programming Language").URL)

	docs := work.Child("Docs")
	require.NotNil(t, docs)
	require.Len(t, docs.Children, 1)
	assert.Equal(t, "https://pkg.go.dev/", docs.Children[0].URL)
}
