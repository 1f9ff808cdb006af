package vfs

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"sigs.k8s.io/yaml"
)

const (
	MemoryRootID  = "0"
	BookmarksBar  = "Bookmarks Bar"
	OtherBookmark = "Other Bookmarks"
)

var (
	errNoNode       = errors.New("Can't find bookmark for id.")
	errNoParent     = errors.New("Can't find parent bookmark for id.")
	errRootFolder   = errors.New("Can't modify the root bookmark folders.")
	errFolderURL    = errors.New("Can't set URL of a bookmark folder.")
	errNonEmpty     = errors.New("Can't remove non-empty folder (use recursive to force).")
	errIntoSelf     = errors.New("Can't move a folder into its own descendant.")
	errParentIsLeaf = errors.New("Parent is not a folder.")
)

// MemoryProvider is an in-memory bookmark tree laid out like a browser's:
// a fixed root holding the bookmarks bar and other bookmarks folders.
type MemoryProvider struct {
	mu   sync.Mutex
	root *Node
}

var _ ResourceProvider = (*MemoryProvider)(nil)

// NewMemoryProvider creates an empty tree with the default root folders.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		root: &Node{
			ID: MemoryRootID,
			Children: []*Node{
				{ID: "1", Title: BookmarksBar, Children: []*Node{}},
				{ID: "2", Title: OtherBookmark, Children: []*Node{}},
			},
		},
	}
}

// NewMemoryProviderFromTree creates a provider serving a copy of root.
func NewMemoryProviderFromTree(root *Node) *MemoryProvider {
	root = root.Clone()
	if root.Children == nil {
		root.Children = []*Node{}
	}
	return &MemoryProvider{root: root}
}

// LoadSnapshot reads a YAML snapshot written by SaveSnapshot.
func LoadSnapshot(r io.Reader) (*MemoryProvider, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var root Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	if root.ID == "" {
		root.ID = MemoryRootID
	}
	return NewMemoryProviderFromTree(&root), nil
}

// SaveSnapshot writes the whole tree as YAML.
func (p *MemoryProvider) SaveSnapshot(w io.Writer) error {
	p.mu.Lock()
	out, err := yaml.Marshal(p.root)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// find returns the node and its parent; the parent of the root is nil.
func (p *MemoryProvider) find(id string) (node, parent *Node) {
	if id == p.root.ID {
		return p.root, nil
	}
	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		for _, c := range n.Children {
			if c.ID == id {
				node, parent = c, n
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(p.root)
	return node, parent
}

func (p *MemoryProvider) isFixed(n *Node) bool {
	if n == p.root {
		return true
	}
	for _, c := range p.root.Children {
		if c == n {
			return true
		}
	}
	return false
}

func (p *MemoryProvider) GetTree(ctx context.Context) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root.Clone(), nil
}

func (p *MemoryProvider) Create(ctx context.Context, parentID, title, url string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	parent, _ := p.find(parentID)
	switch {
	case parent == nil:
		return nil, errNoParent
	case !parent.IsDir():
		return nil, errParentIsLeaf
	case parent == p.root:
		return nil, errRootFolder
	}

	n := &Node{ID: uuid.NewString(), Title: title, URL: url}
	if url == "" {
		n.Children = []*Node{}
	}
	parent.Children = append(parent.Children, n)
	return n.Clone(), nil
}

func (p *MemoryProvider) remove(ctx context.Context, id string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	n, parent := p.find(id)
	switch {
	case n == nil:
		return errNoNode
	case p.isFixed(n):
		return errRootFolder
	case len(n.Children) > 0 && !recursive:
		return errNonEmpty
	}
	parent.Children = detach(parent.Children, id)
	return nil
}

func (p *MemoryProvider) Remove(ctx context.Context, id string) error {
	return p.remove(ctx, id, false)
}

func (p *MemoryProvider) RemoveTree(ctx context.Context, id string) error {
	return p.remove(ctx, id, true)
}

func (p *MemoryProvider) Update(ctx context.Context, id string, changes Changes) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	n, _ := p.find(id)
	switch {
	case n == nil:
		return nil, errNoNode
	case p.isFixed(n):
		return nil, errRootFolder
	case changes.URL != nil && n.IsDir():
		return nil, errFolderURL
	}

	if changes.Title != nil {
		n.Title = *changes.Title
	}
	if changes.URL != nil {
		n.URL = *changes.URL
	}
	return n.Clone(), nil
}

func (p *MemoryProvider) Move(ctx context.Context, id, parentID string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	n, oldParent := p.find(id)
	if n == nil {
		return nil, errNoNode
	}
	if p.isFixed(n) {
		return nil, errRootFolder
	}
	newParent, _ := p.find(parentID)
	switch {
	case newParent == nil:
		return nil, errNoParent
	case !newParent.IsDir():
		return nil, errParentIsLeaf
	case newParent == p.root:
		return nil, errRootFolder
	}

	var inside bool
	n.Walk(func(c *Node) {
		if c == newParent {
			inside = true
		}
	})
	if inside {
		return nil, errIntoSelf
	}

	oldParent.Children = detach(oldParent.Children, id)
	newParent.Children = append(newParent.Children, n)
	return n.Clone(), nil
}
