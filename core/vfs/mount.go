package vfs

import (
	"fmt"
	"io/fs"

	"github.com/google/uuid"
)

// ProcFile is a generated read-only file under /proc.
type ProcFile struct {
	Name      string
	Generator func() string
}

// mount is a synthetic subtree owned by the VFS rather than the provider.
// Writable mounts are persisted in the key-value store, read-only mounts are
// regenerated on every refresh.
type mount struct {
	name     string
	readOnly bool
	store    KeyValueStore
	procs    []ProcFile

	root *Node
}

func newStoredMount(name string, store KeyValueStore) *mount {
	return &mount{name: name, store: store}
}

func newProcMount(name string, files []ProcFile) *mount {
	return &mount{name: name, readOnly: true, procs: files}
}

func (m *mount) key() string {
	return "vfs/mount/" + m.name
}

func (m *mount) rootID() string {
	return m.name + ":root"
}

func (m *mount) newID() string {
	return m.name + ":" + uuid.NewString()
}

// load (re)builds the mount's tree.
func (m *mount) load() error {
	if m.readOnly {
		root := &Node{ID: m.rootID(), Title: m.name, Children: []*Node{}}
		for _, pf := range m.procs {
			root.Children = append(root.Children, &Node{
				ID:      m.name + ":" + pf.Name,
				Title:   pf.Name,
				Content: pf.Generator(),
			})
		}
		m.root = root
		return nil
	}

	if m.root != nil {
		return nil
	}

	var root Node
	ok, err := getYAML(m.store, m.key(), &root)
	if err != nil {
		return fmt.Errorf("loading mount %q: %w", m.name, err)
	}
	if !ok || root.Children == nil {
		root = Node{Children: []*Node{}}
	}
	root.ID = m.rootID()
	root.Title = m.name
	m.root = &root
	return nil
}

func (m *mount) save() error {
	if m.readOnly {
		return ErrReadOnly
	}
	return setYAML(m.store, m.key(), m.root)
}

// parentOf finds the directory holding the node with the given id.
func (m *mount) parentOf(id string) *Node {
	var found *Node
	m.root.Walk(func(n *Node) {
		if found != nil {
			return
		}
		for _, c := range n.Children {
			if c.ID == id {
				found = n
				return
			}
		}
	})
	return found
}

func (m *mount) create(parent *Node, title, content string, dir bool) (*Node, error) {
	if m.readOnly {
		return nil, ErrReadOnly
	}
	n := &Node{ID: m.newID(), Title: title, Content: content}
	if dir {
		n.Children = []*Node{}
	}
	parent.Children = append(parent.Children, n)
	return n, m.save()
}

func (m *mount) remove(n *Node, recursive bool) error {
	if m.readOnly {
		return ErrReadOnly
	}
	if len(n.Children) > 0 && !recursive {
		return ErrNotEmpty
	}
	parent := m.parentOf(n.ID)
	if parent == nil {
		return fs.ErrNotExist
	}
	parent.Children = detach(parent.Children, n.ID)
	return m.save()
}

func (m *mount) setContent(n *Node, content string) error {
	if m.readOnly {
		return ErrReadOnly
	}
	n.Content = content
	return m.save()
}

func (m *mount) relocate(n, parent *Node, title string) error {
	if m.readOnly {
		return ErrReadOnly
	}
	old := m.parentOf(n.ID)
	if old == nil {
		return fs.ErrNotExist
	}
	old.Children = detach(old.Children, n.ID)
	n.Title = title
	parent.Children = append(parent.Children, n)
	return m.save()
}

func detach(children []*Node, id string) []*Node {
	out := children[:0]
	for _, c := range children {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
