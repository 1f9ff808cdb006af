// Package vfs layers paths, permissions and synthetic mounts over an
// external bookmark tree.
package vfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrNotDir   = errors.New("not a directory")
	ErrIsDir    = errors.New("is a directory")
	ErrNotEmpty = errors.New("directory not empty")
	ErrReadOnly = errors.New("read-only file system")
	ErrInvalid  = errors.New("invalid argument")
)

// Node is an entry in the tree. Children is nil for leaves (bookmarks and
// files); any non-nil slice, including an empty one, makes a directory.
type Node struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url,omitempty"`
	Content  string  `json:"content,omitempty"`
	Children []*Node `json:"children"`
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Children != nil
}

// Child returns the first child with the given title.
func (n *Node) Child(title string) *Node {
	for _, c := range n.Children {
		if c.Title == title {
			return c
		}
	}
	return nil
}

// Clone deep copies the node.
func (n *Node) Clone() *Node {
	out := *n
	if n.Children != nil {
		out.Children = make([]*Node, 0, len(n.Children))
		for _, c := range n.Children {
			out.Children = append(out.Children, c.Clone())
		}
	}
	return &out
}

// Walk calls fn for n and every descendant, parents first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Changes holds the fields to update on a node. Nil fields are left alone.
type Changes struct {
	Title *string
	URL   *string
}

// ResourceProvider is the external tree the VFS mounts. Create makes a folder
// when url is empty, mirroring the browser bookmark API.
type ResourceProvider interface {
	GetTree(ctx context.Context) (*Node, error)
	Create(ctx context.Context, parentID, title, url string) (*Node, error)
	Remove(ctx context.Context, id string) error
	RemoveTree(ctx context.Context, id string) error
	Update(ctx context.Context, id string, changes Changes) (*Node, error)
	Move(ctx context.Context, id, parentID string) (*Node, error)
}

// ProviderError wraps a failed ResourceProvider call.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func providerErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Op: op, Err: err}
}

func pathErr(op, path string, err error) error {
	return &fs.PathError{Op: op, Path: path, Err: err}
}

// Describe renders an error the way file commands print it, e.g.
// "No such file or directory".
func Describe(err error) string {
	var pe *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrReadOnly):
		return "Read-only file system"
	case errors.Is(err, fs.ErrNotExist):
		return "No such file or directory"
	case errors.Is(err, fs.ErrPermission):
		return "Permission denied"
	case errors.Is(err, fs.ErrExist):
		return "File exists"
	case errors.Is(err, ErrNotDir):
		return "Not a directory"
	case errors.Is(err, ErrIsDir):
		return "Is a directory"
	case errors.Is(err, ErrNotEmpty):
		return "Directory not empty"
	case errors.Is(err, ErrInvalid):
		return "Invalid argument"
	case errors.As(err, &pe):
		return pe.Err.Error()
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}
	return err.Error()
}
