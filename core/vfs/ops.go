package vfs

import (
	"context"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/zap"
)

// BlankURL is the URL given to empty files on the real tree, which can't
// hold a leaf without one.
const BlankURL = "about:blank"

// Entry is a node with its path and permissions.
type Entry struct {
	Node     *Node
	Path     string
	Metadata Metadata
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Node.IsDir()
}

// ModeString renders the entry's mode like ls -l.
func (e Entry) ModeString() string {
	return ModeString(e.Metadata.Mode, e.Node.IsDir())
}

// splitPath splits the last segment off p.
func splitPath(p string) (dir, base string) {
	p = strings.TrimRight(p, "/")
	i := strings.LastIndex(p, "/")
	switch {
	case i < 0:
		return ".", p
	case i == 0:
		return "/", p[1:]
	}
	return p[:i], p[i+1:]
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && name != "~" && !strings.Contains(name, "/")
}

// resolveParent resolves the directory that would hold p and the name p
// has in it.
func (v *VFS) resolveParent(op, p string) (*Resolution, string, error) {
	dir, base := splitPath(p)
	if !validName(base) {
		return nil, "", pathErr(op, p, ErrInvalid)
	}
	res, err := v.resolve(dir)
	if err != nil {
		return nil, "", pathErr(op, p, unwrapPathErr(err))
	}
	if !res.Node.IsDir() {
		return nil, "", pathErr(op, p, ErrNotDir)
	}
	return res, base, nil
}

// resolveTarget finds where a moved or copied node named title lands when
// the destination is dst: inside dst if it's a directory, otherwise dst's
// parent under dst's name.
func (v *VFS) resolveTarget(op, dst, title string) (*Resolution, string, error) {
	res, err := v.resolve(dst)
	switch {
	case err == nil && res.Node.IsDir():
		if res.Node.Child(title) != nil {
			return nil, "", pathErr(op, dst, fs.ErrExist)
		}
		return res, title, nil
	case err == nil:
		return nil, "", pathErr(op, dst, fs.ErrExist)
	}
	return v.resolveParent(op, dst)
}

func (v *VFS) checkWrite(op, p string, n *Node) error {
	switch {
	case v.readOnly(n):
		return pathErr(op, p, ErrReadOnly)
	case !v.hasPermission(n, ModeWrite):
		return pathErr(op, p, fs.ErrPermission)
	}
	return nil
}

// checkEmptiable needs write permission on every non-empty directory in the
// subtree at n, the way rm -r unlinks each entry from its own directory.
func (v *VFS) checkEmptiable(op, p string, n *Node) error {
	if len(n.Children) == 0 {
		return nil
	}
	if err := v.checkWrite(op, p, n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := v.checkEmptiable(op, path.Join(p, c.Title), c); err != nil {
			return err
		}
	}
	return nil
}

func (v *VFS) checkRead(op, p string, n *Node) error {
	if !v.hasPermission(n, ModeRead) {
		return pathErr(op, p, fs.ErrPermission)
	}
	return nil
}

func contentURL(content string) string {
	url := strings.TrimSpace(content)
	if url == "" {
		return BlankURL
	}
	return url
}

func (v *VFS) readContent(n *Node) string {
	if v.domains[n.ID] != nil {
		return n.Content
	}
	if n.URL == BlankURL {
		return ""
	}
	return n.URL
}

// createNode creates a node under parent and indexes it so later calls can
// build beneath it before the next refresh.
func (v *VFS) createNode(ctx context.Context, parent *Node, title, content string, dir bool) (*Node, error) {
	var (
		n   *Node
		err error
	)
	if m := v.domains[parent.ID]; m != nil {
		n, err = m.create(parent, title, content, dir)
		if err != nil {
			return nil, err
		}
		v.domains[n.ID] = m
	} else {
		url := ""
		if !dir {
			url = contentURL(content)
		}
		n, err = v.provider.Create(ctx, parent.ID, title, url)
		if err != nil {
			return nil, providerErr("create", err)
		}
		v.real[n.ID] = true
	}
	v.parents[n.ID] = parent
	return n, nil
}

func (v *VFS) removeNode(ctx context.Context, n *Node, recursive bool) error {
	if m := v.domains[n.ID]; m != nil {
		return m.remove(n, recursive)
	}
	if recursive {
		return providerErr("removeTree", v.provider.RemoveTree(ctx, n.ID))
	}
	return providerErr("remove", v.provider.Remove(ctx, n.ID))
}

func (v *VFS) setContent(ctx context.Context, n *Node, content string) error {
	if m := v.domains[n.ID]; m != nil {
		return m.setContent(n, content)
	}
	url := contentURL(content)
	_, err := v.provider.Update(ctx, n.ID, Changes{URL: &url})
	return providerErr("update", err)
}

// relocate moves n under parent with a new title. Both must be in the same
// domain.
func (v *VFS) relocate(ctx context.Context, n, parent *Node, title string) error {
	if m := v.domains[n.ID]; m != nil {
		return m.relocate(n, parent, title)
	}
	if v.parents[n.ID].ID != parent.ID {
		if _, err := v.provider.Move(ctx, n.ID, parent.ID); err != nil {
			return providerErr("move", err)
		}
	}
	if n.Title != title {
		if _, err := v.provider.Update(ctx, n.ID, Changes{Title: &title}); err != nil {
			return providerErr("update", err)
		}
	}
	return nil
}

func (v *VFS) sameDomain(a, b *Node) bool {
	return v.domains[a.ID] == v.domains[b.ID]
}

// copyTree copies src under parent, recursively for directories. Copies
// keep the source mode filtered through the umask. A copy that fails partway
// is removed again.
func (v *VFS) copyTree(ctx context.Context, src, parent *Node, title string) error {
	var created []string
	top, err := v.copyNodes(ctx, src, parent, title, &created)
	if err != nil && top != nil {
		if rerr := v.removeNode(ctx, top, true); rerr != nil {
			v.log.Warn("removing partial copy failed", zap.String("id", top.ID), zap.Error(rerr))
		}
		v.dropMetadata(created)
	}
	return err
}

func (v *VFS) copyNodes(ctx context.Context, src, parent *Node, title string, created *[]string) (*Node, error) {
	n, err := v.createNode(ctx, parent, title, v.readContent(src), src.IsDir())
	if err != nil {
		return nil, err
	}
	*created = append(*created, n.ID)
	v.establish(n, parent, v.metadata(src).Mode)

	for _, c := range src.Children {
		if _, err := v.copyNodes(ctx, c, n, c.Title, created); err != nil {
			return n, err
		}
	}
	return n, nil
}

func subtreeIDs(n *Node) []string {
	var ids []string
	n.Walk(func(c *Node) {
		ids = append(ids, c.ID)
	})
	return ids
}

func (v *VFS) dropMetadata(ids []string) {
	if err := v.meta.drop(ids...); err != nil {
		v.log.Warn("dropping metadata failed", zap.Strings("ids", ids), zap.Error(err))
	}
}

func contains(stack []*Node, n *Node) bool {
	for _, s := range stack {
		if s.ID == n.ID {
			return true
		}
	}
	return false
}

// Mkdir creates a directory. Its parent must exist and be writable.
func (v *VFS) Mkdir(ctx context.Context, p string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mkdir(ctx, p)
}

func (v *VFS) mkdir(ctx context.Context, p string) error {
	res, name, err := v.resolveParent("mkdir", p)
	if err != nil {
		return err
	}
	parent := res.Node
	if parent.Child(name) != nil {
		return pathErr("mkdir", p, fs.ErrExist)
	}
	if err := v.checkWrite("mkdir", p, parent); err != nil {
		return err
	}

	n, err := v.createNode(ctx, parent, name, "", true)
	if err != nil {
		return pathErr("mkdir", p, err)
	}
	v.establish(n, parent, defaultDirMode)
	return v.refresh(ctx)
}

// MkdirAll creates p and any missing parents.
func (v *VFS) MkdirAll(ctx context.Context, p string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	segs := strings.Split(p, "/")
	for i, seg := range segs {
		switch {
		case seg == "", seg == ".", seg == "..", i == 0 && seg == "~":
			continue
		}
		prefix := strings.Join(segs[:i+1], "/")
		res, err := v.resolve(prefix)
		switch {
		case err == nil && !res.Node.IsDir():
			return pathErr("mkdir", prefix, ErrNotDir)
		case err == nil:
			continue
		}
		if err := v.mkdir(ctx, prefix); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes a file or an empty directory.
func (v *VFS) Remove(ctx context.Context, p string) error {
	return v.remove(ctx, "rm", p, false)
}

// RemoveAll deletes p and everything under it.
func (v *VFS) RemoveAll(ctx context.Context, p string) error {
	return v.remove(ctx, "rm", p, true)
}

func (v *VFS) remove(ctx context.Context, op, p string, recursive bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	res, err := v.resolve(p)
	if err != nil {
		return pathErr(op, p, unwrapPathErr(err))
	}
	if len(res.Stack) < 2 {
		return pathErr(op, p, ErrInvalid)
	}
	n := res.Node
	parent := res.Stack[len(res.Stack)-2]
	if !recursive && len(n.Children) > 0 {
		return pathErr(op, p, ErrNotEmpty)
	}
	if err := v.checkWrite(op, p, parent); err != nil {
		return err
	}
	if recursive {
		if err := v.checkEmptiable(op, p, n); err != nil {
			return err
		}
	}

	ids := subtreeIDs(n)
	if err := v.removeNode(ctx, n, recursive); err != nil {
		return pathErr(op, p, err)
	}
	v.dropMetadata(ids)
	return v.refresh(ctx)
}

// Move moves or renames src to dst. It needs read permission on src and
// write permission on both parents.
func (v *VFS) Move(ctx context.Context, src, dst string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	sres, err := v.resolve(src)
	if err != nil {
		return pathErr("mv", src, unwrapPathErr(err))
	}
	if len(sres.Stack) < 2 {
		return pathErr("mv", src, ErrInvalid)
	}
	n := sres.Node
	srcParent := sres.Stack[len(sres.Stack)-2]
	if err := v.checkRead("mv", src, n); err != nil {
		return err
	}
	if err := v.checkWrite("mv", src, srcParent); err != nil {
		return err
	}

	tres, name, err := v.resolveTarget("mv", dst, n.Title)
	if err != nil {
		return err
	}
	parent := tres.Node
	if contains(tres.Stack, n) {
		return pathErr("mv", dst, ErrInvalid)
	}
	if err := v.checkWrite("mv", dst, parent); err != nil {
		return err
	}

	if v.sameDomain(n, parent) {
		if err := v.relocate(ctx, n, parent, name); err != nil {
			return pathErr("mv", src, err)
		}
		return v.refresh(ctx)
	}

	// Crossing between the real tree and a mount: copy then delete.
	if err := v.copyTree(ctx, n, parent, name); err != nil {
		v.refresh(ctx)
		return pathErr("mv", dst, err)
	}
	ids := subtreeIDs(n)
	if err := v.removeNode(ctx, n, true); err != nil {
		v.refresh(ctx)
		return pathErr("mv", src, err)
	}
	v.dropMetadata(ids)
	return v.refresh(ctx)
}

// Copy copies src to dst. Directories need recursive.
func (v *VFS) Copy(ctx context.Context, src, dst string, recursive bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	sres, err := v.resolve(src)
	if err != nil {
		return pathErr("cp", src, unwrapPathErr(err))
	}
	n := sres.Node
	if n.IsDir() && !recursive {
		return pathErr("cp", src, ErrIsDir)
	}
	if err := v.checkRead("cp", src, n); err != nil {
		return err
	}

	tres, name, err := v.resolveTarget("cp", dst, n.Title)
	if err != nil {
		return err
	}
	parent := tres.Node
	if contains(tres.Stack, n) {
		return pathErr("cp", dst, ErrInvalid)
	}
	if err := v.checkWrite("cp", dst, parent); err != nil {
		return err
	}

	err = v.copyTree(ctx, n, parent, name)
	if rerr := v.refresh(ctx); err == nil {
		err = rerr
	}
	if err != nil {
		return pathErr("cp", dst, unwrapPathErr(err))
	}
	return nil
}

// Touch creates an empty file if p doesn't exist.
func (v *VFS) Touch(ctx context.Context, p string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := v.resolve(p); err == nil {
		return nil
	}
	return v.createFile(ctx, "touch", p, "")
}

func (v *VFS) createFile(ctx context.Context, op, p, content string) error {
	res, name, err := v.resolveParent(op, p)
	if err != nil {
		return err
	}
	parent := res.Node
	if err := v.checkWrite(op, p, parent); err != nil {
		return err
	}
	n, err := v.createNode(ctx, parent, name, content, false)
	if err != nil {
		return pathErr(op, p, err)
	}
	v.establish(n, parent, defaultFileMode)
	return v.refresh(ctx)
}

// WriteFile replaces the content of p, creating it if needed. Files on the
// real tree store their content as the bookmark URL.
func (v *VFS) WriteFile(ctx context.Context, p, content string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writeFile(ctx, "write", p, content, false)
}

// AppendFile adds content to the end of p on a new line, creating it if
// needed.
func (v *VFS) AppendFile(ctx context.Context, p, content string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writeFile(ctx, "append", p, content, true)
}

func (v *VFS) writeFile(ctx context.Context, op, p, content string, appending bool) error {
	res, err := v.resolve(p)
	if err != nil {
		return v.createFile(ctx, op, p, content)
	}
	n := res.Node
	if n.IsDir() {
		return pathErr(op, p, ErrIsDir)
	}
	if err := v.checkWrite(op, p, n); err != nil {
		return err
	}

	if appending {
		if existing := v.readContent(n); existing != "" {
			if !strings.HasSuffix(existing, "\n") {
				existing += "\n"
			}
			content = existing + content
		}
	}
	if err := v.setContent(ctx, n, content); err != nil {
		return pathErr(op, p, err)
	}
	return v.refresh(ctx)
}

// ReadFile returns the content of the file at p.
func (v *VFS) ReadFile(p string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	res, err := v.resolve(p)
	if err != nil {
		return "", pathErr("read", p, unwrapPathErr(err))
	}
	if res.Node.IsDir() {
		return "", pathErr("read", p, ErrIsDir)
	}
	if err := v.checkRead("read", p, res.Node); err != nil {
		return "", err
	}
	return v.readContent(res.Node), nil
}

// Stat describes the node at p.
func (v *VFS) Stat(p string) (*Entry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	res, err := v.resolve(p)
	if err != nil {
		return nil, pathErr("stat", p, unwrapPathErr(err))
	}
	return &Entry{Node: res.Node, Path: res.Path(), Metadata: v.metadata(res.Node)}, nil
}

// ReadDir lists the directory at p. It needs read permission.
func (v *VFS) ReadDir(p string) ([]Entry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	res, err := v.resolve(p)
	if err != nil {
		return nil, pathErr("ls", p, unwrapPathErr(err))
	}
	dir := res.Node
	if !dir.IsDir() {
		return nil, pathErr("ls", p, ErrNotDir)
	}
	if err := v.checkRead("ls", p, dir); err != nil {
		return nil, err
	}

	base := res.Path()
	entries := make([]Entry, 0, len(dir.Children))
	for _, c := range dir.Children {
		entries = append(entries, Entry{
			Node:     c,
			Path:     strings.TrimSuffix(base, "/") + "/" + c.Title,
			Metadata: v.metadata(c),
		})
	}
	return entries, nil
}

// Chmod applies a mode expression to p. Only the owner or a privileged
// identity may change modes.
func (v *VFS) Chmod(ctx context.Context, p, expr string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	res, err := v.resolve(p)
	if err != nil {
		return pathErr("chmod", p, unwrapPathErr(err))
	}
	n := res.Node
	if v.readOnly(n) {
		return pathErr("chmod", p, ErrReadOnly)
	}
	md := v.metadata(n)
	if !v.identity.Privileged && md.Owner != v.identity.User {
		return pathErr("chmod", p, fs.ErrPermission)
	}

	mode := md.Mode
	if n.IsDir() {
		mode |= fs.ModeDir
	}
	next, err := ApplyMode(expr, mode)
	if err != nil {
		return pathErr("chmod", p, err)
	}
	md.Mode = next & ModeMaskAll
	return v.putMetadata("chmod", p, n, md)
}

// Chown changes the owner and, if group isn't empty, the group of p. Only
// privileged identities may change ownership.
func (v *VFS) Chown(ctx context.Context, p, owner, group string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	res, err := v.resolve(p)
	if err != nil {
		return pathErr("chown", p, unwrapPathErr(err))
	}
	n := res.Node
	if v.readOnly(n) {
		return pathErr("chown", p, ErrReadOnly)
	}
	if !v.identity.Privileged {
		return pathErr("chown", p, fs.ErrPermission)
	}

	md := v.metadata(n)
	if owner != "" {
		md.Owner = owner
	}
	if group != "" {
		md.Group = group
	}
	return v.putMetadata("chown", p, n, md)
}

func (v *VFS) putMetadata(op, p string, n *Node, md Metadata) error {
	if err := v.meta.put(n.ID, md); err != nil {
		return pathErr(op, p, err)
	}
	return nil
}
