package vfs

import (
	"context"
	"io/fs"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	rootID = "vfs:root"

	MountEtc  = "etc"
	MountBin  = "bin"
	MountProc = "proc"
)

// Options configures a VFS.
type Options struct {
	// Provider supplies the real tree. Required.
	Provider ResourceProvider
	// Store persists metadata and the writable mounts. Defaults to an
	// in-memory store.
	Store KeyValueStore
	// Identity is the initial user.
	Identity Identity
	// DefaultOwner and DefaultGroup own nodes with no stored metadata.
	DefaultOwner string
	DefaultGroup string
	// Proc lists the generated files under /proc.
	Proc []ProcFile
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Resolution is the result of resolving a path: the node and the path
// stack leading to it, starting at the root.
type Resolution struct {
	Node  *Node
	Stack []*Node
}

// Path returns the absolute path of the resolution.
func (r *Resolution) Path() string {
	return stackPath(r.Stack)
}

// VFS is a tree of the provider's folders plus synthetic mounts, with a
// current directory and permission checks against the active identity.
type VFS struct {
	mu sync.Mutex

	provider ResourceProvider
	store    KeyValueStore
	meta     *metadataStore
	identity Identity
	owner    string
	group    string
	log      *zap.Logger

	mounts []*mount

	root    *Node
	parents map[string]*Node
	domains map[string]*mount
	// real tracks ids served by the provider.
	real  map[string]bool
	stack []*Node
}

// New builds a VFS and loads the tree. The current directory starts at home.
func New(ctx context.Context, opts Options) (*VFS, error) {
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	identity := opts.Identity
	if identity.User == "" {
		identity = NewIdentity(opts.DefaultOwner, opts.DefaultGroup)
	}

	v := &VFS{
		provider: opts.Provider,
		store:    store,
		meta:     &metadataStore{store: store},
		identity: identity,
		owner:    opts.DefaultOwner,
		group:    opts.DefaultGroup,
		log:      logger,
		mounts: []*mount{
			newStoredMount(MountEtc, store),
			newStoredMount(MountBin, store),
			newProcMount(MountProc, opts.Proc),
		},
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	v.stack = v.homeStack()
	return v, nil
}

// Refresh reloads the provider tree. The current directory is kept if the
// node still exists, otherwise it falls back to home.
func (v *VFS) Refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.refresh(ctx)
}

func (v *VFS) refresh(ctx context.Context) error {
	tree, err := v.provider.GetTree(ctx)
	if err != nil {
		v.log.Warn("fetching tree failed", zap.Error(err))
		return providerErr("getTree", err)
	}

	root := &Node{ID: rootID, Children: []*Node{}}
	real := make(map[string]bool)
	for _, c := range tree.Children {
		c.Walk(func(n *Node) { real[n.ID] = true })
		root.Children = append(root.Children, c)
	}

	domains := make(map[string]*mount)
	for _, m := range v.mounts {
		if err := m.load(); err != nil {
			return err
		}
		m.root.Walk(func(n *Node) { domains[n.ID] = m })
		root.Children = append(root.Children, m.root)
	}

	parents := make(map[string]*Node)
	root.Walk(func(n *Node) {
		for _, c := range n.Children {
			parents[c.ID] = n
		}
	})

	v.root = root
	v.real = real
	v.domains = domains
	v.parents = parents

	// Re-validate the path stack by id.
	if len(v.stack) > 0 {
		if stack := v.stackOf(v.stack[len(v.stack)-1].ID); stack != nil {
			v.stack = stack
		} else {
			v.stack = v.homeStack()
		}
	}
	return nil
}

// stackOf builds the path stack for the node with the given id, or nil if
// it's no longer in the tree.
func (v *VFS) stackOf(id string) []*Node {
	if id == rootID {
		return []*Node{v.root}
	}
	parent, ok := v.parents[id]
	if !ok {
		return nil
	}
	var node *Node
	for _, c := range parent.Children {
		if c.ID == id {
			node = c
		}
	}
	stack := v.stackOf(parent.ID)
	if stack == nil || node == nil {
		return nil
	}
	return append(stack, node)
}

func (v *VFS) homeStack() []*Node {
	for _, c := range v.root.Children {
		if v.real[c.ID] && c.IsDir() {
			return []*Node{v.root, c}
		}
	}
	return []*Node{v.root}
}

func stackPath(stack []*Node) string {
	if len(stack) <= 1 {
		return "/"
	}
	titles := make([]string, 0, len(stack)-1)
	for _, n := range stack[1:] {
		titles = append(titles, n.Title)
	}
	return "/" + strings.Join(titles, "/")
}

// Root returns the synthetic root node.
func (v *VFS) Root() *Node {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.root
}

// Home returns the absolute path of the home folder.
func (v *VFS) Home() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return stackPath(v.homeStack())
}

// Cwd returns the current directory node.
func (v *VFS) Cwd() *Node {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stack[len(v.stack)-1]
}

// Pwd returns the absolute path of the current directory.
func (v *VFS) Pwd() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return stackPath(v.stack)
}

// DisplayPath returns the current directory with the home prefix shown as
// "~", for prompts.
func (v *VFS) DisplayPath() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	home := v.homeStack()
	if len(home) > len(v.stack) || len(home) == 1 {
		return stackPath(v.stack)
	}
	for i, n := range home {
		if v.stack[i].ID != n.ID {
			return stackPath(v.stack)
		}
	}
	rest := stackPath(append([]*Node{v.root}, v.stack[len(home):]...))
	if rest == "/" {
		return "~"
	}
	return "~" + rest
}

// Identity returns the active identity.
func (v *VFS) Identity() Identity {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.identity
}

// SetIdentity switches the active identity.
func (v *VFS) SetIdentity(id Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.identity = id
}

// Resolve walks path from the home folder ("~/..."), the root ("/...") or
// the current directory.
func (v *VFS) Resolve(path string) (*Resolution, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resolve(path)
}

func (v *VFS) resolve(path string) (*Resolution, error) {
	var stack []*Node
	rest := path
	switch {
	case path == "~" || strings.HasPrefix(path, "~/"):
		stack = v.homeStack()
		rest = path[1:]
	case strings.HasPrefix(path, "/"):
		stack = []*Node{v.root}
	default:
		stack = append([]*Node(nil), v.stack...)
	}

	for _, seg := range strings.Split(rest, "/") {
		if seg == "" {
			continue
		}
		cur := stack[len(stack)-1]
		if !cur.IsDir() {
			return nil, pathErr("resolve", path, ErrNotDir)
		}
		switch seg {
		case ".":
			continue
		case "..":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			continue
		}

		child := cur.Child(seg)
		if child == nil {
			return nil, pathErr("resolve", path, fs.ErrNotExist)
		}
		stack = append(stack, child)
	}

	return &Resolution{Node: stack[len(stack)-1], Stack: stack}, nil
}

// Chdir changes the current directory. The target needs execute permission.
func (v *VFS) Chdir(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	res, err := v.resolve(path)
	if err != nil {
		return pathErr("cd", path, unwrapPathErr(err))
	}
	if !res.Node.IsDir() {
		return pathErr("cd", path, ErrNotDir)
	}
	if !v.hasPermission(res.Node, ModeExec) {
		return pathErr("cd", path, fs.ErrPermission)
	}
	v.stack = res.Stack
	return nil
}

// PathOf returns the absolute path of n, or "" if it isn't in the tree.
func (v *VFS) PathOf(n *Node) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	stack := v.stackOf(n.ID)
	if stack == nil {
		return ""
	}
	return stackPath(stack)
}

// readOnly reports whether n can never be written: the root itself and
// generated mounts.
func (v *VFS) readOnly(n *Node) bool {
	if n.ID == rootID {
		return true
	}
	if m := v.domains[n.ID]; m != nil {
		return m.readOnly
	}
	return false
}

// Metadata returns the permissions held for n.
func (v *VFS) Metadata(n *Node) Metadata {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.metadata(n)
}

func (v *VFS) metadata(n *Node) Metadata {
	if v.readOnly(n) {
		mode := readOnlyMode
		if n.IsDir() {
			mode = readOnlyDirMode
		}
		return Metadata{Mode: mode, Owner: RootUser, Group: RootGroup}
	}

	md, ok, err := v.meta.get(n.ID)
	if err != nil {
		v.log.Warn("reading metadata failed", zap.String("id", n.ID), zap.Error(err))
	}
	if ok {
		return md
	}

	mode := defaultFileMode &^ DefaultUmask
	if n.IsDir() {
		mode = defaultDirMode &^ DefaultUmask
	}
	return Metadata{Mode: mode, Owner: v.owner, Group: v.group}
}

// HasPermission reports whether the active identity may read ('r'), write
// ('w') or execute ('x') n. Read-only nodes refuse writes for everyone.
func (v *VFS) HasPermission(n *Node, perm rune) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hasPermission(n, PermBits(perm))
}

func (v *VFS) hasPermission(n *Node, perm fs.FileMode) bool {
	if perm&ModeWrite != 0 && v.readOnly(n) {
		return false
	}
	return v.metadata(n).Allows(v.identity, perm)
}

// establish records metadata for a node the active identity just created.
// The group is inherited from the parent.
func (v *VFS) establish(n, parent *Node, base fs.FileMode) {
	umask := v.identity.Umask
	md := Metadata{
		Mode:  base &^ umask & ModeMaskAll,
		Owner: v.identity.User,
		Group: v.metadata(parent).Group,
	}
	if err := v.meta.put(n.ID, md); err != nil {
		v.log.Warn("storing metadata failed", zap.String("id", n.ID), zap.Error(err))
	}
}

func unwrapPathErr(err error) error {
	if pe, ok := err.(*fs.PathError); ok {
		return pe.Err
	}
	return err
}
