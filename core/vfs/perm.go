package vfs

import (
	"io/fs"
	"strings"
)

const (
	// DefaultUmask is applied to new nodes when the identity doesn't set one.
	DefaultUmask fs.FileMode = 0022

	RootUser  = "root"
	RootGroup = "root"

	defaultDirMode  fs.FileMode = 0777
	defaultFileMode fs.FileMode = 0666
	readOnlyDirMode fs.FileMode = 0555
	readOnlyMode    fs.FileMode = 0444
)

// Identity is the user operations are checked against.
type Identity struct {
	User   string
	Group  string
	Groups []string
	Umask  fs.FileMode
	// Privileged identities bypass every permission check except writes to
	// read-only mounts.
	Privileged bool
}

// NewIdentity creates an identity with the default umask. The root user is
// privileged.
func NewIdentity(user, group string) Identity {
	return Identity{
		User:       user,
		Group:      group,
		Umask:      DefaultUmask,
		Privileged: user == RootUser,
	}
}

// InGroup reports whether the identity belongs to group.
func (id Identity) InGroup(group string) bool {
	if id.Group == group {
		return true
	}
	for _, g := range id.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Metadata is the permission information held for a node.
type Metadata struct {
	Mode  fs.FileMode `json:"mode"`
	Owner string      `json:"owner"`
	Group string      `json:"group"`
}

// Allows reports whether id may perform perm (ModeRead, ModeWrite or
// ModeExec) under this metadata.
func (m Metadata) Allows(id Identity, perm fs.FileMode) bool {
	if id.Privileged {
		return true
	}

	var triad fs.FileMode
	switch {
	case m.Owner == id.User:
		triad = ModeMaskUser
	case id.InGroup(m.Group):
		triad = ModeMaskGroup
	default:
		triad = ModeMaskOther
	}
	return m.Mode&perm&triad != 0
}

// PermBits converts 'r', 'w' or 'x' into the matching mode bits.
func PermBits(perm rune) fs.FileMode {
	switch perm {
	case 'r':
		return ModeRead
	case 'w':
		return ModeWrite
	case 'x':
		return ModeExec
	}
	return 0
}

// ModeString renders the mode like ls -l, e.g. "drwxr-xr-x".
func ModeString(mode fs.FileMode, dir bool) string {
	var sb strings.Builder
	if dir {
		sb.WriteByte('d')
	} else {
		sb.WriteByte('-')
	}

	const rwx = "rwxrwxrwx"
	for i := 0; i < 9; i++ {
		if mode&(1<<uint(8-i)) != 0 {
			sb.WriteByte(rwx[i])
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
