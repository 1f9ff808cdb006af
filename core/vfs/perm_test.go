package vfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataAllows(t *testing.T) {
	md := Metadata{Mode: 0640, Owner: "alice", Group: "staff"}

	cases := []struct {
		name string
		id   Identity
		perm rune
		want bool
	}{
		{"owner read", NewIdentity("alice", "users"), 'r', true},
		{"owner write", NewIdentity("alice", "users"), 'w', true},
		{"owner exec", NewIdentity("alice", "users"), 'x', false},
		{"group read", NewIdentity("bob", "staff"), 'r', true},
		{"group write", NewIdentity("bob", "staff"), 'w', false},
		{"supplementary group", Identity{User: "carol", Group: "users", Groups: []string{"staff"}}, 'r', true},
		{"other read", NewIdentity("mallory", "users"), 'r', false},
		{"root", NewIdentity("root", "root"), 'x', true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, md.Allows(tc.id, PermBits(tc.perm)))
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "drwxr-xr-x", ModeString(0755, true))
	assert.Equal(t, "-rw-r-----", ModeString(0640, false))
	assert.Equal(t, "----------", ModeString(0, false))
}

func TestAferoStore(t *testing.T) {
	s := NewMemoryStore()

	_, ok, err := s.Get("pkg/rev")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("pkg/rev", "a"))
	require.NoError(t, s.Set("pkg/base64", "b"))
	require.NoError(t, s.Set("vfs/metadata", "{}"))
	require.NoError(t, s.Set("../../escape", "c"))

	v, ok, err := s.Get("pkg/rev")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	keys, err := s.Keys("pkg/")
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/base64", "pkg/rev"}, keys)

	v, ok, err = s.Get("escape")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c", v)

	require.NoError(t, s.Delete("pkg/rev"))
	require.NoError(t, s.Delete("pkg/rev"))
	keys, err = s.Keys("pkg/")
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/base64"}, keys)
}

func modeErr(expr string) error {
	_, err := ApplyMode(expr, 0)
	return err
}

func TestDescribe(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"not exist":  {pathErr("cd", "x", fs.ErrNotExist), "No such file or directory"},
		"exists":     {pathErr("mkdir", "x", fs.ErrExist), "File exists"},
		"not empty":  {pathErr("rm", "x", ErrNotEmpty), "Directory not empty"},
		"read-only":  {pathErr("rm", "x", ErrReadOnly), "Read-only file system"},
		"provider":   {providerErr("create", errNoParent), errNoParent.Error()},
		"mode error": {pathErr("chmod", "x", modeErr("x")), "no action provided"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, Describe(tc.err))
		})
	}
}
