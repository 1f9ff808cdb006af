package vfs

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// KeyValueStore persists metadata, synthetic mounts and packages. There are
// no transactions; callers read-modify-write and the last writer wins.
type KeyValueStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	// Keys lists the stored keys that start with prefix, sorted.
	Keys(prefix string) ([]string, error)
}

// AferoStore keeps one file per key under Dir.
type AferoStore struct {
	fs  afero.Fs
	dir string
}

var _ KeyValueStore = (*AferoStore)(nil)

// NewAferoStore creates a store rooted at dir on fsys.
func NewAferoStore(fsys afero.Fs, dir string) *AferoStore {
	return &AferoStore{fs: fsys, dir: dir}
}

// NewMemoryStore creates a store backed by an in-memory filesystem.
func NewMemoryStore() *AferoStore {
	return NewAferoStore(afero.NewMemMapFs(), "/")
}

func (s *AferoStore) path(key string) string {
	// Rooting the key keeps ".." from escaping dir.
	return path.Join(s.dir, path.Clean("/"+key))
}

func (s *AferoStore) Get(key string) (string, bool, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return string(data), true, nil
}

func (s *AferoStore) Set(key, value string) error {
	name := s.path(key)
	if err := s.fs.MkdirAll(path.Dir(name), 0700); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, name, []byte(value), 0600)
}

func (s *AferoStore) Delete(key string) error {
	err := s.fs.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *AferoStore) Keys(prefix string) ([]string, error) {
	root := path.Clean(s.dir)
	var keys []string
	err := afero.Walk(s.fs, root, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		key := strings.TrimPrefix(strings.TrimPrefix(name, root), "/")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	sort.Strings(keys)
	return keys, err
}

// getYAML decodes the value at key into out, reporting whether it existed.
func getYAML(store KeyValueStore, key string, out interface{}) (bool, error) {
	raw, ok, err := store.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := yaml.Unmarshal([]byte(raw), out); err != nil {
		return false, err
	}
	return true, nil
}

func setYAML(store KeyValueStore, key string, value interface{}) error {
	out, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	return store.Set(key, string(out))
}
