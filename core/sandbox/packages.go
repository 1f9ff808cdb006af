package sandbox

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/startterm/startsh/core/vfs"
)

const packagePrefix = "pkg/"

var packageName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// PackageStore keeps installed package sources in the key-value store.
type PackageStore struct {
	store vfs.KeyValueStore
}

// NewPackageStore creates a store over kv.
func NewPackageStore(kv vfs.KeyValueStore) *PackageStore {
	return &PackageStore{store: kv}
}

// ValidName reports whether name can be used for a package.
func ValidName(name string) bool {
	return packageName.MatchString(name)
}

// Get returns the source of the named package.
func (s *PackageStore) Get(name string) (string, bool, error) {
	if !ValidName(name) {
		return "", false, nil
	}
	return s.store.Get(packagePrefix + name)
}

// Install stores source under name after checking that it compiles.
func (s *PackageStore) Install(name, source string) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid package name %q", name)
	}
	if err := Compile(name, source); err != nil {
		return err
	}
	return s.store.Set(packagePrefix+name, source)
}

// Remove deletes the named package.
func (s *PackageStore) Remove(name string) error {
	_, ok, err := s.Get(name)
	switch {
	case err != nil:
		return err
	case !ok:
		return fmt.Errorf("package %q: %w", name, fs.ErrNotExist)
	}
	return s.store.Delete(packagePrefix + name)
}

// List returns the installed package names, sorted.
func (s *PackageStore) List() ([]string, error) {
	keys, err := s.store.Keys(packagePrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, packagePrefix))
	}
	return names, nil
}

// InstallDefaults installs the named built-in packages that aren't already
// present. Unknown names are an error.
func (s *PackageStore) InstallDefaults(names []string) error {
	for _, name := range names {
		source, ok := DefaultPackages[name]
		if !ok {
			return fmt.Errorf("unknown default package %q", name)
		}
		_, exists, err := s.Get(name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := s.Install(name, source); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPackages are the packages shipped with the shell.
var DefaultPackages = map[string]string{
	"base64": base64Package,
	"rev":    revPackage,
}

const revPackage = `const input = pipedInput ? pipedInput : [args.join(' ')];
return input.map(line => Array.from(line).reverse().join(''));`

const base64Package = `const chars = 'ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/';
const decoding = args.includes('-d') || args.includes('--decode');
const words = args.filter(a => a !== '-d' && a !== '--decode');

function encode(s) {
  const bytes = unescape(encodeURIComponent(s));
  let out = '';
  for (let i = 0; i < bytes.length; i += 3) {
    const n = (bytes.charCodeAt(i) << 16) | ((bytes.charCodeAt(i + 1) || 0) << 8) | (bytes.charCodeAt(i + 2) || 0);
    out += chars[(n >> 18) & 63] + chars[(n >> 12) & 63];
    out += i + 1 < bytes.length ? chars[(n >> 6) & 63] : '=';
    out += i + 2 < bytes.length ? chars[n & 63] : '=';
  }
  return out;
}

function decode(s) {
  s = s.replace(/[^A-Za-z0-9+\/]/g, '');
  const idx = ch => ch === undefined ? 0 : chars.indexOf(ch);
  let bytes = '';
  for (let i = 0; i < s.length; i += 4) {
    const n = (idx(s[i]) << 18) | (idx(s[i + 1]) << 12) | (idx(s[i + 2]) << 6) | idx(s[i + 3]);
    bytes += String.fromCharCode((n >> 16) & 255);
    if (i + 2 < s.length) bytes += String.fromCharCode((n >> 8) & 255);
    if (i + 3 < s.length) bytes += String.fromCharCode(n & 255);
  }
  return decodeURIComponent(escape(bytes));
}

let input;
if (pipedInput) {
  input = pipedInput.join('\n');
} else if (words.length > 0) {
  input = words.join(' ');
} else {
  st_api.writeHtml('<span class="term-error">Usage: echo "text" | base64 [-d]</span>');
  st_api.writeHtml('<span class="term-error">       base64 [-d] "text"</span>');
  return;
}
return decoding ? decode(input) : encode(input);`
