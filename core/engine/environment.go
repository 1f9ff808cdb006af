package engine

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Environment is a concurrency-safe string map used for both environment
// variables and aliases.
type Environment struct {
	rw  sync.RWMutex
	env map[string]string
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{}
}

// NewEnvironmentFromList creates an environment from KEY=VALUE pairs. A pair
// without '=' sets an empty value.
func NewEnvironmentFromList(environ []string) *Environment {
	out := &Environment{}

	for _, e := range environ {
		key, value, _ := strings.Cut(e, "=")
		out.Set(key, value)
	}

	return out
}

// Set sets key to value.
func (m *Environment) Set(key, value string) {
	m.rw.Lock()
	defer m.rw.Unlock()

	if m.env == nil {
		m.env = make(map[string]string)
	}
	m.env[key] = value
}

// Unset removes key.
func (m *Environment) Unset(key string) {
	m.rw.Lock()
	defer m.rw.Unlock()
	if m.env != nil {
		delete(m.env, key)
	}
}

// Lookup returns the value of key and whether it was set.
func (m *Environment) Lookup(key string) (string, bool) {
	m.rw.RLock()
	defer m.rw.RUnlock()

	val, ok := m.env[key]
	return val, ok
}

// Get returns the value of key or "" if it isn't set.
func (m *Environment) Get(key string) string {
	val, _ := m.Lookup(key)
	return val
}

// Expand replaces $var and ${var} in s.
func (m *Environment) Expand(s string) string {
	return os.Expand(s, m.Get)
}

// Keys returns the set keys in sorted order.
func (m *Environment) Keys() []string {
	m.rw.RLock()
	defer m.rw.RUnlock()

	keys := make([]string, 0, len(m.env))
	for k := range m.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Environ returns KEY=VALUE pairs sorted by key.
func (m *Environment) Environ() []string {
	var env []string
	for _, k := range m.Keys() {
		env = append(env, fmt.Sprintf("%s=%s", k, m.Get(k)))
	}
	return env
}

// Clear removes every key.
func (m *Environment) Clear() {
	m.rw.Lock()
	defer m.rw.Unlock()
	m.env = make(map[string]string)
}
