package interpreter

import (
	"fmt"
	"sort"
)

// Env is a scope of bindings. Lookups fall through to enclosing scopes;
// bindings are write-once per scope and shadow outer ones.
type Env struct {
	parent   *Env
	bindings map[string]Result
}

// NewEnv creates an empty top-level scope.
func NewEnv() *Env {
	return &Env{bindings: make(map[string]Result)}
}

// Child creates a nested scope.
func (e *Env) Child() *Env {
	return &Env{parent: e, bindings: make(map[string]Result)}
}

// Bind adds a binding to this scope. Rebinding a name in the same scope is
// an error.
func (e *Env) Bind(name string, r Result) error {
	if _, exists := e.bindings[name]; exists {
		return fmt.Errorf("binding %q already set in this scope", name)
	}
	e.bindings[name] = r
	return nil
}

// Get looks name up in this scope and then in the enclosing ones.
func (e *Env) Get(name string) (Result, bool) {
	for s := e; s != nil; s = s.parent {
		if r, ok := s.bindings[name]; ok {
			return r, true
		}
	}
	return nil, false
}

// Names lists the bindings of this scope only, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for n := range e.bindings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (e *Env) snapshot() map[string]Result {
	out := make(map[string]Result, len(e.bindings))
	for k, v := range e.bindings {
		out[k] = v
	}
	return out
}
