package banjo

import (
	"fmt"
	"sort"
)

// Scope chain mapping names to lazily evaluated bindings. Environments are
// filled in when they are created and never changed afterwards.
type Environment struct {
	outer *Environment // Optional
	store map[string]*thunk
}

func NewEnvironment(outer *Environment) *Environment {
	return &Environment{
		outer: outer,
		store: map[string]*thunk{},
	}
}

// Binds name to an already computed value.
func (self *Environment) Let(name string, value Value) {
	self.store[name] = evaluatedThunk(name, value)
}

// Binds name to expr, evaluated in env on first use.
func (self *Environment) Defer(name string, expr CoreExpr, env *Environment) {
	self.store[name] = deferredThunk(name, expr, env)
}

func (self *Environment) lookup(name string) (*thunk, bool) {
	for env := self; env != nil; env = env.outer {
		if binding, ok := env.store[name]; ok {
			return binding, true
		}
	}
	return nil, false
}

func (self *Environment) Has(name string) bool {
	_, ok := self.lookup(name)
	return ok
}

func (self *Environment) Get(trace *Trace, name string) Value {
	binding, ok := self.lookup(name)
	if !ok {
		return trace.Fail(FAIL_UNRESOLVED, fmt.Sprintf("unresolved reference %s", quote(name)))
	}
	return binding.force(trace)
}

// Every name visible from this environment, sorted.
func (self *Environment) Names() []string {
	seen := map[string]bool{}
	for env := self; env != nil; env = env.outer {
		for name := range env.store {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Environment exposing the members of a value as plain names, used when a
// compound expression is projected onto a value.
func projectedEnvironment(trace *Trace, value Value, env *Environment) *Environment {
	if object, ok := value.(*Object); ok {
		return object.Scope()
	}
	result := NewEnvironment(env)
	for _, name := range methodNames(value) {
		result.Let(name, value.Slot(trace, name))
	}
	return result
}
