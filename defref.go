package banjo

import (
	"fmt"
)

// A name visible to a program from outside of it, such as a runtime builtin
// or a top-level slot of another file in the same project.
type Binding struct {
	Name       string
	Definition CoreExpr // Optional: nil for runtime names.
}

type defRefScope struct {
	outer  *defRefScope
	names  map[string]bool
	object *CoreObject // Set for object scopes.
}

func (self *defRefScope) defines(name string) bool {
	for scope := self; scope != nil; scope = scope.outer {
		if scope.names[name] {
			return true
		}
	}
	return false
}

func (self *defRefScope) enclosingObject() *CoreObject {
	for scope := self; scope != nil; scope = scope.outer {
		if scope.object != nil {
			return scope.object
		}
	}
	return nil
}

type defRefAnalyser struct {
	problems *ProblemSet
}

// Reports references to names that are not defined by any enclosing scope or
// by the given bindings. Inner scopes hide outer ones; projection bodies are
// resolved against the projected value at run time and are not checked.
func AnalyseReferences(e CoreExpr, bindings []Binding) []BadExpr {
	root := &defRefScope{names: map[string]bool{}}
	for _, binding := range bindings {
		root.names[binding.Name] = true
	}
	self := &defRefAnalyser{problems: &ProblemSet{}}
	self.walk(root, e)
	return self.problems.Problems()
}

func (self *defRefAnalyser) walk(scope *defRefScope, e CoreExpr) {
	switch e := e.(type) {
	case *CoreIdentifier:
		if !scope.defines(e.Name) {
			self.problems.Insert(BadExpr{Message: fmt.Sprintf("undefined reference %s", quote(e.Name)), Ranges: e.Ranges})
		}
	case *CoreLet:
		inner := &defRefScope{outer: scope, names: map[string]bool{}}
		for _, binding := range e.Bindings {
			if binding.Name != "" {
				inner.names[binding.Name] = true
			}
		}
		for _, binding := range e.Bindings {
			self.walk(inner, binding.Value)
		}
		self.walk(inner, e.Body)
	case *CoreFunction:
		inner := &defRefScope{outer: scope, names: map[string]bool{}}
		for _, parameter := range e.Parameters {
			inner.names[parameter] = true
		}
		self.walk(inner, e.Body)
	case *CoreObject:
		inner := &defRefScope{outer: scope, names: map[string]bool{}, object: e}
		for _, slot := range e.Slots {
			if slot.Name != "" {
				inner.names[slot.Name] = true
			}
		}
		for _, slot := range e.Slots {
			self.walk(inner, slot.Value)
		}
	case *CoreProjection:
		if e.Base {
			self.checkSelfSlot(scope, e)
			return
		}
		self.walk(scope, e.Object)
		if _, ok := e.Body.(*CoreIdentifier); !ok {
			self.walkOpen(scope, e.Body)
		}
	default:
		eachChild(e, func(child CoreExpr) { self.walk(scope, child) })
	}
}

func (self *defRefAnalyser) checkSelfSlot(scope *defRefScope, e *CoreProjection) {
	field, ok := e.Body.(*CoreIdentifier)
	object := scope.enclosingObject()
	if !ok || object == nil {
		return
	}
	for _, slot := range object.Slots {
		if slot.Name == field.Name {
			return
		}
	}
	self.problems.Insert(BadExpr{Message: fmt.Sprintf("undefined slot %s on self", quote(field.Name)), Ranges: field.Ranges})
}

// Names in a compound projection body come from the projected value, which
// is only known at run time, so identifiers there are never flagged.
func (self *defRefAnalyser) walkOpen(scope *defRefScope, e CoreExpr) {
	switch e := e.(type) {
	case *CoreIdentifier:
		return
	case *CoreProjection:
		if e.Base {
			self.checkSelfSlot(scope, e)
			return
		}
		self.walkOpen(scope, e.Object)
		self.walkOpen(scope, e.Body)
	case *CoreObject:
		inner := &defRefScope{outer: scope, names: map[string]bool{}, object: e}
		for _, slot := range e.Slots {
			self.walkOpen(inner, slot.Value)
		}
	default:
		eachChild(e, func(child CoreExpr) { self.walkOpen(scope, child) })
	}
}
