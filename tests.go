package banjo

import (
	"strings"
)

func isTestSlot(name string) bool {
	return name == "test" || name == "tests" || strings.HasPrefix(name, "test_")
}

func isExampleSlot(name string) bool {
	return name == "example" || name == "examples" || strings.HasPrefix(name, "example_")
}

// Closes an expression written inside some scope into one that evaluates in
// the base environment.
type scopeWrapper func(CoreExpr) CoreExpr

type testGatherer struct {
	ctx     *Context
	match   func(string) bool
	results []CoreExpr
}

// Returns every test in e. Each result is a projection whose object evaluates
// to the object holding the test, so it can run on its own.
func FindTests(ctx *Context, e CoreExpr) []CoreExpr {
	return gatherTests(ctx, e, isTestSlot)
}

func FindExamples(ctx *Context, e CoreExpr) []CoreExpr {
	return gatherTests(ctx, e, isExampleSlot)
}

func gatherTests(ctx *Context, e CoreExpr, match func(string) bool) []CoreExpr {
	self := &testGatherer{ctx: ctx, match: match}
	self.walk(func(e CoreExpr) CoreExpr { return e }, e)
	return self.results
}

// Removes the scope added by FindTests.
func StripScope(e CoreExpr) CoreExpr {
	if projection, ok := e.(*CoreProjection); ok && !projection.Base {
		return projection.Body
	}
	return e
}

func (self *testGatherer) walk(scope scopeWrapper, e CoreExpr) {
	switch e := e.(type) {
	case *CoreObject:
		object := scope(e)
		inner := func(body CoreExpr) CoreExpr {
			return self.ctx.NewCoreProjection(body.SourceRanges(), object, body)
		}
		for _, slot := range e.Slots {
			if slot.Name != "" && self.match(slot.Name) {
				self.collect(inner, slot.Value)
				continue
			}
			self.walk(inner, slot.Value)
		}
	case *CoreLet:
		inner := func(body CoreExpr) CoreExpr {
			return scope(self.ctx.NewCoreLet(e.Ranges, e.Bindings, body))
		}
		for _, binding := range e.Bindings {
			self.walk(inner, binding.Value)
		}
		self.walk(inner, e.Body)
	case *CoreProjection:
		if e.Base {
			return
		}
		self.walk(scope, e.Object)
		if _, ok := e.Body.(*CoreIdentifier); !ok {
			inner := func(body CoreExpr) CoreExpr {
				return scope(self.ctx.NewCoreProjection(e.Ranges, e.Object, body))
			}
			self.walk(inner, e.Body)
		}
	case *CoreFunction:
		// Parameters are unbound outside of a call.
		return
	default:
		eachChild(e, func(child CoreExpr) { self.walk(scope, child) })
	}
}

func (self *testGatherer) collect(scope scopeWrapper, value CoreExpr) {
	if list, ok := value.(*CoreList); ok {
		for _, element := range list.Elements {
			self.results = append(self.results, scope(element))
		}
		return
	}
	self.results = append(self.results, scope(value))
}
