package banjo

import (
	"context"
	"fmt"
)

const (
	DefaultMaxDepth  = 10000
	cancelCheckSteps = 256
)

type TraceElement struct {
	Ranges SourceRanges
	Name   string // Slot or function name of the call.
}

// Evaluation state threaded through every step: cancellation, the nesting
// limit and the calls in progress, which are recorded into fails.
type Trace struct {
	ctx      *Context
	cancel   context.Context
	maxDepth int
	depth    int
	steps    int
	frames   []TraceElement
}

func NewTrace(ctx *Context, cancel context.Context) *Trace {
	return &Trace{ctx: ctx, cancel: cancel, maxDepth: DefaultMaxDepth}
}

func (self *Trace) WithMaxDepth(depth int) *Trace {
	self.maxDepth = depth
	return self
}

func (self *Trace) Context() *Context {
	return self.ctx
}

func (self *Trace) Fail(kind string, message string) *Fail {
	frames := make([]TraceElement, len(self.frames))
	copy(frames, self.frames)
	return &Fail{Kind: kind, Message: message, Trace: frames}
}

func (self *Trace) enter() *Fail {
	self.steps += 1
	if self.steps%cancelCheckSteps == 0 && self.cancel != nil && self.cancel.Err() != nil {
		return self.Fail(FAIL_CANCELLED, "evaluation cancelled")
	}
	if self.depth >= self.maxDepth {
		return self.Fail(FAIL_TOO_DEEP, "evaluation is nested too deeply")
	}
	self.depth += 1
	return nil
}

func (self *Trace) leave() {
	self.depth -= 1
}

func (self *Trace) push(ranges SourceRanges, name string) {
	self.frames = append(self.frames, TraceElement{Ranges: ranges, Name: name})
}

func (self *Trace) pop() {
	self.frames = self.frames[:len(self.frames)-1]
}

func Eval(trace *Trace, env *Environment, expr CoreExpr) Value {
	if fail := trace.enter(); fail != nil {
		return fail
	}
	defer trace.leave()

	ctx := trace.ctx
	switch expr := expr.(type) {
	case *CoreIdentifier:
		return env.Get(trace, expr.Name)
	case *CoreLiteral:
		switch expr.Kind {
		case LITERAL_NUMBER:
			return ctx.NewNumberWithUnit(expr.Number, expr.Unit)
		case LITERAL_STRING:
			return ctx.NewString(expr.Text)
		}
		return trace.Fail(FAIL_NOT_IMPLEMENTED, "not implemented")
	case *CoreCall:
		target := Eval(trace, env, expr.Target)
		if _, ok := IsFail(target); ok {
			return target
		}
		arguments := make([]Value, len(expr.Arguments))
		for i, argument := range expr.Arguments {
			arguments[i] = Eval(trace, env, argument)
			if _, ok := IsFail(arguments[i]); ok {
				return arguments[i]
			}
		}
		trace.push(expr.Ranges, expr.Method)
		defer trace.pop()
		return CallMethod(trace, target, expr.Method, arguments)
	case *CoreLet:
		return Eval(trace, letEnvironment(env, expr), expr.Body)
	case *CoreProjection:
		return evalProjection(trace, env, expr)
	case *CoreObject:
		return newObject(env, expr)
	case *CoreList:
		elements := make([]Value, len(expr.Elements))
		for i, element := range expr.Elements {
			elements[i] = Eval(trace, env, element)
			if _, ok := IsFail(elements[i]); ok {
				return elements[i]
			}
		}
		return ctx.NewList(elements)
	case *CoreFunction:
		return &Function{parameters: expr.Parameters, body: expr.Body, env: env}
	case *CoreBad:
		return trace.Fail(FAIL_BAD_EXPRESSION, expr.Message)
	}
	panic("unreachable")
}

// Bindings may refer to each other, so each is deferred in the new scope.
func letEnvironment(env *Environment, expr *CoreLet) *Environment {
	child := NewEnvironment(env)
	for _, binding := range expr.Bindings {
		if binding.Name == "" {
			continue
		}
		child.Defer(binding.Name, binding.Value, child)
	}
	return child
}

func evalProjection(trace *Trace, env *Environment, expr *CoreProjection) Value {
	var object Value
	if expr.Base {
		object = env.Get(trace, "self")
		if fail, ok := IsFail(object); ok && fail.Kind == FAIL_UNRESOLVED {
			return trace.Fail(FAIL_UNRESOLVED, fmt.Sprintf("%s used outside of an object", quote("self")))
		}
	} else {
		object = Eval(trace, env, expr.Object)
	}
	if _, ok := IsFail(object); ok {
		return object
	}

	if field, ok := expr.Body.(*CoreIdentifier); ok {
		return object.Slot(trace, field.Name)
	}
	return Eval(trace, projectedEnvironment(trace, object, env), expr.Body)
}

// Looks up method on target and applies it to the arguments.
func CallMethod(trace *Trace, target Value, method string, arguments []Value) Value {
	callee := target.Slot(trace, method)
	if _, ok := IsFail(callee); ok {
		return callee
	}
	return Apply(trace, callee, arguments)
}

func Apply(trace *Trace, callee Value, arguments []Value) Value {
	switch callee := callee.(type) {
	case *Function:
		if len(arguments) != len(callee.parameters) {
			return trace.Fail(FAIL_ARITY, fmt.Sprintf("expected %d argument(s), received %d", len(callee.parameters), len(arguments)))
		}
		env := NewEnvironment(callee.env)
		for i, parameter := range callee.parameters {
			env.Let(parameter, arguments[i])
		}
		return Eval(trace, env, callee.body)
	case *Builtin:
		if callee.arity >= 0 && len(arguments) != callee.arity {
			return trace.Fail(FAIL_ARITY, fmt.Sprintf("%s expected %d argument(s), received %d", quote(callee.name), callee.arity, len(arguments)))
		}
		return callee.call(trace, callee.receiver, arguments)
	case *Fail:
		return callee
	}
	if len(arguments) == 0 {
		// A plain value slot used as a method with no arguments.
		return callee
	}
	return CallMethod(trace, callee, OP_CALL, arguments)
}
