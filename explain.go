package banjo

import (
	"fmt"
)

// Describes why test did not evaluate to true in env. The explanation follows
// the shape of the expression: comparisons report both sides, conjunctions
// the false side, calls their first failing part; anything else falls back
// to a generic message.
func ExplainFailure(trace *Trace, env *Environment, test CoreExpr) string {
	return explain(trace, env, test)
}

func failMessage(v Value) (string, bool) {
	if fail, ok := IsFail(v); ok {
		return fail.Message, true
	}
	return "", false
}

func explain(trace *Trace, env *Environment, e CoreExpr) string {
	switch e := e.(type) {
	case *CoreCall:
		if message, ok := explainCall(trace, env, e); ok {
			return message
		}
	case *CoreLet:
		return explain(trace, letEnvironment(env, e), e.Body)
	case *CoreProjection:
		if !e.Base {
			object := Eval(trace, env, e.Object)
			if message, ok := failMessage(object); ok {
				return message
			}
			if _, ok := e.Body.(*CoreIdentifier); !ok {
				return explain(trace, projectedEnvironment(trace, object, env), e.Body)
			}
		}
	}

	if message, ok := failMessage(Eval(trace, env, e)); ok {
		return message
	}
	return fmt.Sprintf("%s is not true", quote(FormatCore(e)))
}

func explainCall(trace *Trace, env *Environment, e *CoreCall) (string, bool) {
	if negated, ok := comparisonNegations[e.Method]; ok && len(e.Arguments) == 1 {
		left := Eval(trace, env, e.Target)
		if message, ok := failMessage(left); ok {
			return message, true
		}
		right := Eval(trace, env, e.Arguments[0])
		if message, ok := failMessage(right); ok {
			return message, true
		}
		if message, ok := failMessage(CallMethod(trace, left, e.Method, []Value{right})); ok {
			return message, true
		}
		return fmt.Sprintf("%s %s %s since %s %s %s",
			FormatCore(e.Target), negated, FormatCore(e.Arguments[0]),
			left.String(), negated, right.String()), true
	}

	if e.Method == OP_AND && len(e.Arguments) == 1 {
		if operand, ok := lazyOperand(e.Arguments[0]); ok {
			left := Eval(trace, env, e.Target)
			if message, ok := failMessage(left); ok {
				return message, true
			}
			if !Truthy(trace, left) {
				return explain(trace, env, e.Target), true
			}
			return explain(trace, env, operand), true
		}
	}

	target := Eval(trace, env, e.Target)
	if message, ok := failMessage(target); ok {
		return message, true
	}
	for _, argument := range e.Arguments {
		if message, ok := failMessage(Eval(trace, env, argument)); ok {
			return message, true
		}
	}
	return "", false
}
