package banjo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, ctx *Context, source string) CoreExpr {
	parsed := Parse(ctx, source, "eval.bj")
	require.Empty(t, parsed.Problems, source)
	desugared := Desugar(ctx, parsed.Expr)
	require.Empty(t, desugared.Problems, source)
	return desugared.Expr
}

func eval(t *testing.T, source string) Value {
	ctx := NewContext()
	expr := compile(t, ctx, source)
	return Eval(NewTrace(ctx, context.Background()), ctx.BaseEnvironment, expr)
}

func TestEvalValues(t *testing.T) {
	tests := []struct {
		source string
		value  string
	}{
		{"let x = 2 in x", "2"},
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"2 ^ 3 ^ 2", "512"},
		{"7 % 4", "3"},
		{"-(1 + 2)", "-3"},
		{"10px + 5px", "15px"},
		{"10px * 2", "20px"},
		{"10px / 2px", "5"},
		{`"ab" ++ "cd"`, `"abcd"`},
		{`"abc".length()`, "3"},
		{`"abc".upper()`, `"ABC"`},
		{"[1, 2, 3].length()", "3"},
		{"[1, 2, 3].map(x -> x * 2)", "[2, 4, 6]"},
		{"[1, 2, 3, 4].filter(x -> x % 2 == 0)", "[2, 4]"},
		{"[1, 2, 3].fold(0, (a, b) -> a + b)", "6"},
		{"[1, 2] ++ [3]", "[1, 2, 3]"},
		{"[1, 2, 3].get(1)", "2"},
		{`if 1 < 2 then "yes" else "no"`, `"yes"`},
		{"true && false", "false"},
		{"false || true", "true"},
		{"!true", "false"},
		{"1 == 1 && 2 != 3", "true"},
		{"let f(x) = x + 1 in f(2)", "3"},
		{"let f = (x, y) -> x * y in f(3, 4)", "12"},
		{"{a: 1, b: 2}.b", "2"},
		{"{a: 1, b: self.a + 1}.b", "2"},
		{"{a: 1, b: 2}.(a + b)", "3"},
		{"let {a, b: c} = {a: 1, b: 2} in a + c", "3"},
		{"let a = 5 in {a}.a", "5"},
		{"3.7.floor()", "3"},
		{"2.max(5)", "5"},
		{"1.toString()", `"1"`},
		{"(4).sqrt()", "2"},
		{"2*-3", "-6"},
		{"1≠-1", "true"},
		{"!!true", "true"},
		{"{a:-1}.a", "-1"},
	}
	for _, test := range tests {
		value := eval(t, test.source)
		if fail, ok := IsFail(value); ok {
			t.Errorf("%s: unexpected fail %s", test.source, fail.Message)
			continue
		}
		assert.Equal(t, test.value, value.String(), test.source)
	}
}

func TestEvalLetBindingsSeeEachOther(t *testing.T) {
	value := eval(t, "let even(n) = if n == 0 then true else odd(n - 1), odd(n) = if n == 0 then false else even(n - 1) in even(10)")
	assert.Equal(t, "true", value.String())
}

func TestEvalLazyOperands(t *testing.T) {
	// The right operand would fail if it were evaluated.
	assert.Equal(t, "false", eval(t, "false && fail(\"boom\")").String())
	assert.Equal(t, "true", eval(t, "true || fail(\"boom\")").String())
	assert.Equal(t, "1", eval(t, "if true then 1 else fail(\"boom\")").String())
}

func TestEvalSlotsAreLazy(t *testing.T) {
	assert.Equal(t, "1", eval(t, "{a: 1, b: fail(\"never\")}.a").String())
}

func TestEvalFails(t *testing.T) {
	tests := []struct {
		source  string
		kind    string
		message string
	}{
		{"y", FAIL_UNRESOLVED, "unresolved reference `y`"},
		{"let x = x + 1 in x", FAIL_CYCLIC, "cyclic definition of `x`"},
		{"1 + \"a\"", FAIL_TYPE, "`+` expected a number, received string"},
		{"10px + 5em", FAIL_TYPE, "incompatible units in 10px + 5em"},
		{"1.nope", FAIL_SLOT_NOT_FOUND, "number has no slot `nope`"},
		{"{a: 1}.b", FAIL_SLOT_NOT_FOUND, "object has no slot `b`"},
		{"fail(\"boom\")", FAIL_FAILURE, "boom"},
		{"(x -> x)(1, 2)", FAIL_ARITY, "expected 1 argument(s), received 2"},
		{"[1].get(3)", FAIL_FAILURE, "index 3 is out of range for a list of length 1"},
		{"...", FAIL_NOT_IMPLEMENTED, "not implemented"},
	}
	for _, test := range tests {
		value := eval(t, test.source)
		fail, ok := IsFail(value)
		require.True(t, ok, "%s evaluated to %v", test.source, value)
		assert.Equal(t, test.kind, fail.Kind, test.source)
		assert.Equal(t, test.message, fail.Message, test.source)
	}
}

func TestEvalFailsPropagate(t *testing.T) {
	value := eval(t, "[1, y, 3].length()")
	fail, ok := IsFail(value)
	require.True(t, ok)
	assert.Equal(t, FAIL_UNRESOLVED, fail.Kind)
}

func TestEvalBadExpression(t *testing.T) {
	ctx := NewContext()
	parsed := Parse(ctx, "a: ()", "bad.bj")
	desugared := Desugar(ctx, parsed.Expr)
	require.NotEmpty(t, desugared.Problems)
	value := Eval(NewTrace(ctx, context.Background()), ctx.BaseEnvironment, desugared.Expr)
	object, ok := value.(*Object)
	require.True(t, ok)
	fail, ok := IsFail(object.Slot(NewTrace(ctx, context.Background()), "a"))
	require.True(t, ok)
	assert.Equal(t, FAIL_BAD_EXPRESSION, fail.Kind)
	assert.Equal(t, "empty parentheses", fail.Message)
}

func TestEvalTooDeep(t *testing.T) {
	ctx := NewContext()
	expr := compile(t, ctx, "let f(n) = f(n + 1) in f(0)")
	trace := NewTrace(ctx, context.Background()).WithMaxDepth(200)
	fail, ok := IsFail(Eval(trace, ctx.BaseEnvironment, expr))
	require.True(t, ok)
	assert.Equal(t, FAIL_TOO_DEEP, fail.Kind)
}

func TestEvalCancelled(t *testing.T) {
	ctx := NewContext()
	expr := compile(t, ctx, "let f(n) = f(n + 1) in f(0)")
	cancel, stop := context.WithCancel(context.Background())
	stop()
	fail, ok := IsFail(Eval(NewTrace(ctx, cancel), ctx.BaseEnvironment, expr))
	require.True(t, ok)
	assert.Equal(t, FAIL_CANCELLED, fail.Kind)
}

func TestEvalFailRecordsTrace(t *testing.T) {
	value := eval(t, "let f(x) = x + \"a\" in f(1)")
	fail, ok := IsFail(value)
	require.True(t, ok)
	var names []string
	for _, frame := range fail.Trace {
		names = append(names, frame.Name)
	}
	assert.Equal(t, []string{OP_CALL, "+"}, names)
}

func TestEnvironment(t *testing.T) {
	ctx := NewContext()
	outer := NewEnvironment(nil)
	outer.Let("a", ctx.NewNumber(1))
	inner := NewEnvironment(outer)
	inner.Let("b", ctx.NewNumber(2))
	inner.Let("a", ctx.NewNumber(3))

	trace := NewTrace(ctx, nil)
	assert.Equal(t, "3", inner.Get(trace, "a").String())
	assert.Equal(t, "1", outer.Get(trace, "a").String())
	assert.True(t, inner.Has("b"))
	assert.False(t, outer.Has("b"))
	assert.Equal(t, []string{"a", "b"}, inner.Names())
	assert.True(t, IsSlotNotFound(ctx.NewNumber(1).Slot(trace, "missing")))
}

func TestRuntimeBindings(t *testing.T) {
	ctx := NewContext()
	var names []string
	for _, binding := range RuntimeBindings(ctx) {
		names = append(names, binding.Name)
	}
	assert.Equal(t, []string{"fail", "false", "true"}, names)
}
