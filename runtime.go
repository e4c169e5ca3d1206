package banjo

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

type method struct {
	arity int // Negative for any number of arguments.
	call  BuiltinFunc
}

// Method tables are filled in by init since the methods reach back into the
// evaluator, which reads the tables.
var (
	commonMethods   map[string]method
	booleanMethods  map[string]method
	numberMethods   map[string]method
	stringMethods   map[string]method
	listMethods     map[string]method
	functionMethods map[string]method
	objectMethods   map[string]method
)

func lookupMethod(trace *Trace, receiver Value, methods map[string]method, name string) Value {
	m, ok := methods[name]
	if !ok {
		m, ok = commonMethods[name]
	}
	if !ok {
		return trace.Fail(FAIL_SLOT_NOT_FOUND, fmt.Sprintf("%s has no slot %s", receiver.Typename(), quote(name)))
	}
	return &Builtin{name: name, arity: m.arity, receiver: receiver, call: m.call}
}

func methodTable(v Value) map[string]method {
	switch v.(type) {
	case *Boolean:
		return booleanMethods
	case *Number:
		return numberMethods
	case *String:
		return stringMethods
	case *List:
		return listMethods
	case *Function, *Builtin:
		return functionMethods
	case *Object:
		return objectMethods
	}
	return nil
}

// Names of the builtin methods of v, sorted.
func methodNames(v Value) []string {
	seen := map[string]bool{}
	for name := range methodTable(v) {
		seen[name] = true
	}
	for name := range commonMethods {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func typeFail(trace *Trace, format string, args ...any) *Fail {
	return trace.Fail(FAIL_TYPE, fmt.Sprintf(format, args...))
}

func numberArgument(trace *Trace, name string, v Value) (*Number, *Fail) {
	n, ok := v.(*Number)
	if !ok {
		return nil, typeFail(trace, "%s expected a number, received %s", quote(name), v.Typename())
	}
	return n, nil
}

func stringArgument(trace *Trace, name string, v Value) (*String, *Fail) {
	s, ok := v.(*String)
	if !ok {
		return nil, typeFail(trace, "%s expected a string, received %s", quote(name), v.Typename())
	}
	return s, nil
}

func listArgument(trace *Trace, name string, v Value) (*List, *Fail) {
	l, ok := v.(*List)
	if !ok {
		return nil, typeFail(trace, "%s expected a list, received %s", quote(name), v.Typename())
	}
	return l, nil
}

// Unit of the result of adding or subtracting two numbers.
func additiveUnit(a, b *Number) (string, bool) {
	switch {
	case a.unit == b.unit:
		return a.unit, true
	case a.unit == "":
		return b.unit, true
	case b.unit == "":
		return a.unit, true
	}
	return "", false
}

func arithmetic(name string, apply func(a, b float64) float64, unit func(a, b *Number) (string, bool)) method {
	return method{1, func(trace *Trace, receiver Value, arguments []Value) Value {
		a := receiver.(*Number)
		b, fail := numberArgument(trace, name, arguments[0])
		if fail != nil {
			return fail
		}
		u, ok := unit(a, b)
		if !ok {
			return typeFail(trace, "incompatible units in %s %s %s", a, name, b)
		}
		return trace.ctx.NewNumberWithUnit(apply(a.data, b.data), u)
	}}
}

func numberComparison(name string, compare func(a, b float64) bool) method {
	return method{1, func(trace *Trace, receiver Value, arguments []Value) Value {
		a := receiver.(*Number)
		b, fail := numberArgument(trace, name, arguments[0])
		if fail != nil {
			return fail
		}
		if a.unit != b.unit {
			return typeFail(trace, "incompatible units in %s %s %s", a, name, b)
		}
		return trace.ctx.NewBoolean(compare(a.data, b.data))
	}}
}

func numberFunction(apply func(float64) float64) method {
	return method{0, func(trace *Trace, receiver Value, arguments []Value) Value {
		a := receiver.(*Number)
		return trace.ctx.NewNumberWithUnit(apply(a.data), a.unit)
	}}
}

func stringComparison(name string, compare func(a, b string) bool) method {
	return method{1, func(trace *Trace, receiver Value, arguments []Value) Value {
		a := receiver.(*String)
		b, fail := stringArgument(trace, name, arguments[0])
		if fail != nil {
			return fail
		}
		return trace.ctx.NewBoolean(compare(a.data, b.data))
	}}
}

func stringConcat(name string) method {
	return method{1, func(trace *Trace, receiver Value, arguments []Value) Value {
		a := receiver.(*String)
		b, fail := stringArgument(trace, name, arguments[0])
		if fail != nil {
			return fail
		}
		return trace.ctx.NewString(a.data + b.data)
	}}
}

func toString(v Value) string {
	if s, ok := v.(*String); ok {
		return s.data
	}
	return v.String()
}

func init() {
	commonMethods = map[string]method{
		"==": {1, func(trace *Trace, receiver Value, arguments []Value) Value {
			return trace.ctx.NewBoolean(receiver.Equal(arguments[0]))
		}},
		"!=": {1, func(trace *Trace, receiver Value, arguments []Value) Value {
			return trace.ctx.NewBoolean(!receiver.Equal(arguments[0]))
		}},
		"toString": {0, func(trace *Trace, receiver Value, arguments []Value) Value {
			return trace.ctx.NewString(toString(receiver))
		}},
	}

	booleanMethods = map[string]method{
		OP_NOT: {0, func(trace *Trace, receiver Value, arguments []Value) Value {
			return trace.ctx.NewBoolean(!receiver.(*Boolean).data)
		}},
		// The right operand arrives as a function so it is only evaluated
		// when needed.
		OP_AND: {1, func(trace *Trace, receiver Value, arguments []Value) Value {
			if !receiver.(*Boolean).data {
				return receiver
			}
			return Apply(trace, arguments[0], nil)
		}},
		OP_OR: {1, func(trace *Trace, receiver Value, arguments []Value) Value {
			if receiver.(*Boolean).data {
				return receiver
			}
			return Apply(trace, arguments[0], nil)
		}},
		OP_IF: {2, func(trace *Trace, receiver Value, arguments []Value) Value {
			if receiver.(*Boolean).data {
				return Apply(trace, arguments[0], nil)
			}
			return Apply(trace, arguments[1], nil)
		}},
	}

	numberMethods = map[string]method{
		"+": arithmetic("+", func(a, b float64) float64 { return a + b }, additiveUnit),
		"*": arithmetic("*", func(a, b float64) float64 { return a * b }, func(a, b *Number) (string, bool) {
			if a.unit != "" && b.unit != "" {
				return "", false
			}
			return a.unit + b.unit, true
		}),
		"/": arithmetic("/", func(a, b float64) float64 { return a / b }, func(a, b *Number) (string, bool) {
			switch {
			case a.unit == b.unit:
				return "", true
			case b.unit == "":
				return a.unit, true
			}
			return "", false
		}),
		"%": arithmetic("%", math.Mod, additiveUnit),
		"^": arithmetic("^", math.Pow, func(a, b *Number) (string, bool) {
			return "", a.unit == "" && b.unit == ""
		}),
		"<":  numberComparison("<", func(a, b float64) bool { return a < b }),
		"<=": numberComparison("<=", func(a, b float64) bool { return a <= b }),
		">":  numberComparison(">", func(a, b float64) bool { return a > b }),
		">=": numberComparison(">=", func(a, b float64) bool { return a >= b }),
		// Negation with no argument, subtraction with one.
		"-": {-1, func(trace *Trace, receiver Value, arguments []Value) Value {
			a := receiver.(*Number)
			switch len(arguments) {
			case 0:
				return trace.ctx.NewNumberWithUnit(-a.data, a.unit)
			case 1:
				subtract := arithmetic("-", func(a, b float64) float64 { return a - b }, additiveUnit)
				return subtract.call(trace, receiver, arguments)
			}
			return trace.Fail(FAIL_ARITY, fmt.Sprintf("%s expected at most 1 argument, received %d", quote("-"), len(arguments)))
		}},
		"abs":   numberFunction(math.Abs),
		"floor": numberFunction(math.Floor),
		"ceil":  numberFunction(math.Ceil),
		"round": numberFunction(math.Round),
		"sqrt":  numberFunction(math.Sqrt),
		"min":   arithmetic("min", math.Min, additiveUnit),
		"max":   arithmetic("max", math.Max, additiveUnit),
	}

	stringMethods = map[string]method{
		"+":  stringConcat("+"),
		"++": stringConcat("++"),
		"<":  stringComparison("<", func(a, b string) bool { return a < b }),
		"<=": stringComparison("<=", func(a, b string) bool { return a <= b }),
		">":  stringComparison(">", func(a, b string) bool { return a > b }),
		">=": stringComparison(">=", func(a, b string) bool { return a >= b }),
		"length": {0, func(trace *Trace, receiver Value, arguments []Value) Value {
			return trace.ctx.NewNumber(float64(len([]rune(receiver.(*String).data))))
		}},
		"upper": {0, func(trace *Trace, receiver Value, arguments []Value) Value {
			return trace.ctx.NewString(strings.ToUpper(receiver.(*String).data))
		}},
		"lower": {0, func(trace *Trace, receiver Value, arguments []Value) Value {
			return trace.ctx.NewString(strings.ToLower(receiver.(*String).data))
		}},
		"contains": {1, func(trace *Trace, receiver Value, arguments []Value) Value {
			s, fail := stringArgument(trace, "contains", arguments[0])
			if fail != nil {
				return fail
			}
			return trace.ctx.NewBoolean(strings.Contains(receiver.(*String).data, s.data))
		}},
	}

	listMethods = map[string]method{
		"++": {1, func(trace *Trace, receiver Value, arguments []Value) Value {
			other, fail := listArgument(trace, "++", arguments[0])
			if fail != nil {
				return fail
			}
			elements := append(append([]Value{}, receiver.(*List).elements...), other.elements...)
			return trace.ctx.NewList(elements)
		}},
		"length": {0, func(trace *Trace, receiver Value, arguments []Value) Value {
			return trace.ctx.NewNumber(float64(receiver.(*List).Count()))
		}},
		"get": {1, func(trace *Trace, receiver Value, arguments []Value) Value {
			list := receiver.(*List)
			index, fail := numberArgument(trace, "get", arguments[0])
			if fail != nil {
				return fail
			}
			i := int(index.data)
			if float64(i) != index.data || i < 0 || i >= list.Count() {
				return trace.Fail(FAIL_FAILURE, fmt.Sprintf("index %s is out of range for a list of length %d", index, list.Count()))
			}
			return list.elements[i]
		}},
		"map": {1, func(trace *Trace, receiver Value, arguments []Value) Value {
			list := receiver.(*List)
			elements := make([]Value, len(list.elements))
			for i, element := range list.elements {
				elements[i] = Apply(trace, arguments[0], []Value{element})
				if _, ok := IsFail(elements[i]); ok {
					return elements[i]
				}
			}
			return trace.ctx.NewList(elements)
		}},
		"filter": {1, func(trace *Trace, receiver Value, arguments []Value) Value {
			var elements []Value
			for _, element := range receiver.(*List).elements {
				keep := Apply(trace, arguments[0], []Value{element})
				if _, ok := IsFail(keep); ok {
					return keep
				}
				if Truthy(trace, keep) {
					elements = append(elements, element)
				}
			}
			return trace.ctx.NewList(elements)
		}},
		"fold": {2, func(trace *Trace, receiver Value, arguments []Value) Value {
			accumulator := arguments[0]
			for _, element := range receiver.(*List).elements {
				accumulator = Apply(trace, arguments[1], []Value{accumulator, element})
				if _, ok := IsFail(accumulator); ok {
					return accumulator
				}
			}
			return accumulator
		}},
		"contains": {1, func(trace *Trace, receiver Value, arguments []Value) Value {
			for _, element := range receiver.(*List).elements {
				if element.Equal(arguments[0]) {
					return trace.ctx.True
				}
			}
			return trace.ctx.False
		}},
	}

	functionMethods = map[string]method{
		OP_CALL: {-1, func(trace *Trace, receiver Value, arguments []Value) Value {
			return Apply(trace, receiver, arguments)
		}},
	}

	objectMethods = map[string]method{}
}

func newBaseEnvironment(ctx *Context) *Environment {
	env := NewEnvironment(nil)
	env.Let("true", ctx.True)
	env.Let("false", ctx.False)
	env.Let("fail", ctx.NewBuiltin("fail", 1, func(trace *Trace, receiver Value, arguments []Value) Value {
		return trace.Fail(FAIL_FAILURE, toString(arguments[0]))
	}))
	return env
}

// Names bound by the runtime in every program.
func RuntimeBindings(ctx *Context) []Binding {
	names := ctx.BaseEnvironment.Names()
	bindings := make([]Binding, len(names))
	for i, name := range names {
		bindings[i] = Binding{Name: name}
	}
	return bindings
}
