package banjo

import (
	"fmt"
	"strconv"
	"strings"
)

func formatNumber(value float64, unit string) string {
	return strconv.FormatFloat(value, 'g', -1, 64) + unit
}

func formatCoreList(elements []CoreExpr) string {
	s := make([]string, len(elements))
	for i, element := range elements {
		s[i] = formatCore(element, precLowest)
	}
	return strings.Join(s, ", ")
}

func formatCoreSlots(slots []CoreSlot, separator string) string {
	s := make([]string, len(slots))
	for i, slot := range slots {
		if function, ok := slot.Value.(*CoreFunction); ok && separator == ":" && slot.Name != "" {
			s[i] = fmt.Sprintf("%s(%s): %s", slot.Name, strings.Join(function.Parameters, ", "), formatCore(function.Body, precDefinition))
			continue
		}
		if separator == ":" {
			s[i] = fmt.Sprintf("%s: %s", slot.Name, formatCore(slot.Value, precDefinition))
		} else {
			s[i] = fmt.Sprintf("%s = %s", slot.Name, formatCore(slot.Value, precDefinition))
		}
	}
	return strings.Join(s, ", ")
}

// Zero parameter function wrapping a lazily evaluated operand.
func lazyOperand(e CoreExpr) (CoreExpr, bool) {
	function, ok := e.(*CoreFunction)
	if !ok || len(function.Parameters) != 0 {
		return nil, false
	}
	return function.Body, true
}

// Prints a core tree using surface syntax.
func FormatCore(e CoreExpr) string {
	return formatCore(e, precLowest)
}

func formatCore(e CoreExpr, minPrec int) string {
	switch e := e.(type) {
	case *CoreIdentifier:
		return e.Name
	case *CoreLiteral:
		switch e.Kind {
		case LITERAL_NUMBER:
			return formatNumber(e.Number, e.Unit)
		case LITERAL_STRING:
			return fmt.Sprintf("\"%s\"", escape(e.Text))
		}
		return "..."
	case *CoreCall:
		return formatCoreCall(e, minPrec)
	case *CoreLet:
		text := "let " + formatCoreSlots(e.Bindings, "=") + " in " + formatCore(e.Body, precLowest)
		return parenthesize(text, minPrec > precLowest)
	case *CoreProjection:
		var object string
		if e.Base {
			object = "self"
		} else {
			object = formatCore(e.Object, precPostfix)
		}
		if identifier, ok := e.Body.(*CoreIdentifier); ok {
			return object + "." + identifier.Name
		}
		return object + ".(" + formatCore(e.Body, precLowest) + ")"
	case *CoreObject:
		return "{" + formatCoreSlots(e.Slots, ":") + "}"
	case *CoreList:
		return "[" + formatCoreList(e.Elements) + "]"
	case *CoreFunction:
		text := "(" + strings.Join(e.Parameters, ", ") + ") ↦ " + formatCore(e.Body, precFunction)
		return parenthesize(text, minPrec > precFunction)
	case *CoreBad:
		return "..."
	}
	panic("unreachable")
}

func formatCoreCall(e *CoreCall, minPrec int) string {
	switch {
	case e.Method == OP_CALL:
		return formatCore(e.Target, precPostfix) + "(" + formatCoreList(e.Arguments) + ")"
	case len(e.Arguments) == 0 && (e.Method == OP_NEGATE || e.Method == OP_NOT):
		operand := formatCore(e.Target, precPrefix)
		if call, ok := e.Target.(*CoreCall); ok && len(call.Arguments) == 0 && prefixOperators[call.Method].Name != "" {
			operand = "(" + operand + ")"
		}
		return parenthesize(e.Method+operand, minPrec > precPrefix)
	case len(e.Arguments) == 1 && (e.Method == OP_AND || e.Method == OP_OR):
		if operand, ok := lazyOperand(e.Arguments[0]); ok {
			prec := precAnd
			if e.Method == OP_OR {
				prec = precOr
			}
			text := formatCore(e.Target, prec) + " " + e.Method + " " + formatCore(operand, prec+1)
			return parenthesize(text, minPrec > prec)
		}
	case len(e.Arguments) == 2 && e.Method == OP_IF:
		then, thenOk := lazyOperand(e.Arguments[0])
		otherwise, elseOk := lazyOperand(e.Arguments[1])
		if thenOk && elseOk {
			text := "if " + formatCore(e.Target, precLowest) + " then " + formatCore(then, precLowest) +
				" else " + formatCore(otherwise, precLowest)
			return parenthesize(text, minPrec > precLowest)
		}
	case len(e.Arguments) == 1:
		if prec, ok := slotPrecedence(e.Method); ok {
			op := infixOperators[e.Method]
			leftPrec, rightPrec := prec, prec+1
			if op.Right {
				leftPrec, rightPrec = prec+1, prec
			}
			text := formatCore(e.Target, leftPrec) + " " + e.Method + " " + formatCore(e.Arguments[0], rightPrec)
			return parenthesize(text, minPrec > prec)
		}
	}
	return formatCore(e.Target, precPostfix) + "." + e.Method + "(" + formatCoreList(e.Arguments) + ")"
}

// Canonical serialization of a core tree, ranges included. Two trees have the
// same key exactly when they are the same interned node.
func CoreKey(e CoreExpr) string {
	var sb strings.Builder
	writeCoreKey(&sb, e)
	return sb.String()
}

func writeCoreKeySlots(sb *strings.Builder, slots []CoreSlot) {
	for _, slot := range slots {
		sb.WriteString(" ")
		sb.WriteString(strconv.Quote(slot.Name))
		sb.WriteString("=")
		writeCoreKey(sb, slot.Value)
	}
}

func writeCoreKey(sb *strings.Builder, e CoreExpr) {
	if e == nil {
		sb.WriteString("nil")
		return
	}
	sb.WriteString("(")
	switch e := e.(type) {
	case *CoreIdentifier:
		sb.WriteString("identifier " + strconv.Quote(e.Name))
	case *CoreLiteral:
		switch e.Kind {
		case LITERAL_NUMBER:
			sb.WriteString("number " + strconv.FormatFloat(e.Number, 'g', -1, 64) + " " + strconv.Quote(e.Unit))
		case LITERAL_STRING:
			sb.WriteString("string " + strconv.Quote(e.Text))
		default:
			sb.WriteString("ellipsis")
		}
	case *CoreCall:
		sb.WriteString("call " + strconv.Quote(e.Method) + " ")
		writeCoreKey(sb, e.Target)
		for _, argument := range e.Arguments {
			sb.WriteString(" ")
			writeCoreKey(sb, argument)
		}
	case *CoreLet:
		sb.WriteString("let")
		writeCoreKeySlots(sb, e.Bindings)
		sb.WriteString(" ")
		writeCoreKey(sb, e.Body)
	case *CoreProjection:
		if e.Base {
			sb.WriteString("base ")
		} else {
			sb.WriteString("projection ")
			writeCoreKey(sb, e.Object)
			sb.WriteString(" ")
		}
		writeCoreKey(sb, e.Body)
	case *CoreObject:
		sb.WriteString("object")
		writeCoreKeySlots(sb, e.Slots)
	case *CoreList:
		sb.WriteString("list")
		for _, element := range e.Elements {
			sb.WriteString(" ")
			writeCoreKey(sb, element)
		}
	case *CoreFunction:
		sb.WriteString("function")
		for _, parameter := range e.Parameters {
			sb.WriteString(" " + strconv.Quote(parameter))
		}
		sb.WriteString(" ")
		writeCoreKey(sb, e.Body)
	case *CoreBad:
		sb.WriteString("bad " + strconv.Quote(e.Message))
	}
	sb.WriteString(" @" + e.SourceRanges().String() + ")")
}

// Total order over core trees, consistent with interning: CompareCore(a, b)
// is zero exactly when a == b.
func CompareCore(a, b CoreExpr) int {
	if a == b {
		return 0
	}
	return strings.Compare(CoreKey(a), CoreKey(b))
}
