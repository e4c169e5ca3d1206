package banjo

import (
	"strings"
)

// Layout preserving parse tree produced by the parser.
type SourceExpr interface {
	SourceRange() SourceRange
	sourceExpr()
}

// Group Kinds
const (
	GROUP_PAREN   = "()"
	GROUP_BRACKET = "[]"
	GROUP_BRACE   = "{}"
	GROUP_BLOCK   = "block" // Indentation delimited, including a whole file.
)

type SourceNumber struct {
	Range   SourceRange
	Literal string
	Value   float64
	Unit    string
}

type SourceString struct {
	Range   SourceRange
	Literal string
	Value   string
}

type SourceIdentifier struct {
	Range SourceRange
	Name  string
}

type SourceEllipsis struct {
	Range SourceRange
}

type SourceUnary struct {
	Range         SourceRange
	Operator      Operator
	OperatorRange SourceRange
	Operand       SourceExpr
}

type SourceBinary struct {
	Range         SourceRange
	Operator      Operator
	OperatorRange SourceRange
	Left          SourceExpr
	Right         SourceExpr
}

type SourceCall struct {
	Range     SourceRange
	Target    SourceExpr
	Arguments SourceExpr // *SourceGroup, or *SourceBad when unclosed.
}

type SourceGroup struct {
	Range     SourceRange
	Kind      string
	Items     []SourceExpr
	Separated bool // Items were separated by a comma or semicolon.
}

type SourceLet struct {
	Range    SourceRange
	Bindings []SourceExpr
	Body     SourceExpr
}

type SourceIf struct {
	Range     SourceRange
	Condition SourceExpr
	Then      SourceExpr
	Else      SourceExpr
}

type SourceBad struct {
	Range   SourceRange
	Message string
}

func (self *SourceNumber) SourceRange() SourceRange     { return self.Range }
func (self *SourceString) SourceRange() SourceRange     { return self.Range }
func (self *SourceIdentifier) SourceRange() SourceRange { return self.Range }
func (self *SourceEllipsis) SourceRange() SourceRange   { return self.Range }
func (self *SourceUnary) SourceRange() SourceRange      { return self.Range }
func (self *SourceBinary) SourceRange() SourceRange     { return self.Range }
func (self *SourceCall) SourceRange() SourceRange       { return self.Range }
func (self *SourceGroup) SourceRange() SourceRange      { return self.Range }
func (self *SourceLet) SourceRange() SourceRange        { return self.Range }
func (self *SourceIf) SourceRange() SourceRange         { return self.Range }
func (self *SourceBad) SourceRange() SourceRange        { return self.Range }

func (self *SourceNumber) sourceExpr()     {}
func (self *SourceString) sourceExpr()     {}
func (self *SourceIdentifier) sourceExpr() {}
func (self *SourceEllipsis) sourceExpr()   {}
func (self *SourceUnary) sourceExpr()      {}
func (self *SourceBinary) sourceExpr()     {}
func (self *SourceCall) sourceExpr()       {}
func (self *SourceGroup) sourceExpr()      {}
func (self *SourceLet) sourceExpr()        {}
func (self *SourceIf) sourceExpr()         {}
func (self *SourceBad) sourceExpr()        {}

func (self *SourceBad) Problem() BadExpr {
	return NewBadExpr(self.Message, self.Range)
}

func isSourceOperator(e SourceExpr, name string) (*SourceBinary, bool) {
	binary, ok := e.(*SourceBinary)
	if !ok || binary.Operator.Name != name {
		return nil, false
	}
	return binary, true
}

// Slot definitions and local bindings only make sense as block items.
func isDefinition(e SourceExpr) bool {
	if _, ok := isSourceOperator(e, OP_SLOT); ok {
		return true
	}
	_, ok := isSourceOperator(e, OP_BIND)
	return ok
}

// Prints a tree back to text that parses to an equivalent tree. A block at the
// root is printed one item per line; nested blocks are printed as
// parenthesized sequences, which desugar the same way.
func FormatSource(e SourceExpr) string {
	if group, ok := e.(*SourceGroup); ok && group.Kind == GROUP_BLOCK {
		lines := make([]string, len(group.Items))
		for i, item := range group.Items {
			lines[i] = formatSource(item, precLowest)
		}
		return strings.Join(lines, "\n")
	}
	return formatSource(e, precLowest)
}

func formatSourceItems(items []SourceExpr) string {
	s := make([]string, len(items))
	for i, item := range items {
		s[i] = formatSource(item, precLowest)
	}
	return strings.Join(s, ", ")
}

func parenthesize(s string, needed bool) string {
	if needed {
		return "(" + s + ")"
	}
	return s
}

func formatSource(e SourceExpr, minPrec int) string {
	switch e := e.(type) {
	case *SourceNumber:
		return e.Literal
	case *SourceString:
		return e.Literal
	case *SourceIdentifier:
		return e.Name
	case *SourceEllipsis:
		return "..."
	case *SourceBad:
		return "..."
	case *SourceUnary:
		operand := formatSource(e.Operand, precPrefix)
		if _, ok := e.Operand.(*SourceUnary); ok {
			operand = "(" + operand + ")"
		}
		return parenthesize(e.Operator.Symbol+operand, minPrec > precPrefix)
	case *SourceBinary:
		prec := e.Operator.Precedence
		if e.Operator.Name == OP_PROJECTION {
			left := formatSource(e.Left, precPostfix)
			right := formatSource(e.Right, precPostfix)
			if group, ok := e.Right.(*SourceGroup); ok && group.Kind != GROUP_PAREN {
				right = "(" + formatSource(e.Right, precLowest) + ")"
			}
			return parenthesize(left+"."+right, minPrec > precPostfix)
		}
		leftPrec, rightPrec := prec, prec+1
		if e.Operator.Right {
			leftPrec, rightPrec = prec+1, prec
		}
		left := formatSource(e.Left, leftPrec)
		right := formatSource(e.Right, rightPrec)
		text := left + " " + e.Operator.Symbol + " " + right
		if e.Operator.Name == OP_SLOT {
			text = left + e.Operator.Symbol + " " + right
		}
		return parenthesize(text, minPrec > prec)
	case *SourceCall:
		target := formatSource(e.Target, precPostfix)
		return target + formatSource(e.Arguments, precPostfix)
	case *SourceGroup:
		switch e.Kind {
		case GROUP_BRACKET:
			return "[" + formatSourceItems(e.Items) + "]"
		case GROUP_BRACE:
			return "{" + formatSourceItems(e.Items) + "}"
		case GROUP_BLOCK:
			if len(e.Items) == 1 && !isDefinition(e.Items[0]) {
				return formatSource(e.Items[0], minPrec)
			}
		}
		return "(" + formatSourceItems(e.Items) + ")"
	case *SourceLet:
		text := "let " + formatSourceItems(e.Bindings) + " in " + formatSource(e.Body, precLowest)
		return parenthesize(text, minPrec > precLowest)
	case *SourceIf:
		text := "if " + formatSource(e.Condition, precLowest) +
			" then " + formatSource(e.Then, precLowest) +
			" else " + formatSource(e.Else, precLowest)
		return parenthesize(text, minPrec > precLowest)
	}
	panic("unreachable")
}
