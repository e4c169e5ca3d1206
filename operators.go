package banjo

// Precedence levels, ordered from lowest to highest.
const (
	precLowest = iota
	precDefinition // : =
	precFunction   // ↦ ->
	precOr         // || ∨
	precAnd        // && ∧
	precCompare    // == != < <= > >=
	precSum        // + - ++
	precProduct    // * / % × ÷
	precPower      // ^
	precPrefix     // -x !x ¬x
	precPostfix    // f(x) a.b
)

// Canonical names of the operators that desugar into something other than a
// slot call.
const (
	OP_SLOT       = ":"
	OP_BIND       = "="
	OP_FUNCTION   = "↦"
	OP_AND        = "&&"
	OP_OR         = "||"
	OP_PROJECTION = "."
	OP_CALL       = "()"
	OP_NOT        = "!"
	OP_NEGATE     = "-"
	OP_IF         = "if"
)

type Operator struct {
	Symbol     string // As written in the source.
	Name       string // Canonical name, also the slot name for slot operators.
	Precedence int
	Right      bool // Right associative.
}

func infix(name string, precedence int, right bool, symbols ...string) []Operator {
	result := make([]Operator, len(symbols))
	for i, symbol := range symbols {
		result[i] = Operator{Symbol: symbol, Name: name, Precedence: precedence, Right: right}
	}
	return result
}

var infixOperators = func() map[string]Operator {
	table := [][]Operator{
		infix(OP_SLOT, precDefinition, true, ":"),
		infix(OP_BIND, precDefinition, true, "="),
		infix(OP_FUNCTION, precFunction, true, "↦", "->", "=>", "⇒", "→"),
		infix(OP_OR, precOr, false, "||", "∨"),
		infix(OP_AND, precAnd, false, "&&", "∧"),
		infix("==", precCompare, false, "=="),
		infix("!=", precCompare, false, "!=", "≠"),
		infix("<", precCompare, false, "<"),
		infix("<=", precCompare, false, "<=", "≤"),
		infix(">", precCompare, false, ">"),
		infix(">=", precCompare, false, ">=", "≥"),
		infix("+", precSum, false, "+"),
		infix("-", precSum, false, "-"),
		infix("++", precSum, false, "++"),
		infix("*", precProduct, false, "*", "×"),
		infix("/", precProduct, false, "/", "÷"),
		infix("%", precProduct, false, "%"),
		infix("^", precPower, true, "^"),
		infix(OP_PROJECTION, precPostfix, false, "."),
	}
	operators := map[string]Operator{}
	for _, row := range table {
		for _, op := range row {
			operators[op.Symbol] = op
		}
	}
	return operators
}()

var prefixOperators = map[string]Operator{
	"-": {Symbol: "-", Name: OP_NEGATE, Precedence: precPrefix},
	"!": {Symbol: "!", Name: OP_NOT, Precedence: precPrefix},
	"¬": {Symbol: "¬", Name: OP_NOT, Precedence: precPrefix},
}

// Keywords are identifiers with a reserved meaning in prefix position.
var keywords = map[string]bool{
	"let":  true,
	"in":   true,
	"if":   true,
	"then": true,
	"else": true,
}

// Comparison operators and the operator that describes their failure.
var comparisonNegations = map[string]string{
	"==": "!=",
	"!=": "==",
	"<":  ">=",
	"<=": ">",
	">":  "<=",
	">=": "<",
}

func LookupInfix(symbol string) (Operator, bool) {
	op, ok := infixOperators[symbol]
	return op, ok
}

func LookupPrefix(symbol string) (Operator, bool) {
	op, ok := prefixOperators[symbol]
	return op, ok
}

func IsComparison(name string) bool {
	_, ok := comparisonNegations[name]
	return ok
}

// Slot operators desugar to a call of the slot with the same name.
func isSlotOperator(name string) bool {
	switch name {
	case OP_SLOT, OP_BIND, OP_FUNCTION, OP_AND, OP_OR, OP_PROJECTION:
		return false
	}
	return true
}

// Precedence of a canonical slot operator name, used when printing.
func slotPrecedence(name string) (int, bool) {
	for _, op := range infixOperators {
		if op.Name == name && isSlotOperator(name) {
			return op.Precedence, true
		}
	}
	return 0, false
}
