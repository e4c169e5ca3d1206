package banjo

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseItems(t *testing.T, source string) []SourceExpr {
	ctx := NewContext()
	result := Parse(ctx, source, "parse.bj")
	require.Empty(t, result.Problems, source)
	group, ok := result.Expr.(*SourceGroup)
	require.True(t, ok)
	assert.Equal(t, GROUP_BLOCK, group.Kind)
	return group.Items
}

func problemMessages(problems []BadExpr) []string {
	messages := make([]string, len(problems))
	for i, problem := range problems {
		messages[i] = problem.Message
	}
	return messages
}

func TestParseSlots(t *testing.T) {
	items := parseItems(t, "a: 1\nb: 2\n")
	require.Len(t, items, 2)
	for _, item := range items {
		binary, ok := isSourceOperator(item, OP_SLOT)
		require.True(t, ok)
		assert.IsType(t, &SourceIdentifier{}, binary.Left)
		assert.IsType(t, &SourceNumber{}, binary.Right)
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		source   string
		operator string
		left     string
		right    string
	}{
		{"1 + 2 * 3", "+", "1", "2 * 3"},
		{"1 * 2 + 3", "+", "1 * 2", "3"},
		{"a || b && c", "||", "a", "b && c"},
		{"a == b + 1", "==", "a", "b + 1"},
		{"2 ^ 3 ^ 2", "^", "2", "3 ^ 2"},
		{"1 - 2 - 3", "-", "1 - 2", "3"},
		{"x -> x + 1", OP_FUNCTION, "x", "x + 1"},
		{"a.b + c", "+", "a.b", "c"},
		{"-a ^ 2", "^", "-a", "2"},
		{"f(x) == g(y)", "==", "f(x)", "g(y)"},
		{"x ≤ y", "<=", "x", "y"},
	}
	for _, test := range tests {
		items := parseItems(t, test.source)
		require.Len(t, items, 1, test.source)
		binary, ok := items[0].(*SourceBinary)
		require.True(t, ok, test.source)
		assert.Equal(t, test.operator, binary.Operator.Name, test.source)
		assert.Equal(t, test.left, FormatSource(binary.Left), test.source)
		assert.Equal(t, test.right, FormatSource(binary.Right), test.source)
	}
}

func TestParseRanges(t *testing.T) {
	items := parseItems(t, "a: 1 + 2")
	require.Len(t, items, 1)
	r := items[0].SourceRange()
	assert.Equal(t, 0, r.Start.Offset)
	assert.Equal(t, 8, r.End.Offset)

	binary := items[0].(*SourceBinary)
	assert.Equal(t, 1, binary.OperatorRange.Start.Offset)
	assert.Equal(t, 3, binary.Right.SourceRange().Start.Offset)
}

func TestParseIndentedBlock(t *testing.T) {
	items := parseItems(t, "f:\n  x = 1\n  x + 1\ng: 2\n")
	require.Len(t, items, 2)
	binary, ok := isSourceOperator(items[0], OP_SLOT)
	require.True(t, ok)
	block, ok := binary.Right.(*SourceGroup)
	require.True(t, ok)
	assert.Equal(t, GROUP_BLOCK, block.Kind)
	require.Len(t, block.Items, 2)
	assert.Equal(t, "x = 1", FormatSource(block.Items[0]))
	assert.Equal(t, "x + 1", FormatSource(block.Items[1]))
}

func TestParseContinuationInsideBrackets(t *testing.T) {
	items := parseItems(t, "xs: [1,\n  2,\n  3]\n")
	require.Len(t, items, 1)
	binary, ok := isSourceOperator(items[0], OP_SLOT)
	require.True(t, ok)
	list, ok := binary.Right.(*SourceGroup)
	require.True(t, ok)
	assert.Equal(t, GROUP_BRACKET, list.Kind)
	assert.Len(t, list.Items, 3)
	assert.True(t, list.Separated)
}

func TestParseLetAndIf(t *testing.T) {
	items := parseItems(t, "let x = 1, y = 2 in if x < y then x else y")
	require.Len(t, items, 1)
	let, ok := items[0].(*SourceLet)
	require.True(t, ok)
	assert.Len(t, let.Bindings, 2)
	assert.IsType(t, &SourceIf{}, let.Body)
	assert.Equal(t, "let x = 1, y = 2 in if x < y then x else y", FormatSource(let))
}

func TestParseUnclosedGroup(t *testing.T) {
	ctx := NewContext()
	result := Parse(ctx, "x: (1 + 2", "parse.bj")
	assert.Equal(t, []string{"missing `)` to close `(`"}, problemMessages(result.Problems))

	// The problem is also recorded in the tree.
	group := result.Expr.(*SourceGroup)
	require.Len(t, group.Items, 1)
	binary, ok := isSourceOperator(group.Items[0], OP_SLOT)
	require.True(t, ok)
	paren := binary.Right.(*SourceGroup)
	require.Len(t, paren.Items, 2)
	assert.IsType(t, &SourceBad{}, paren.Items[1])
	assert.Equal(t, 3, paren.Items[1].SourceRange().Start.Offset)
	assert.Equal(t, 9, paren.Items[1].SourceRange().End.Offset)
}

func TestParseStrayCloser(t *testing.T) {
	ctx := NewContext()
	result := Parse(ctx, "a: 1)", "parse.bj")
	assert.Equal(t, []string{"unexpected `)`"}, problemMessages(result.Problems))
}

func TestParseMissingOperand(t *testing.T) {
	ctx := NewContext()
	result := Parse(ctx, "a: 1 +", "parse.bj")
	require.Len(t, result.Problems, 1)
	assert.True(t, strings.HasPrefix(result.Problems[0].Message, "expected an expression"))
	assert.Equal(t, 6, result.Problems[0].Ranges[0].Start.Offset)
}

func TestParseUnexpectedIndentation(t *testing.T) {
	ctx := NewContext()
	result := Parse(ctx, "f:\n  a: 1\n    b: 2\n", "parse.bj")
	assert.Contains(t, problemMessages(result.Problems), "unexpected indentation")
}

func TestParseUnterminatedStringIsProblem(t *testing.T) {
	ctx := NewContext()
	result := Parse(ctx, "x: \"abc", "parse.bj")
	assert.Equal(t, []string{"unterminated string literal"}, problemMessages(result.Problems))
}

func TestParseRecoversAfterProblem(t *testing.T) {
	ctx := NewContext()
	result := Parse(ctx, "a: )\nb: 2\n", "parse.bj")
	assert.NotEmpty(t, result.Problems)
	group := result.Expr.(*SourceGroup)
	var names []string
	for _, item := range group.Items {
		if binary, ok := isSourceOperator(item, OP_SLOT); ok {
			names = append(names, FormatSource(binary.Left))
		}
	}
	assert.Contains(t, names, "b")
}

func TestParseDeepNesting(t *testing.T) {
	ctx := NewContext()
	source := strings.Repeat("(", 2000) + "1" + strings.Repeat(")", 2000)
	result := Parse(ctx, source, "deep.bj")
	assert.Contains(t, problemMessages(result.Problems), "expression is nested too deeply")
}

func TestFormatSourceReparses(t *testing.T) {
	sources := []string{
		"a: 1\nb: a + 2 * 3",
		"f(x): x.y(1, 2)",
		"xs: [1, 2, {a: 1, b}]",
		"t: let x = 1 in -x",
		"u: if a then (b) else c",
		"v: (1 + 2) * 3",
	}
	for _, source := range sources {
		ctx := NewContext()
		first := Parse(ctx, source, "format.bj")
		require.Empty(t, first.Problems, source)
		text := FormatSource(first.Expr)
		second := Parse(ctx, text, "format.bj")
		require.Empty(t, second.Problems, text)
		assert.Equal(t, text, FormatSource(second.Expr), source)
	}
}

func parseWithDeadline(t *testing.T, ctx *Context, source string) ParseResult {
	t.Helper()
	done := make(chan ParseResult, 1)
	go func() {
		done <- Parse(ctx, source, "arbitrary.bj")
	}()
	select {
	case result := <-done:
		return result
	case <-time.After(2 * time.Second):
		require.FailNow(t, "parse did not finish", "%q", source)
		return ParseResult{}
	}
}

// Parsing any text finishes, covers the whole text, and leaves a tree that
// the later stages accept.
func checkArbitrarySource(t *testing.T, source string) {
	t.Helper()
	ctx := NewContext()
	var text strings.Builder
	for _, token := range Scan(ctx, source, "arbitrary.bj") {
		text.WriteString(token.Literal)
	}
	assert.Equal(t, source, text.String())

	result := parseWithDeadline(t, ctx, source)
	group, ok := result.Expr.(*SourceGroup)
	require.True(t, ok, "%q", source)
	assert.Equal(t, len(source), group.Range.End.Offset, "%q", source)

	desugared := Desugar(ctx, result.Expr)
	GatherProblems(desugared.Expr)
	AnalyseReferences(desugared.Expr, RuntimeBindings(ctx))
}

func TestParseItemStartingWithInfixOperator(t *testing.T) {
	tests := []struct {
		source  string
		message string
	}{
		{"= 1", "expected an expression, found `=`"},
		{"a: 1\n* 2\n", "expected an expression, found `*`"},
		{"x: 1\n.y\n", "expected an expression, found `.`"},
		{"a: 1\n->", "expected an expression, found `->`"},
		{"+", "expected an expression, found `+`"},
		{"(= 1)", "expected an expression, found `=`"},
	}
	for _, test := range tests {
		ctx := NewContext()
		result := parseWithDeadline(t, ctx, test.source)
		assert.Equal(t, []string{test.message}, problemMessages(result.Problems), test.source)
	}
}

func TestParseArbitraryInput(t *testing.T) {
	fragments := []string{
		"a", "b1", "_x", "self", "let", "in", "if", "then", "else",
		"1", "2.5px", "0x", "1e", "\"s\"", "\"", "\\",
		":", "=", "*", ".", "->", "+", "-", "!", "¬", "≠", "&&", "...",
		"(", ")", "[", "]", "{", "}", ",", ";",
		" ", "  ", "\t", "\n", "\n  ", "\n    ", "#c\n", "\xff", "\x00",
	}
	random := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		var source strings.Builder
		for range random.IntN(40) {
			if random.IntN(10) == 0 {
				source.WriteByte(byte(random.IntN(256)))
				continue
			}
			source.WriteString(fragments[random.IntN(len(fragments))])
		}
		checkArbitrarySource(t, source.String())
	}
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"a: 1\nb: a + 2\n",
		"= 1",
		"a: 1\n* 2\n",
		"x: 1\n.y\n",
		"a: 1\n->",
		"f(x):\n  x *-2\n",
		"{a, b: [1, 2,]}",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, source string) {
		checkArbitrarySource(t, source)
	})
}

func TestParseAdjacentOperators(t *testing.T) {
	items := parseItems(t, "a:-1\nb: 2*-3\n")
	require.Len(t, items, 2)
	assert.Equal(t, "a: -1", FormatSource(items[0]))
	assert.Equal(t, "b: 2 * -3", FormatSource(items[1]))
}
