package banjo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSource(t *testing.T, source string) []TestResult {
	ctx := NewContext()
	expr := compile(t, ctx, source)
	runner := NewRunner(ctx, DefaultOptions())
	results, err := runner.RunTests(context.Background(), expr)
	require.NoError(t, err)
	return results
}

func TestFindTests(t *testing.T) {
	ctx := NewContext()
	expr := compile(t, ctx, "a: 1\ntest: a == 1\ntests: [a < 2, a > 0]\ntest_more: true\nexample: a\nother: 2\n")

	tests := FindTests(ctx, expr)
	require.Len(t, tests, 4)
	var bodies []string
	for _, test := range tests {
		bodies = append(bodies, FormatCore(StripScope(test)))
	}
	assert.Equal(t, []string{"a == 1", "a < 2", "a > 0", "true"}, bodies)

	examples := FindExamples(ctx, expr)
	require.Len(t, examples, 1)
	assert.Equal(t, "a", FormatCore(StripScope(examples[0])))
}

func TestFindTestsInterns(t *testing.T) {
	ctx := NewContext()
	expr := compile(t, ctx, "a: 1\ntest: a == 1\nb: {test: 2 > 1}\n")
	first := FindTests(ctx, expr)
	second := FindTests(ctx, expr)
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Same(t, first[i], second[i])
	}
}

func TestFindTestsSkipsFunctions(t *testing.T) {
	ctx := NewContext()
	expr := compile(t, ctx, "f(x): {test: x == 1}\n")
	assert.Empty(t, FindTests(ctx, expr))
}

func TestRunTestsPassing(t *testing.T) {
	sources := []string{
		"a: 1\ntest: a == 1\n",
		"inner: {x: 2, test: x == 2}\n",
		"let y = 3 in {test: y == 3}",
		"a: {b: 4}\ntests: [a.b == 4, a.(b + 1) == 5]\n",
		"f(x): x * 2\ntest_f: f(2) == 4\n",
		"o: {truthy: true}\ntest: o\n",
	}
	for _, source := range sources {
		results := runSource(t, source)
		require.NotEmpty(t, results, source)
		for _, result := range results {
			assert.True(t, result.Passed, "%s: %s", source, result.Message)
			assert.False(t, result.Skipped, source)
		}
	}
}

func TestRunTestsExplainFailures(t *testing.T) {
	tests := []struct {
		source  string
		message string
	}{
		{"a: 1\nb: 2\ntest: a + b == 4", "a + b != 4 since 3 != 4"},
		{"test: 1 == 1 && 2 == 3", "2 != 3 since 2 != 3"},
		{"test: 1 < 0 && 2 == 2", "1 >= 0 since 1 >= 0"},
		{"test: y == 1", "unresolved reference `y`"},
		{"test: 1 + 1", "`1 + 1` is not true"},
		{"test: fail(\"broken\")", "broken"},
		{"x: {a: 5}\ntest: x.(a == 6)", "a != 6 since 5 != 6"},
		{"test: 1px < 1", "incompatible units in 1px < 1"},
		{"test: 1m == 1m && 1px >= 1", "incompatible units in 1px >= 1"},
	}
	for _, test := range tests {
		results := runSource(t, test.source)
		require.Len(t, results, 1, test.source)
		assert.False(t, results[0].Passed, test.source)
		assert.Equal(t, test.message, results[0].Message, test.source)
	}
}

func TestRunTestsList(t *testing.T) {
	results := runSource(t, "tests: [1 < 2, 2 < 1]")
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.Equal(t, "2 >= 1 since 2 >= 1", results[1].Message)
}

func TestRunTestsRanges(t *testing.T) {
	results := runSource(t, "a: 1\nb: 2\ntest: a + b == 4")
	require.Len(t, results, 1)
	require.NotEmpty(t, results[0].Ranges)
	assert.Equal(t, 16, results[0].Ranges[0].Start.Offset)
	assert.Equal(t, "eval.bj", results[0].Ranges[0].File)
}

func TestAnalyseReferences(t *testing.T) {
	tests := []struct {
		source   string
		problems []string
	}{
		{"let x = 1 in y", []string{"undefined reference `y`"}},
		{"true && false", nil},
		{"fail(\"x\")", nil},
		{"let a = b, b = 1 in a", nil},
		{"let x = 1 in x -> x", nil},
		{"(x -> x)(1) + x", []string{"undefined reference `x`"}},
		{"{a: 1, b: a + 1}", nil},
		{"{a: 1, b: self.a}", nil},
		{"{a: 1, b: self.c}", []string{"undefined slot `c` on self"}},
		{"{a: 1}.(a + 1)", nil},
		{"{a: 1}.b", nil},
		{"let {a, b: c} = {a: 1, b: 2} in a + c", nil},
		{"let f(n) = g(n) in f", []string{"undefined reference `g`"}},
	}
	for _, test := range tests {
		ctx := NewContext()
		expr := compile(t, ctx, test.source)
		problems := AnalyseReferences(expr, RuntimeBindings(ctx))
		if test.problems == nil {
			assert.Empty(t, problems, test.source)
			continue
		}
		assert.Equal(t, test.problems, problemMessages(problems), test.source)
	}
}

func TestAnalyseReferencesWithoutRuntime(t *testing.T) {
	ctx := NewContext()
	expr := compile(t, ctx, "true")
	assert.Equal(t, []string{"undefined reference `true`"}, problemMessages(AnalyseReferences(expr, nil)))
	assert.Empty(t, AnalyseReferences(expr, []Binding{{Name: "true"}}))
}

func TestAnalyseReferencesShadowedBinding(t *testing.T) {
	ctx := NewContext()
	expr := compile(t, ctx, "let x = 2 in x")
	assert.Empty(t, AnalyseReferences(expr, []Binding{{Name: "x"}}))

	expr = compile(t, ctx, "(x -> x + y)(1)")
	assert.Equal(t, []string{"undefined reference `y`"}, problemMessages(AnalyseReferences(expr, []Binding{{Name: "x"}})))
}
