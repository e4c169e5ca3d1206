package banjo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChecker(files map[string]string) *Checker {
	ctx := NewContext()
	options := DefaultOptions()
	return NewChecker(ctx, NewLoader(ctx, newProject(files), options), options)
}

func checkMessages(t *testing.T, checker *Checker, path string, project ...string) []string {
	problems, err := checker.CheckFile(context.Background(), path, project)
	require.NoError(t, err)
	for _, problem := range problems {
		for _, r := range problem.Ranges {
			assert.Equal(t, path, r.File)
		}
	}
	return problemMessages(problems)
}

func TestCheckFileAcrossProject(t *testing.T) {
	checker := newChecker(map[string]string{
		"a.bj": "x: 1\n",
		"b.bj": "y: x + 1\ntest: y == 2\n",
	})
	assert.Empty(t, checkMessages(t, checker, "b.bj", "a.bj", "b.bj"))
	assert.Equal(t, []string{"undefined reference `x`"}, checkMessages(t, checker, "b.bj", "b.bj"))
}

func TestCheckFileFailingTest(t *testing.T) {
	checker := newChecker(map[string]string{"t.bj": "test: 1 == 2\n"})
	assert.Equal(t, []string{"1 != 2 since 1 != 2"}, checkMessages(t, checker, "t.bj"))
}

func TestCheckFileFailingExample(t *testing.T) {
	checker := newChecker(map[string]string{"t.bj": "example: 1 > 2\n"})
	assert.Equal(t, []string{"1 <= 2 since 1 <= 2"}, checkMessages(t, checker, "t.bj"))
}

func TestCheckFileOnlyReportsOwnTests(t *testing.T) {
	checker := newChecker(map[string]string{
		"a.bj": "x: 1\ntest: x == 2\n",
		"b.bj": "y: x\n",
	})
	assert.Empty(t, checkMessages(t, checker, "b.bj", "a.bj", "b.bj"))
	assert.Equal(t, []string{"x != 2 since 1 != 2"}, checkMessages(t, checker, "a.bj", "a.bj", "b.bj"))
}

func TestCheckFileParseProblemsFirst(t *testing.T) {
	checker := newChecker(map[string]string{"p.bj": "x: (1 + 2\ntest: y == 1\n"})
	messages := checkMessages(t, checker, "p.bj")
	assert.Contains(t, messages, "missing `)` to close `(`")
	assert.NotContains(t, messages, "undefined reference `y`")
}

func TestCheckFileDesugarProblems(t *testing.T) {
	checker := newChecker(map[string]string{"d.bj": "a: 1\na: 2\n"})
	assert.Equal(t, []string{"duplicate slot `a`"}, checkMessages(t, checker, "d.bj"))
}

func TestCheckFileMissing(t *testing.T) {
	checker := newChecker(map[string]string{})
	_, err := checker.CheckFile(context.Background(), "nope.bj", nil)
	assert.Error(t, err)
}

func TestFormatProblem(t *testing.T) {
	text := "a: 1\nb: )\nc: 3"
	problem := NewBadExpr("unexpected `)`", SourceRange{
		File:  "f.bj",
		Start: SourcePosition{Offset: 8, Line: 2, Column: 4},
		End:   SourcePosition{Offset: 9, Line: 2, Column: 5},
	})
	expected := "[f.bj:2:4] unexpected `)`\n" +
		"   1 | a: 1\n" +
		"   2 | b: )\n" +
		"     |    ^\n" +
		"   3 | c: 3\n"
	assert.Equal(t, expected, FormatProblem(text, problem))
}

func TestFormatProblemWithoutRange(t *testing.T) {
	assert.Equal(t, "oops", FormatProblem("a: 1", BadExpr{Message: "oops"}))
}

func TestCheckProject(t *testing.T) {
	checker := newChecker(map[string]string{
		"a.bj": "x: 1\ntest: x == 2\n",
		"b.bj": "y: x\ntest: y == 1\nexample: y > 0\n",
		"c.bj": "z: w\n",
	})
	paths := []string{"a.bj", "b.bj", "c.bj"}
	files, results, err := checker.CheckProject(context.Background(), paths)
	require.NoError(t, err)

	// Each test of the project runs once.
	require.Len(t, results, 3)
	require.Len(t, files, 3)
	for i, path := range paths {
		assert.Equal(t, path, files[i].Path)
		assert.Equal(t, checkMessages(t, checker, path, paths...), problemMessages(files[i].Problems), path)
	}
	assert.Equal(t, []string{"x != 2 since 1 != 2"}, problemMessages(files[0].Problems))
	assert.Empty(t, files[1].Problems)
	assert.Equal(t, []string{"undefined reference `w`"}, problemMessages(files[2].Problems))
}

func TestCheckProjectStopsBeforeTests(t *testing.T) {
	checker := newChecker(map[string]string{"p.bj": "x: (1\ntest: 1 == 2\n"})
	files, results, err := checker.CheckProject(context.Background(), []string{"p.bj"})
	require.NoError(t, err)
	assert.Nil(t, results)
	require.Len(t, files, 1)
	assert.Contains(t, problemMessages(files[0].Problems), "missing `)` to close `(`")
}
