package banjo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loadTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newProject(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for path, text := range files {
		fsys[path] = &fstest.MapFile{Data: []byte(text), ModTime: loadTime}
	}
	return fsys
}

func runProgram(t *testing.T, ctx *Context, program CoreExpr) []TestResult {
	results, err := NewRunner(ctx, DefaultOptions()).RunTests(context.Background(), program)
	require.NoError(t, err)
	return results
}

func TestLoadFileCaches(t *testing.T) {
	fsys := newProject(map[string]string{"a.bj": "x: 1\n"})
	loader := NewLoader(NewContext(), fsys, DefaultOptions())

	first, err := loader.LoadFile("a.bj")
	require.NoError(t, err)
	assert.Equal(t, "x: 1\n", first.Text)
	assert.Empty(t, first.ParseProblems)
	assert.IsType(t, &CoreObject{}, first.Core)

	second, err := loader.LoadFile("a.bj")
	require.NoError(t, err)
	assert.Same(t, first, second)

	fsys["a.bj"].ModTime = loadTime.Add(time.Second)
	third, err := loader.LoadFile("a.bj")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	// The trees are interned, so an unchanged file gives the same tree.
	assert.Same(t, first.Core, third.Core)
}

func TestLoadFileInvalidate(t *testing.T) {
	fsys := newProject(map[string]string{"a.bj": "x: 1\n"})
	loader := NewLoader(NewContext(), fsys, DefaultOptions())
	first, err := loader.LoadFile("a.bj")
	require.NoError(t, err)

	loader.Invalidate("a.bj")
	second, err := loader.LoadFile("a.bj")
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	loader.Clear()
	third, err := loader.LoadFile("a.bj")
	require.NoError(t, err)
	assert.NotSame(t, second, third)
}

func TestLoadFileTooLarge(t *testing.T) {
	fsys := newProject(map[string]string{"a.bj": "x: 1\n"})
	options := DefaultOptions()
	options.MaxFileSize = 4
	loader := NewLoader(NewContext(), fsys, options)
	_, err := loader.LoadFile("a.bj")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileTooLarge))
	assert.True(t, strings.HasPrefix(err.Error(), "error reading file 'a.bj'"))
}

func TestLoadFromPathsMerges(t *testing.T) {
	ctx := NewContext()
	fsys := newProject(map[string]string{
		"a.bj": "x: 1\n",
		"b.bj": "y: x + 1\ntest: y == 2\n",
	})
	loader := NewLoader(ctx, fsys, DefaultOptions())
	program, err := loader.LoadFromPaths([]string{"a.bj", "b.bj"})
	require.NoError(t, err)

	object, ok := program.(*CoreObject)
	require.True(t, ok)
	var names []string
	for _, slot := range object.Slots {
		names = append(names, slot.Name)
	}
	assert.Equal(t, []string{"x", "y", "test"}, names)

	results := runProgram(t, ctx, program)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed, results[0].Message)
}

func TestLoadFromPathsMissingFile(t *testing.T) {
	ctx := NewContext()
	fsys := newProject(map[string]string{"a.bj": "x: 1\n"})
	loader := NewLoader(ctx, fsys, DefaultOptions())
	program, err := loader.LoadFromPaths([]string{"a.bj", "missing.bj"})
	require.NoError(t, err)

	problems := GatherProblems(program)
	require.Len(t, problems, 1)
	assert.True(t, strings.HasPrefix(problems[0].Message, "error reading file 'missing.bj'"))
	assert.Equal(t, "missing.bj", problems[0].Ranges[0].File)
}

func TestLoadFromPathsDuplicateSlot(t *testing.T) {
	ctx := NewContext()
	fsys := newProject(map[string]string{
		"a.bj": "x: 1\n",
		"b.bj": "x: 2\n",
	})
	loader := NewLoader(ctx, fsys, DefaultOptions())
	program, err := loader.LoadFromPaths([]string{"a.bj", "b.bj"})
	require.NoError(t, err)

	problems := GatherProblems(program)
	require.Len(t, problems, 1)
	assert.Equal(t, "duplicate top-level slot `x`", problems[0].Message)
	assert.Equal(t, "b.bj", problems[0].Ranges[0].File)
}

func TestLoadFromPathsOtherErrors(t *testing.T) {
	fsys := newProject(map[string]string{"a.bj": "x: 1\n", "big.bj": "y: 22222\n"})
	options := DefaultOptions()
	options.MaxFileSize = 6
	loader := NewLoader(NewContext(), fsys, options)
	program, err := loader.LoadFromPaths([]string{"a.bj", "big.bj"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileTooLarge))
	assert.Len(t, program.(*CoreObject).Slots, 1)
}

func TestLoaderBindings(t *testing.T) {
	fsys := newProject(map[string]string{
		"a.bj": "x: 1\n",
		"b.bj": "y: x + 1\n",
	})
	loader := NewLoader(NewContext(), fsys, DefaultOptions())
	var names []string
	for _, binding := range loader.Bindings("b.bj", []string{"a.bj", "b.bj"}) {
		names = append(names, binding.Name)
	}
	assert.Contains(t, names, "x")
	assert.Contains(t, names, "true")
	assert.NotContains(t, names, "y")
}

func TestTopLevelSlotsOfNonObject(t *testing.T) {
	ctx := NewContext()
	expr := compile(t, ctx, "1 + 2")
	slots := topLevelSlots(expr)
	require.Len(t, slots, 1)
	assert.Equal(t, "", slots[0].Name)
}
