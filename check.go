package banjo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Produces the problems of one file of a project, in the order an editor
// would show them: parse problems first, then analysis problems, then
// failing tests. Each stage runs only when the previous one found nothing.
type Checker struct {
	ctx    *Context
	loader *Loader
	runner *Runner
	logger *slog.Logger
}

func NewChecker(ctx *Context, loader *Loader, options Options) *Checker {
	return &Checker{
		ctx:    ctx,
		loader: loader,
		runner: NewRunner(ctx, options),
		logger: options.logger(),
	}
}

func (self *Checker) Loader() *Loader {
	return self.loader
}

func (self *Checker) Runner() *Runner {
	return self.runner
}

func (self *Checker) CheckFile(cancel context.Context, path string, projectPaths []string) ([]BadExpr, error) {
	problems, err := self.staticProblems(cancel, path, projectPaths)
	if err != nil || len(problems) > 0 {
		return problems, err
	}

	paths := projectPaths
	if !containsPath(paths, path) {
		paths = append([]string{path}, paths...)
	}
	results, err := self.runProject(cancel, paths)
	if err != nil {
		return nil, err
	}
	failed := failuresIn(results, path)
	self.logger.Debug("file checked",
		slog.String("path", path),
		slog.Int("tests", len(results)),
		slog.Int("failed", len(failed)))
	return failed, nil
}

type FileProblems struct {
	Path     string
	Problems []BadExpr
}

// Checks every file of a project the way CheckFile does, but runs the tests
// and examples of the project once for all files. The results are nil when
// every file stopped at parse or analysis problems.
func (self *Checker) CheckProject(cancel context.Context, paths []string) ([]FileProblems, []TestResult, error) {
	files := make([]FileProblems, len(paths))
	clean := false
	for i, path := range paths {
		problems, err := self.staticProblems(cancel, path, paths)
		if err != nil {
			return nil, nil, err
		}
		files[i] = FileProblems{Path: path, Problems: problems}
		clean = clean || len(problems) == 0
	}
	if !clean {
		return files, nil, nil
	}

	results, err := self.runProject(cancel, paths)
	if err != nil {
		return nil, nil, err
	}
	for i := range files {
		if len(files[i].Problems) == 0 {
			files[i].Problems = failuresIn(results, files[i].Path)
		}
	}
	self.logger.Debug("project checked",
		slog.Int("files", len(files)),
		slog.Int("tests", len(results)))
	return files, results, nil
}

// Parse problems of path, or else its desugaring and reference problems.
func (self *Checker) staticProblems(cancel context.Context, path string, projectPaths []string) ([]BadExpr, error) {
	file, err := self.loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if len(file.ParseProblems) > 0 {
		return FilterProblems(file.ParseProblems, path), nil
	}

	gathered, err := self.runner.GatherProblems(cancel, file.Core)
	if err != nil {
		return nil, err
	}
	problems := NewProblemSet(gathered...)
	for _, problem := range AnalyseReferences(file.Core, self.loader.Bindings(path, projectPaths)) {
		problems.Insert(problem)
	}
	if problems.Count() > 0 {
		return FilterProblems(problems.Problems(), path), nil
	}
	return nil, nil
}

func (self *Checker) runProject(cancel context.Context, paths []string) ([]TestResult, error) {
	// Errors reading other project files were logged by the loader.
	program, _ := self.loader.LoadFromPaths(paths)

	var results []TestResult
	for _, run := range []func(context.Context, CoreExpr) ([]TestResult, error){self.runner.RunTests, self.runner.RunExamples} {
		more, err := run(cancel, program)
		if err != nil {
			return nil, err
		}
		results = append(results, more...)
	}
	return results, nil
}

// Failing results with a range in path, restricted to those ranges.
func failuresIn(results []TestResult, path string) []BadExpr {
	failed := &ProblemSet{}
	for _, result := range results {
		ranges := result.Ranges.InFile(path)
		if result.Passed || len(ranges) == 0 {
			continue
		}
		failed.Insert(BadExpr{Message: result.Message, Ranges: ranges})
	}
	return failed.Problems()
}

func containsPath(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}

// Renders a problem as its message followed by the source line it starts on,
// the lines around it and a caret under the starting column.
func FormatProblem(text string, problem BadExpr) string {
	if !problem.Reportable() {
		return problem.Message
	}
	r := problem.Ranges[0]
	lines := strings.Split(text, "\n")
	line := max(1, min(r.Start.Line, len(lines)))
	column := max(1, r.Start.Column)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", r, problem.Message)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", column-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
