package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ashn.dev/banjo"
	"github.com/peterh/liner"
)

const historyFile = ".bj_history"

func dumpTokens(ctx *banjo.Context, source string, file string) error {
	var values []banjo.Value
	for _, token := range banjo.Scan(ctx, source, file) {
		if token.Kind == banjo.TOKEN_EOF {
			break
		}
		values = append(values, token.IntoValue(ctx))
	}
	text, err := banjo.CombEncode(ctx.NewList(values), banjo.Ptr("    "))
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func dumpSource(ctx *banjo.Context, source string, file string) error {
	result := banjo.Parse(ctx, source, file)
	fmt.Println(banjo.FormatSource(result.Expr))
	return problemsError(source, result.Problems)
}

func dumpCore(ctx *banjo.Context, source string, file string) error {
	parsed := banjo.Parse(ctx, source, file)
	desugared := banjo.Desugar(ctx, parsed.Expr)
	fmt.Println(banjo.FormatCore(desugared.Expr))
	return problemsError(source, append(parsed.Problems, desugared.Problems...))
}

var errProblems = errors.New("problems reported")

func problemsError(source string, problems []banjo.BadExpr) error {
	for _, problem := range problems {
		fmt.Fprint(os.Stderr, banjo.FormatProblem(source, problem))
	}
	if len(problems) > 0 {
		return errProblems
	}
	return nil
}

// Parses, checks and evaluates source on its own, printing the value.
func evalSource(cancel context.Context, ctx *banjo.Context, options banjo.Options, source string, file string) (banjo.CoreExpr, error) {
	parsed := banjo.Parse(ctx, source, file)
	if err := problemsError(source, parsed.Problems); err != nil {
		return nil, err
	}
	desugared := banjo.Desugar(ctx, parsed.Expr)
	problems := banjo.GatherProblems(desugared.Expr)
	problems = append(problems, banjo.AnalyseReferences(desugared.Expr, banjo.RuntimeBindings(ctx))...)
	if err := problemsError(source, problems); err != nil {
		return nil, err
	}

	failed := ctx.NewFail(banjo.FAIL_CANCELLED, "evaluation cancelled or timed out")
	value, err := banjo.Await(cancel, options, banjo.Value(failed), func(cancel context.Context) banjo.Value {
		trace := banjo.NewTrace(ctx, cancel).WithMaxDepth(options.MaxDepth)
		return banjo.Eval(trace, ctx.BaseEnvironment, desugared.Expr)
	})
	if err != nil {
		return nil, err
	}
	if fail, ok := banjo.IsFail(value); ok {
		return nil, fail
	}
	fmt.Println(value.String())
	return desugared.Expr, nil
}

func reportResults(results []banjo.TestResult, text func(file string) string) int {
	failed := 0
	for _, result := range results {
		if result.Passed {
			continue
		}
		failed += 1
		file := ""
		if len(result.Ranges) > 0 {
			file = result.Ranges[0].File
		}
		fmt.Fprint(os.Stderr, banjo.FormatProblem(text(file), banjo.BadExpr{Message: result.Message, Ranges: result.Ranges}))
	}
	return failed
}

// Checks the files as one project. Paths are resolved to absolute paths and
// read through a file system rooted at /.
func checkFiles(cancel context.Context, ctx *banjo.Context, options banjo.Options, paths []string) error {
	var fsPaths []string
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		fsPaths = append(fsPaths, strings.TrimPrefix(filepath.ToSlash(abs), "/"))
	}

	loader := banjo.NewLoader(ctx, os.DirFS("/"), options)
	checker := banjo.NewChecker(ctx, loader, options)
	text := func(file string) string {
		loaded, err := loader.LoadFile(file)
		if err != nil {
			return ""
		}
		return loaded.Text
	}

	files, results, err := checker.CheckProject(cancel, fsPaths)
	if err != nil {
		return err
	}
	reported := 0
	for _, file := range files {
		for _, problem := range file.Problems {
			fmt.Fprint(os.Stderr, banjo.FormatProblem(text(file.Path), problem))
		}
		reported += len(file.Problems)
	}
	if reported > 0 {
		return fmt.Errorf("%d problem(s) reported", reported)
	}

	skipped := 0
	for _, result := range results {
		if result.Skipped {
			skipped += 1
		}
	}
	fmt.Printf("%d test(s), %d skipped\n", len(results), skipped)
	return nil
}

func readUntilParsed(ctx *banjo.Context, ln *liner.State, prompt string, cont string) (string, bool) {
	var b strings.Builder
	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			if line == "" {
				return b.String(), true
			}
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if !incomplete(banjo.Parse(ctx, src, "<repl>").Problems, src) {
			return src, true
		}
	}
}

// Input is incomplete when a problem sits at its very end, such as a missing
// operand or an unclosed bracket.
func incomplete(problems []banjo.BadExpr, src string) bool {
	end := len(strings.TrimRight(src, " \t\r\n"))
	for _, problem := range problems {
		if len(problem.Ranges) > 0 && problem.Ranges[0].End.Offset >= end {
			return true
		}
	}
	return false
}

func repl(ctx *banjo.Context, options banjo.Options) int {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	runner := banjo.NewRunner(ctx, options)
	var last banjo.CoreExpr
	for {
		code, ok := readUntilParsed(ctx, ln, "> ", ". ")
		if !ok {
			fmt.Println()
			return 0
		}
		trimmed := strings.TrimSpace(code)
		switch {
		case trimmed == "":
			continue
		case trimmed == ":quit":
			return 0
		case trimmed == ":tests":
			if last == nil {
				fmt.Println("nothing evaluated yet")
				continue
			}
			tests, err := runner.RunTests(context.Background(), last)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			failed := reportResults(tests, func(string) string { return "" })
			fmt.Printf("%d test(s), %d failed\n", len(tests), failed)
			continue
		case strings.HasPrefix(trimmed, ":"):
			fmt.Println("unknown command, use :tests or :quit")
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		cancel, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		expr, err := evalSource(cancel, ctx, options, code, "<repl>")
		stop()
		if err != nil && !errors.Is(err, errProblems) {
			fmt.Fprintln(os.Stderr, err)
		}
		if expr != nil {
			last = expr
		}
	}
}

func usage(w io.Writer) {
	program := os.Args[0]
	fmt.Fprintf(w, `usage:
  %s [OPTIONS] FILE...
  %s [OPTIONS] [-c|--command] COMMAND

Without a file or command an interactive session is started.

options:
  -c, --command       Evaluate the provided expression and print its value.
  --dump-tokens       Dump a comb-encoded list of lexed tokens to stdout.
  --dump-source       Print the parse tree of the input.
  --dump-core         Print the desugared core tree of the input.
  --timeout=DURATION  Limit each evaluation (default 10s, 0 for none).
  --workers=N         Number of tests run in parallel.
  -v, --verbose       Log debug events to stderr.
  -h, --help          Display this help text and exit.
`, program, program)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	usage(os.Stderr)
	os.Exit(1)
}

func main() {
	reCommand := regexp.MustCompile(`^-+c(?:ommand)?(?:=(.*))?$`)
	reDump := regexp.MustCompile(`^-+dump-(tokens|source|core)$`)
	reTimeout := regexp.MustCompile(`^-+timeout=(.*)$`)
	reWorkers := regexp.MustCompile(`^-+workers=(.*)$`)
	reVerbose := regexp.MustCompile(`^-+v(?:erbose)?$`)
	reHelp := regexp.MustCompile(`^-+h(?:elp)?$`)

	options := banjo.DefaultOptions()
	verbatim := false
	var cmds *string
	var files []string
	dump := ""
	argi := 1
	for argi < len(os.Args) {
		arg := os.Args[argi]
		argi += 1

		if verbatim {
			files = append(files, arg)
			continue
		}

		// Remaining args are file paths.
		if arg == "--" {
			verbatim = true
			continue
		}

		// -c, -command
		if m := reCommand.FindStringSubmatch(arg); m != nil {
			// -c='1 + 2'
			if m[1] != "" {
				cmds = &m[1]
				continue
			}

			// -c '1 + 2'
			if argi < len(os.Args) {
				cmds = &os.Args[argi]
				argi += 1
				continue
			}
			fatal("expected command argument")
		}

		// --dump-tokens, --dump-source, --dump-core
		if m := reDump.FindStringSubmatch(arg); m != nil {
			dump = m[1]
			continue
		}

		if m := reTimeout.FindStringSubmatch(arg); m != nil {
			timeout, err := time.ParseDuration(m[1])
			if err != nil {
				fatal("invalid timeout %s", m[1])
			}
			options.Timeout = timeout
			continue
		}

		if m := reWorkers.FindStringSubmatch(arg); m != nil {
			workers, err := strconv.Atoi(m[1])
			if err != nil || workers < 1 {
				fatal("invalid worker count %s", m[1])
			}
			options.Workers = workers
			continue
		}

		if reVerbose.MatchString(arg) {
			options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
			continue
		}

		// -h, -help
		if reHelp.MatchString(arg) {
			usage(os.Stdout)
			os.Exit(0)
		}

		if strings.HasPrefix(arg, "-") {
			fatal("unknown flag %s", arg)
		}

		files = append(files, arg)
	}

	ctx := banjo.NewContext()
	cancel, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	source, file := "", ""
	if cmds != nil {
		source, file = *cmds, "<command>"
	} else if len(files) > 0 {
		bytes, err := os.ReadFile(files[0])
		if err != nil && dump != "" {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		source, file = string(bytes), files[0]
	}

	var err error
	switch {
	case dump != "" && file == "":
		fmt.Fprintf(os.Stderr, "error: requested a %s dump without a command or file path\n", dump)
		os.Exit(1)
	case dump == "tokens":
		err = dumpTokens(ctx, source, file)
	case dump == "source":
		err = dumpSource(ctx, source, file)
	case dump == "core":
		err = dumpCore(ctx, source, file)
	case cmds != nil:
		_, err = evalSource(cancel, ctx, options, source, file)
	case len(files) > 0:
		err = checkFiles(cancel, ctx, options, files)
	default:
		os.Exit(repl(ctx, options))
	}

	if err != nil {
		if !errors.Is(err, errProblems) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
}
