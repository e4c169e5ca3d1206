package banjo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

type Options struct {
	PollInterval time.Duration // How often a waiting caller checks for cancellation.
	Timeout      time.Duration // Zero waits for as long as the work takes.
	MaxFileSize  int64
	Workers      int
	MaxDepth     int
	Logger       *slog.Logger // Optional: nil discards log output.
}

func DefaultOptions() Options {
	return Options{
		PollInterval: 10 * time.Millisecond,
		Timeout:      10 * time.Second,
		MaxFileSize:  1 << 20,
		Workers:      runtime.NumCPU(),
		MaxDepth:     DefaultMaxDepth,
		Logger:       nil,
	}
}

func (self Options) logger() *slog.Logger {
	if self.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return self.Logger
}

var ErrInternal = errors.New("internal error")

// A host level fault inside background work. It ends the analysis pass it
// happened in.
type InternalError struct {
	Panic any
	Stack []byte
}

func (self *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", self.Panic)
}

func (self *InternalError) Unwrap() error {
	return ErrInternal
}

// Runs work on a background goroutine and waits for it, checking cancel
// every poll interval. When cancel is done or the timeout passes, the work's
// context is cancelled and fallback is returned without waiting further.
func Await[T any](cancel context.Context, options Options, fallback T, work func(context.Context) T) (T, error) {
	logger := options.logger()
	if cancel.Err() != nil {
		logger.Debug("work skipped, already cancelled")
		return fallback, nil
	}

	ctx, stop := context.WithCancel(cancel)
	defer stop()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &InternalError{Panic: r, Stack: debug.Stack()}}
			}
		}()
		done <- outcome{value: work(ctx)}
	}()

	poll := options.PollInterval
	if poll <= 0 {
		poll = DefaultOptions().PollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if options.Timeout > 0 {
		timer := time.NewTimer(options.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case result := <-done:
			if result.err != nil {
				return fallback, result.err
			}
			return result.value, nil
		case <-deadline:
			logger.Debug("work timed out, using fallback",
				slog.Duration("timeout", options.Timeout))
			return fallback, nil
		case <-ticker.C:
			if cancel.Err() != nil {
				logger.Debug("work cancelled, using fallback")
				return fallback, nil
			}
		}
	}
}

type TestResult struct {
	Test    CoreExpr     // As returned by FindTests, runnable in the base environment.
	Ranges  SourceRanges // Where the test was written.
	Passed  bool
	Skipped bool // Cancelled or timed out; counted as passed.
	Message string
}

type Runner struct {
	ctx     *Context
	options Options
	logger  *slog.Logger
}

func NewRunner(ctx *Context, options Options) *Runner {
	return &Runner{ctx: ctx, options: options, logger: options.logger()}
}

func (self *Runner) newTrace(cancel context.Context) *Trace {
	trace := NewTrace(self.ctx, cancel)
	if self.options.MaxDepth > 0 {
		trace.WithMaxDepth(self.options.MaxDepth)
	}
	return trace
}

func (self *Runner) GatherProblems(cancel context.Context, e CoreExpr) ([]BadExpr, error) {
	return Await(cancel, self.options, nil, func(context.Context) []BadExpr {
		return GatherProblems(e)
	})
}

// Source location of a gathered test, without the scope added around it.
func testRanges(test CoreExpr) SourceRanges {
	for {
		switch e := test.(type) {
		case *CoreProjection:
			if !e.Base {
				test = e.Body
				continue
			}
		case *CoreLet:
			test = e.Body
			continue
		}
		return test.SourceRanges()
	}
}

func skippedResult(test CoreExpr) TestResult {
	return TestResult{Test: test, Ranges: testRanges(test), Passed: true, Skipped: true}
}

// Evaluates one test in the base environment and explains it if it fails.
func (self *Runner) RunTest(cancel context.Context, test CoreExpr) (TestResult, error) {
	return Await(cancel, self.options, skippedResult(test), func(ctx context.Context) TestResult {
		self.logger.Debug("test started", slog.String("test", FormatCore(StripScope(test))))
		env := self.ctx.BaseEnvironment
		value := Eval(self.newTrace(ctx), env, test)
		if fail, ok := IsFail(value); ok && (fail.Kind == FAIL_CANCELLED) {
			return skippedResult(test)
		}

		result := TestResult{Test: test, Ranges: testRanges(test)}
		if Truthy(self.newTrace(ctx), value) {
			result.Passed = true
		} else {
			result.Message = ExplainFailure(self.newTrace(ctx), env, test)
		}
		self.logger.Debug("test finished",
			slog.Bool("passed", result.Passed),
			slog.String("message", result.Message))
		return result
	})
}

func (self *Runner) runAll(cancel context.Context, tests []CoreExpr) ([]TestResult, error) {
	results := make([]TestResult, len(tests))
	for i, test := range tests {
		result, err := self.RunTest(cancel, test)
		if err != nil {
			return nil, err
		}
		results[i] = result
	}
	return results, nil
}

func (self *Runner) RunTests(cancel context.Context, e CoreExpr) ([]TestResult, error) {
	return self.runAll(cancel, FindTests(self.ctx, e))
}

func (self *Runner) RunExamples(cancel context.Context, e CoreExpr) ([]TestResult, error) {
	return self.runAll(cancel, FindExamples(self.ctx, e))
}

// Runs the tests and examples of independent programs in parallel, at most
// Options.Workers at a time. Results are in program order; the first internal
// error ends the run.
func (self *Runner) RunPrograms(cancel context.Context, programs []CoreExpr) ([][]TestResult, error) {
	workers := self.options.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([][]TestResult, len(programs))
	errs := make([]error, len(programs))
	slots := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, program := range programs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			tests, err := self.RunTests(cancel, program)
			if err != nil {
				errs[i] = err
				return
			}
			examples, err := self.RunExamples(cancel, program)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = append(tests, examples...)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}
