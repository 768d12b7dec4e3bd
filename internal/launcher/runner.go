package launcher

import (
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"time"

	"univdl/internal/platform"
	"univdl/internal/services"
)

// Line is one line of merged engine output.
type Line struct {
	Text string
	// Progress is set when the line reports a download percentage.
	Progress *Progress
	// ErrorHint marks lines matching the failure heuristic.
	ErrorHint bool
}

// Result summarizes a finished engine process.
type Result struct {
	ExitCode      int
	ErrorDetected bool
	// FirstError is the first output line that matched the failure heuristic.
	FirstError string
	Success    bool
	Duration   time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) RunnerOption {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithOutputCheck toggles the output error heuristic.
func WithOutputCheck(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.checkOutput = enabled
	}
}

// Runner spawns engine commands and streams their output.
type Runner struct {
	exec        Executor
	checkOutput bool
}

// NewRunner constructs a runner that executes real processes with the
// output heuristic enabled.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{exec: commandExecutor{}, checkOutput: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cmd and blocks until the process exits. A non-zero exit is
// reported through Result, not as an error; errors mean the engine could not
// run to completion.
func (r *Runner) Run(ctx context.Context, cmd *Command, sink func(Line)) (Result, error) {
	if cmd == nil || cmd.Binary == "" {
		return Result{ExitCode: -1}, services.Wrap(services.ErrValidation, "launcher", "run", "command is empty", nil)
	}

	var result Result
	onLine := func(text string) {
		line := Line{Text: text}
		if progress, ok := ParseProgress(text); ok {
			line.Progress = &progress
		}
		if r.checkOutput && LooksLikeError(text) {
			line.ErrorHint = true
			if !result.ErrorDetected {
				result.ErrorDetected = true
				result.FirstError = text
			}
		}
		if sink != nil {
			sink(line)
		}
	}

	started := time.Now()
	code, err := r.exec.Run(ctx, cmd.Binary, cmd.Args, platform.ChildEnv(cmd.BinDir), onLine)
	result.Duration = time.Since(started)
	result.ExitCode = code
	if err != nil {
		return result, classifyRunError(ctx, cmd, err)
	}
	result.Success = code == 0 && !result.ErrorDetected
	return result, nil
}

func classifyRunError(ctx context.Context, cmd *Command, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "launcher", "run", cmd.Engine.Label()+" timed out", err)
	case ctx.Err() != nil:
		return services.Wrap(services.ErrCanceled, "launcher", "run", "download stopped", err)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return services.Wrap(services.ErrNotFound, "launcher", "run", "executable not found: "+cmd.Binary, err)
	default:
		return services.Wrap(services.ErrExternalTool, "launcher", "run", "failed to run "+cmd.Engine.Label(), err)
	}
}
