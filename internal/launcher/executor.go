package launcher

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"
)

// Executor abstracts process execution for testability. onLine receives the
// merged stdout and stderr stream one line at a time, never concurrently.
// The returned exit code is -1 when the process did not run to completion.
type Executor interface {
	Run(ctx context.Context, binary string, args, env []string, onLine func(string)) (int, error)
}

// drainTimeout bounds how long output is read after the engine exits, since
// helper processes it spawned may keep the pipe open.
const drainTimeout = 2 * time.Second

// stopGracePeriod is how long a stopped engine gets before it is killed.
const stopGracePeriod = 5 * time.Second

const maxLineBytes = 1 << 20

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args, env []string, onLine func(string)) (int, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Env = env
	cmd.WaitDelay = stopGracePeriod
	configureProcess(cmd)

	reader, writer, err := os.Pipe()
	if err != nil {
		return -1, fmt.Errorf("output pipe: %w", err)
	}
	cmd.Stdout = writer
	cmd.Stderr = writer
	if err := cmd.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return -1, fmt.Errorf("start command: %w", err)
	}
	_ = writer.Close()

	var finished atomic.Bool
	forward := func(line string) {
		if onLine != nil && !finished.Load() {
			onLine(line)
		}
	}
	scanned := make(chan error, 1)
	go func() {
		scanned <- scanLines(reader, forward)
	}()

	waitErr := cmd.Wait()

	var scanErr error
	select {
	case scanErr = <-scanned:
	case <-time.After(drainTimeout):
		_ = reader.Close()
		select {
		case scanErr = <-scanned:
		case <-time.After(drainTimeout):
		}
	}
	_ = reader.Close()
	finished.Store(true)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return exitCode(cmd, waitErr), ctxErr
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return -1, fmt.Errorf("wait command: %w", waitErr)
		}
	}
	if scanErr != nil && !errors.Is(scanErr, os.ErrClosed) {
		return exitCode(cmd, waitErr), fmt.Errorf("scan output: %w", scanErr)
	}
	return exitCode(cmd, waitErr), nil
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

// scanLines forwards every line of r to onLine. Carriage returns end a line
// too, so in-place progress updates arrive as separate lines.
func scanLines(r io.Reader, onLine func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	scanner.Split(splitLines)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			onLine(line)
		}
	}
	return scanner.Err()
}

func splitLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
