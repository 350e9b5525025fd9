// Package shellexec runs job commands through the system shell.
package shellexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/target/queuectl/internal/core"
	"github.com/target/queuectl/internal/domain/model"
)

const (
	// DefaultShell runs commands as `/bin/sh -c <command>`.
	DefaultShell = "/bin/sh"
	// DefaultOutputLimit caps captured stdout and stderr per stream.
	DefaultOutputLimit = 64 * 1024
	// DefaultWaitDelay bounds how long Execute waits on pipes held open by
	// orphaned grandchildren after the shell itself has exited or been killed.
	DefaultWaitDelay = 2 * time.Second
)

// Options configures an Executor.
type Options struct {
	Shell       string
	OutputLimit int
	WaitDelay   time.Duration
	// Env is appended to the worker's environment; nil inherits it unchanged.
	Env    []string
	Logger *slog.Logger
}

// Executor runs commands in their own process group so a timeout or a forced
// stop kills everything the command spawned.
type Executor struct {
	shell     string
	limit     int
	waitDelay time.Duration
	env       []string
	logger    *slog.Logger
}

var _ core.CommandExecutor = (*Executor)(nil)

// New creates an Executor.
func New(opts Options) *Executor {
	shell := strings.TrimSpace(opts.Shell)
	if shell == "" {
		shell = DefaultShell
	}
	limit := opts.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}
	wait := opts.WaitDelay
	if wait <= 0 {
		wait = DefaultWaitDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		shell:     shell,
		limit:     limit,
		waitDelay: wait,
		env:       opts.Env,
		logger:    logger.With("component", "shellexec"),
	}
}

// Execute runs command and maps the outcome:
//   - exit 0: Success with stdout as Output
//   - non-zero exit: "Exit code N", plus ": <stderr>" when stderr is not empty
//   - timeout: "Job timed out after N seconds"
//   - anything else: "Execution error: <cause>"
//
// A timeout of zero means no limit. Cancelling ctx kills the process group.
func (e *Executor) Execute(ctx context.Context, command string, timeout time.Duration) model.ExecutionResult {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// #nosec G204 -- running operator-supplied shell commands is the purpose of the queue
	cmd := exec.CommandContext(runCtx, e.shell, "-c", command)
	configureProcessGroup(cmd)
	cmd.WaitDelay = e.waitDelay
	if e.env != nil {
		cmd.Env = append(cmd.Environ(), e.env...)
	}

	stdout := newCappedBuffer(e.limit)
	stderr := newCappedBuffer(e.limit)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	res := model.ExecutionResult{
		Output:   stdout.String(),
		Duration: time.Since(start),
	}
	if stdout.Truncated() || stderr.Truncated() {
		e.logger.DebugContext(ctx, "command output truncated", "limit", e.limit)
	}

	switch {
	case runErr == nil:
		res.Success = true
		return res

	case errors.Is(runErr, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success():
		// The shell exited 0 but a background child kept the pipes open.
		e.logger.DebugContext(ctx, "command left output pipes open", "wait_delay", e.waitDelay)
		res.Success = true
		return res

	case timeout > 0 && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = -1
		res.Error = fmt.Sprintf("Job timed out after %d seconds", int(timeout/time.Second))
		return res

	case ctx.Err() != nil:
		res.ExitCode = -1
		res.Error = "Execution error: " + ctx.Err().Error()
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitCode(exitErr)
		res.Error = fmt.Sprintf("Exit code %d", res.ExitCode)
		if msg := strings.TrimRight(stderr.String(), "\r\n"); strings.TrimSpace(msg) != "" {
			res.Error += ": " + msg
		}
		return res
	}

	e.logger.Debug("command did not run", "shell", e.shell, "error", runErr)
	res.ExitCode = -1
	res.Error = "Execution error: " + runErr.Error()
	return res
}
