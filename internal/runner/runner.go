// Package runner executes the disloc binary under a wall-clock deadline.
package runner

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dandantas/disloc/internal/model"
)

// waitDelay bounds how long Wait may block on stderr after the process exits
const waitDelay = 2 * time.Second

// Spec describes one invocation: executable <input> <output>
type Spec struct {
	Executable string
	Input      string
	Output     string
	// Dir is the directory the process is launched from; empty means the
	// current working directory.
	Dir string
	// Deadline overrides the runner default when positive.
	Deadline time.Duration
}

// OutputPath resolves the output file against the launch directory
func (s Spec) OutputPath() string {
	if s.Dir == "" || filepath.IsAbs(s.Output) {
		return s.Output
	}
	return filepath.Join(s.Dir, s.Output)
}

// Runner runs an external executable with a deadline enforced by the
// caller: on expiry the whole process group is killed and any partial
// output file is removed.
type Runner struct {
	defaultDeadline time.Duration
}

// New creates a runner with the given default deadline
func New(defaultDeadline time.Duration) *Runner {
	return &Runner{defaultDeadline: defaultDeadline}
}

// Run executes spec and blocks until the process exits or the deadline
// elapses. It never returns an error: every outcome is an ExecutionResult.
func (r *Runner) Run(ctx context.Context, spec Spec) model.ExecutionResult {
	deadline := spec.Deadline
	if deadline <= 0 {
		deadline = r.defaultDeadline
	}

	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	cmd := exec.Command(spec.Executable, spec.Input, spec.Output)
	cmd.Dir = spec.Dir
	// stdout is discarded, stderr is kept for failure reporting
	cmd.Stdout = nil
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	// Own process group so children die with the binary on timeout
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	slog.Debug("Starting process",
		"executable", spec.Executable,
		"input", spec.Input,
		"output", spec.Output,
		"dir", spec.Dir,
		"deadline", deadline,
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return failed(err.Error())
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-runCtx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done

		r.removeOutput(spec)

		detail := model.TimeoutDetail
		if errors.Is(runCtx.Err(), context.Canceled) {
			detail = "cancelled"
		}

		slog.Warn("Process killed",
			"executable", spec.Executable,
			"reason", detail,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return failed(detail)

	case err := <-done:
		slog.Debug("Process exited",
			"executable", spec.Executable,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)

		if err == nil {
			return model.ExecutionResult{Status: model.StatusSuccess}
		}

		// A background child kept stderr open after a clean exit
		if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			slog.Warn("Process exited cleanly but left children holding stderr",
				"executable", spec.Executable,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return model.ExecutionResult{Status: model.StatusSuccess}
		}

		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return failed(detail)
	}
}

// removeOutput deletes a partially written output file
func (r *Runner) removeOutput(spec Spec) {
	if spec.Output == "" {
		return
	}

	path := spec.OutputPath()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Failed to remove partial output",
			"path", path,
			"error", err,
		)
	}
}

func failed(detail string) model.ExecutionResult {
	return model.ExecutionResult{
		Status:      model.StatusFailed,
		ErrorDetail: detail,
	}
}
