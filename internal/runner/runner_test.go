package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/disloc/internal/model"
)

// writeScript creates an executable shell script in dir
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRunSuccess(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "disloc", `cat "$1" > "$2"; echo noise`)
	input := filepath.Join(dir, "input.txt")
	output := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(input, []byte("36.5 70.7 1\n"), 0o644))

	result := New(5*time.Second).Run(context.Background(), Spec{
		Executable: bin,
		Input:      input,
		Output:     output,
	})

	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.Empty(t, result.ErrorDetail)
	assert.NoError(t, result.Err())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRunSuccessWithLingeringChild(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "disloc", `echo ok > "$2"; sleep 5 & exit 0`)

	start := time.Now()
	result := New(10*time.Second).Run(context.Background(), Spec{
		Executable: bin,
		Input:      "input.txt",
		Output:     "out.csv",
		Dir:        dir,
	})

	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.Empty(t, result.ErrorDetail)
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.FileExists(t, filepath.Join(dir, "out.csv"))
}

func TestRunFailureCapturesStderr(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "disloc", `echo "ERROR:  cannot open $1" >&2; exit 1`)

	result := New(5*time.Second).Run(context.Background(), Spec{
		Executable: bin,
		Input:      "missing.input",
		Output:     "out.csv",
		Dir:        dir,
	})

	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, "ERROR:  cannot open missing.input", result.ErrorDetail)
	assert.False(t, result.TimedOut())
	assert.ErrorIs(t, result.Err(), model.ErrExecutionFailure)
}

func TestRunFailureWithoutStderr(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "disloc", `exit 2`)

	result := New(5*time.Second).Run(context.Background(), Spec{
		Executable: bin,
		Input:      "in",
		Output:     "out",
		Dir:        dir,
	})

	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, "exit status 2", result.ErrorDetail)
}

func TestRunTimeoutKillsAndRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "disloc", `echo partial > "$2"; sleep 30`)

	start := time.Now()
	result := New(time.Minute).Run(context.Background(), Spec{
		Executable: bin,
		Input:      "input.txt",
		Output:     "job1.csv",
		Dir:        dir,
		Deadline:   500 * time.Millisecond,
	})
	elapsed := time.Since(start)

	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, model.TimeoutDetail, result.ErrorDetail)
	assert.True(t, result.TimedOut())
	assert.ErrorIs(t, result.Err(), model.ErrExecutionTimeout)
	assert.Less(t, elapsed, 5*time.Second)
	assert.NoFileExists(t, filepath.Join(dir, "job1.csv"))
}

func TestRunUsesDefaultDeadline(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "disloc", `sleep 30`)

	start := time.Now()
	result := New(300*time.Millisecond).Run(context.Background(), Spec{
		Executable: bin,
		Input:      "in",
		Output:     "out",
		Dir:        dir,
	})

	assert.True(t, result.TimedOut())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunRelativeOutputResolvesAgainstDir(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "disloc", `printf 'grid\n' > "$2"`)

	result := New(5*time.Second).Run(context.Background(), Spec{
		Executable: bin,
		Input:      "input.txt",
		Output:     "relative.csv",
		Dir:        dir,
	})

	require.True(t, result.Succeeded())
	assert.FileExists(t, filepath.Join(dir, "relative.csv"))
}

func TestRunMissingExecutable(t *testing.T) {
	result := New(time.Second).Run(context.Background(), Spec{
		Executable: filepath.Join(t.TempDir(), "does-not-exist"),
		Input:      "in",
		Output:     "out",
	})

	assert.Equal(t, model.StatusFailed, result.Status)
	assert.NotEmpty(t, result.ErrorDetail)
}

func TestRunCancelledContext(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "disloc", `echo partial > "$2"; sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	result := New(time.Minute).Run(ctx, Spec{
		Executable: bin,
		Input:      "in",
		Output:     "out.csv",
		Dir:        dir,
	})

	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, "cancelled", result.ErrorDetail)
	assert.NoFileExists(t, filepath.Join(dir, "out.csv"))
}

func TestSpecOutputPath(t *testing.T) {
	assert.Equal(t, "out.csv", Spec{Output: "out.csv"}.OutputPath())
	assert.Equal(t, filepath.Join("/tmp/job", "out.csv"), Spec{Output: "out.csv", Dir: "/tmp/job"}.OutputPath())
	assert.Equal(t, "/abs/out.csv", Spec{Output: "/abs/out.csv", Dir: "/tmp/job"}.OutputPath())
}
