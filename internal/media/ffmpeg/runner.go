// Package ffmpeg wraps the ffmpeg, ffprobe and yt-dlp subprocesses used by the
// download, alignment and segmentation stages.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external program and returns its standard output.
// Implementations return a *CommandError when the program fails.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError reports a failed subprocess along with its captured stderr.
type CommandError struct {
	Program string
	Args    []string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if len(stderr) > 500 {
		stderr = stderr[len(stderr)-500:]
	}
	if stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Program, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Program, e.Err, stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs programs with os/exec. Stdout and stderr are captured in
// full; the process is killed when ctx is cancelled.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // program paths come from configuration or PATH lookup

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &CommandError{Program: name, Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// StderrContains reports whether err is a command failure whose stderr
// contains substr.
func StderrContains(err error, substr string) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, substr)
}
