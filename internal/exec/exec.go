package exec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Exit codes Run substitutes when the process never produced one itself.
const (
	ExitTimeout  = 124
	ExitNotFound = 127
)

// Result holds the outcome of one external command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	ExitCode int
}

// Run executes a command with the context bounding its lifetime, capturing
// output and duration. Deadline kills and missing executables are folded
// into the exit code (124 and 127) so callers that only care about the
// numeric outcome need not inspect the error chain.
func Run(ctx context.Context, name string, args []string, dir string) (Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = 1
		}

		if ctx.Err() == context.DeadlineExceeded {
			res.ExitCode = ExitTimeout
		} else if errors.Is(err, exec.ErrNotFound) {
			res.ExitCode = ExitNotFound
		}
	}

	return res, err
}
