// Package npm invokes npm audit per project and extracts critical issues
// from its JSON output.
package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	depExec "auditsweep/internal/exec"
	"auditsweep/internal/report"
)

// Command is the resolved audit command line plus the per-invocation
// timeout. The auditor never consults globals or PATH state on its own, so
// tests can point Bin at any executable.
type Command struct {
	Bin     string
	Args    []string
	Timeout time.Duration
}

// DefaultCommand returns the stock "npm audit --json" invocation.
func DefaultCommand(bin string, timeout time.Duration) Command {
	return Command{Bin: bin, Args: []string{"audit", "--json"}, Timeout: timeout}
}

// Auditor runs the audit command in project folders and classifies each
// outcome into either raw audit JSON or a report.Failure.
type Auditor struct {
	Command Command

	// RawDir, when set, mirrors each successful audit's stdout to
	// raw/npm-<folder>.json under it for per-project inspection.
	RawDir string
}

// Result carries exactly one of Data (the audit JSON, preserved verbatim)
// or Failure.
type Result struct {
	Data    json.RawMessage
	Failure *report.Failure
}

// Audit runs the configured command inside folder, bounded by the
// command's timeout. npm audit exits 1 when it finds vulnerabilities, so
// only exit codes outside {0, 1} count as failures. Empty stdout is
// treated as an empty audit document. Failures never abort the run; they
// end up classified in the project's report entry.
func (a Auditor) Audit(ctx context.Context, folder string) Result {
	runCtx, cancel := context.WithTimeout(ctx, a.Command.Timeout)
	defer cancel()

	res, err := depExec.Run(runCtx, a.Command.Bin, a.Command.Args, folder)

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		return Result{Failure: &report.Failure{Kind: report.FailTimeout, Folder: folder}}
	case errors.Is(err, exec.ErrNotFound):
		return Result{Failure: &report.Failure{Kind: report.FailNotFound, Folder: folder, Message: err.Error()}}
	case res.ExitCode != 0 && res.ExitCode != 1:
		return Result{Failure: &report.Failure{Kind: report.FailNpm, ReturnCode: res.ExitCode, Stderr: res.Stderr}}
	}

	stdout := res.Stdout
	if stdout == "" {
		stdout = "{}"
	}
	if !json.Valid([]byte(stdout)) {
		return Result{Failure: &report.Failure{Kind: report.FailInvalidJSON, Stdout: res.Stdout, Stderr: res.Stderr}}
	}

	a.saveRaw(folder, stdout)

	return Result{Data: json.RawMessage(stdout)}
}

// saveRaw mirrors the audit output for one folder. Mirror failures are
// logged and swallowed; the data still lives inside the report entry.
func (a Auditor) saveRaw(folder, stdout string) {
	if a.RawDir == "" {
		return
	}
	if err := os.MkdirAll(a.RawDir, 0755); err != nil {
		slog.Warn("could not create raw output dir", "dir", a.RawDir, "err", err)
		return
	}
	path := filepath.Join(a.RawDir, fmt.Sprintf("npm-%s.json", sanitizePath(folder)))
	if err := os.WriteFile(path, []byte(stdout), 0644); err != nil {
		slog.Warn("could not mirror raw audit output", "path", path, "err", err)
	}
}

func sanitizePath(path string) string {
	s := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == ' ' {
			return '_'
		}
		return r
	}, path)
	return strings.Trim(s, "_")
}
