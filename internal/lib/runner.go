package lib

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// RunRequest describes one subprocess invocation. Mutating marks commands
// that change machine state (setx, reg, curl installers); dry-run skips
// those while still allowing read-only calls like --version checks.
type RunRequest struct {
	Cmd      string
	Args     []string
	Dir      string
	Env      []string
	Stdin    string
	Mutating bool
}

// RunResult captures what the subprocess produced.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner is the seam between commands and external binaries, so tests can
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (RunResult, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct {
	Logger *slog.Logger
	DryRun bool
}

func (r *ExecRunner) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if req.Cmd == "" {
		return RunResult{}, &ValidationError{Field: "command", Message: "must not be empty"}
	}

	if r.DryRun && req.Mutating {
		if r.Logger != nil {
			r.Logger.InfoContext(ctx, "dry-run: skipped mutating command", "cmd", FormatCommand(req.Cmd, req.Args))
		}
		return RunResult{}, nil
	}
	if r.Logger != nil {
		r.Logger.DebugContext(ctx, "running command", "cmd", FormatCommand(req.Cmd, req.Args))
	}

	cmd := exec.CommandContext(ctx, req.Cmd, req.Args...)
	if req.Dir != "" {
		cmd.Dir = req.Dir
	}
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return result, &CommandError{
			Command:  req.Cmd,
			Args:     append([]string(nil), req.Args...),
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
			Err:      err,
		}
	}
	return result, nil
}

// FormatCommand renders a command line for logs and dry-run previews.
func FormatCommand(cmd string, args []string) string {
	joined := strings.Join(args, " ")
	if joined == "" {
		return cmd
	}
	return fmt.Sprintf("%s %s", cmd, joined)
}
