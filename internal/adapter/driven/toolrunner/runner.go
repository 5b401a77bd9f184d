// Package toolrunner invokes the external formatting tool as a subprocess.
package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Formatter = (*Runner)(nil)

// maxOutput caps captured tool output. Diffs beyond this are truncated with a
// marker; GitHub comments can't hold unbounded text anyway.
const maxOutput = 256 << 10

// Runner implements the Formatter port by executing the policy's command in
// the workspace directory. The gate only observes the tool's exit status and
// output; the formatting algorithm stays external.
type Runner struct{}

// New creates a Runner.
func New() *Runner {
	return &Runner{}
}

// Check runs the tool in verify mode. Exit code 0 means conformant; exit code
// 1 means violations were found and the output carries the diff; any other
// failure is a tool invocation error.
func (r *Runner) Check(ctx context.Context, dir string, policy model.Policy, files []string) (*driven.CheckResult, error) {
	output, exitCode, err := r.invoke(ctx, dir, policy.CheckCommand, policy.CheckArgs, files)
	if err != nil {
		return nil, err
	}

	switch exitCode {
	case 0:
		return &driven.CheckResult{Conformant: true, Output: output}, nil
	case 1:
		return &driven.CheckResult{Conformant: false, Output: output}, nil
	default:
		return nil, fmt.Errorf("%s exited with code %d: %s", policy.CheckCommand, exitCode, output)
	}
}

// Fix runs the tool in rewrite mode. Any non-zero exit is an error.
func (r *Runner) Fix(ctx context.Context, dir string, policy model.Policy, files []string) error {
	output, exitCode, err := r.invoke(ctx, dir, policy.CheckCommand, policy.FixArgs, files)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("%s fix exited with code %d: %s", policy.CheckCommand, exitCode, output)
	}
	return nil
}

// invoke runs command with args and the matched files appended, in dir.
// Returns combined output (truncated to maxOutput) and the exit code.
func (r *Runner) invoke(ctx context.Context, dir, command string, args, files []string) (string, int, error) {
	if command == "" {
		return "", 0, errors.New("formatter command is empty")
	}

	full := make([]string, 0, len(args)+len(files))
	full = append(full, args...)
	full = append(full, files...)

	cmd := exec.CommandContext(ctx, command, full...)
	cmd.Dir = dir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := truncate(buf.Bytes())

	if err == nil {
		return output, 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return output, exitErr.ExitCode(), nil
	}

	// Context cancellation, missing binary, permission problems.
	return output, 0, fmt.Errorf("invoke %s: %w", command, err)
}

func truncate(b []byte) string {
	if len(b) <= maxOutput {
		return string(b)
	}
	return string(b[:maxOutput]) + "\n... output truncated"
}
