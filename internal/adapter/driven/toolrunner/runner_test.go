package toolrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formatgate/formatgate/internal/domain/model"
)

// writeScript drops an executable shell script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func policyFor(command string, checkArgs, fixArgs []string) model.Policy {
	p := model.DefaultPolicy()
	p.CheckCommand = command
	p.CheckArgs = checkArgs
	p.FixArgs = fixArgs
	return p
}

func TestCheck_ConformantTree(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fakefmt", "exit 0\n")

	result, err := New().Check(context.Background(), dir, policyFor(script, nil, nil), []string{"src/lib.rs"})

	require.NoError(t, err)
	assert.True(t, result.Conformant)
}

func TestCheck_NonconformantTreeCarriesDiff(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fakefmt", "echo 'Diff in src/lib.rs at line 40:'\nexit 1\n")

	result, err := New().Check(context.Background(), dir, policyFor(script, nil, nil), []string{"src/lib.rs"})

	require.NoError(t, err)
	assert.False(t, result.Conformant)
	assert.Contains(t, result.Output, "Diff in src/lib.rs at line 40:")
}

func TestCheck_ToolErrorExitCode(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fakefmt", "echo 'internal panic' >&2\nexit 2\n")

	_, err := New().Check(context.Background(), dir, policyFor(script, nil, nil), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 2")
}

func TestCheck_MissingBinary(t *testing.T) {
	dir := t.TempDir()

	_, err := New().Check(context.Background(), dir, policyFor("/nonexistent/fmt-tool", nil, nil), nil)

	assert.Error(t, err)
}

func TestCheck_FilesAppendedToArgs(t *testing.T) {
	dir := t.TempDir()
	// The script records its arguments so the test can assert args and files
	// arrive in order.
	script := writeScript(t, dir, "fakefmt", "echo \"$@\"\nexit 0\n")

	result, err := New().Check(context.Background(), dir,
		policyFor(script, []string{"--check"}, nil), []string{"src/lib.rs", "build.rs"})

	require.NoError(t, err)
	assert.Contains(t, result.Output, "--check src/lib.rs build.rs")
}

func TestCheck_RunsInWorkspaceDir(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fakefmt", "pwd\nexit 0\n")

	result, err := New().Check(context.Background(), dir, policyFor(script, nil, nil), nil)

	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(dir)
	assert.Contains(t, result.Output, resolved)
}

func TestCheck_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fakefmt", "sleep 10\n")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New().Check(ctx, dir, policyFor(script, nil, nil), nil)

	assert.Error(t, err)
}

func TestFix_RewritesFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "lib.rs"), []byte("fn main() {}\n\n\n"), 0o644))

	// Emulates a fixer by rewriting every named file with canonical content.
	script := writeScript(t, dir, "fakefmt",
		"for f in \"$@\"; do printf 'fn main() {}\\n' > \"$f\"; done\nexit 0\n")

	err := New().Fix(context.Background(), dir, policyFor(script, nil, []string{}), []string{"src/lib.rs"})

	require.NoError(t, err)
	content, readErr := os.ReadFile(filepath.Join(target, "lib.rs"))
	require.NoError(t, readErr)
	assert.Equal(t, "fn main() {}\n", string(content))
}

func TestFix_NonzeroExitIsError(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fakefmt", "exit 1\n")

	err := New().Fix(context.Background(), dir, policyFor(script, nil, nil), nil)

	assert.Error(t, err)
}
