package application

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
	"github.com/formatgate/formatgate/internal/policy"
)

// Executor runs the gate pipeline for a single run: checkout, policy load,
// formatter check, outcome reporting, and the optional corrective commit. It
// owns no queue and no concurrency; GateService schedules it.
type Executor struct {
	workspace driven.Workspace
	formatter driven.Formatter
	writer    driven.GitHubWriter
	runStore  driven.RunStore
	baseURL   string
}

// NewExecutor creates an Executor. baseURL is the externally reachable root
// of this service, used to build run report links; empty disables links.
func NewExecutor(
	workspace driven.Workspace,
	formatter driven.Formatter,
	writer driven.GitHubWriter,
	runStore driven.RunStore,
	baseURL string,
) *Executor {
	return &Executor{
		workspace: workspace,
		formatter: formatter,
		writer:    writer,
		runStore:  runStore,
		baseURL:   baseURL,
	}
}

// Execute drives one run from pending to a terminal state. Every outcome,
// including internal failures, is persisted; the returned error only signals
// that persistence itself broke.
func (e *Executor) Execute(ctx context.Context, runID int64, event model.PullRequestEvent, files []string) error {
	run, err := e.runStore.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %d: %w", runID, err)
	}
	if run == nil {
		return fmt.Errorf("run %d not found", runID)
	}

	run.State = model.RunStateRunning
	run.StartedAt = time.Now().UTC()
	if err := e.runStore.Update(ctx, *run); err != nil {
		return fmt.Errorf("mark run %d running: %w", runID, err)
	}

	slog.Info("gate run started",
		"run_id", run.ID,
		"repo", run.RepoFullName,
		"pr", run.PRNumber,
		"sha", run.HeadSHA,
	)

	e.pipeline(ctx, run, event, files)

	run.FinishedAt = time.Now().UTC()
	if err := e.runStore.Update(ctx, *run); err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}

	slog.Info("gate run finished",
		"run_id", run.ID,
		"repo", run.RepoFullName,
		"pr", run.PRNumber,
		"state", run.State,
		"reason", run.Reason,
		"duration", run.Duration(),
	)

	return nil
}

// pipeline mutates run in place to its terminal state.
func (e *Executor) pipeline(ctx context.Context, run *model.Run, event model.PullRequestEvent, files []string) {
	dir, err := step(ctx, e, run, model.StepCheckout, func() (string, error) {
		return e.workspace.Checkout(ctx, event)
	})
	if err != nil {
		e.fail(ctx, run, model.FailureCheckout, fmt.Sprintf("checkout failed: %v", err))
		return
	}
	defer func() {
		if err := e.workspace.Cleanup(dir); err != nil {
			slog.Warn("workspace cleanup failed", "run_id", run.ID, "dir", dir, "error", err)
		}
	}()

	pol, err := step(ctx, e, run, model.StepPolicy, func() (model.Policy, error) {
		return policy.Load(dir)
	})
	if err != nil {
		e.fail(ctx, run, model.FailurePolicy, fmt.Sprintf("invalid policy file: %v", err))
		return
	}

	result, err := step(ctx, e, run, model.StepCheck, func() (*driven.CheckResult, error) {
		return e.formatter.Check(ctx, dir, pol, files)
	})
	if err != nil {
		run.Detail = fmt.Sprintf("formatter invocation failed: %v", err)
		e.fail(ctx, run, model.FailureTool, run.Detail)
		return
	}

	if result.Conformant {
		if err := e.report(ctx, run, driven.StatusSuccess, "formatting check passed", ""); err != nil {
			run.State = model.RunStateFailed
			run.Reason = model.FailureReport
			run.Detail = err.Error()
			return
		}
		run.State = model.RunStateSucceeded
		return
	}

	run.Detail = result.Output

	var autofixSHA string
	if pol.Autofix {
		autofixSHA = e.autofix(ctx, run, event, dir, pol, files)
	}

	description := "formatting check failed"
	if autofixSHA != "" {
		description = "formatting fixed by " + shortSHA(autofixSHA)
	}
	if err := e.report(ctx, run, driven.StatusFailure, description, result.Output); err != nil {
		run.State = model.RunStateFailed
		run.Reason = model.FailureReport
		return
	}

	run.State = model.RunStateFailed
	run.Reason = model.FailureNonconformant
}

// fail records a terminal failure and makes a best-effort attempt to surface
// it on the commit. Reporting errors at this point are logged, not promoted;
// the run already has a more specific reason.
func (e *Executor) fail(ctx context.Context, run *model.Run, reason model.FailureReason, description string) {
	run.State = model.RunStateFailed
	run.Reason = reason
	if run.Detail == "" {
		run.Detail = description
	}

	err := e.writer.SetCommitStatus(ctx, run.RepoFullName, run.HeadSHA, driven.StatusError, description, e.reportURL(run.ID))
	if err != nil {
		slog.Error("failed to report error status", "run_id", run.ID, "error", err)
	}
}

// report publishes the run outcome: a commit status always, plus a PR comment
// carrying the diff when output is non-empty.
func (e *Executor) report(ctx context.Context, run *model.Run, state driven.StatusState, description, output string) error {
	started := time.Now().UTC()

	err := e.writer.SetCommitStatus(ctx, run.RepoFullName, run.HeadSHA, state, description, e.reportURL(run.ID))
	if err == nil && output != "" {
		err = e.writer.CreateIssueComment(ctx, run.RepoFullName, run.PRNumber, failureComment(run, output, e.reportURL(run.ID)))
	}

	e.appendStep(ctx, run, model.RunStep{
		Name:       model.StepReport,
		OK:         err == nil,
		Output:     errOutput(err),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("report outcome for %s@%s: %w", run.RepoFullName, run.HeadSHA, err)
	}
	return nil
}

// autofix rewrites the matched files in place, gathers the ones that changed,
// and pushes them as one corrective commit on the head branch. A failed
// autofix never fails the run; the gate still reports the check outcome.
func (e *Executor) autofix(ctx context.Context, run *model.Run, event model.PullRequestEvent, dir string, pol model.Policy, files []string) string {
	started := time.Now().UTC()

	sha, err := e.pushFixes(ctx, event, dir, pol, files)
	e.appendStep(ctx, run, model.RunStep{
		Name:       model.StepAutofix,
		OK:         err == nil,
		Output:     errOutput(err),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("autofix failed", "run_id", run.ID, "repo", run.RepoFullName, "error", err)
		return ""
	}

	run.AutofixSHA = sha
	slog.Info("corrective commit pushed", "run_id", run.ID, "repo", run.RepoFullName, "sha", sha)
	return sha
}

func (e *Executor) pushFixes(ctx context.Context, event model.PullRequestEvent, dir string, pol model.Policy, files []string) (string, error) {
	before := make(map[string][]byte, len(files))
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			if os.IsNotExist(err) {
				continue // Deleted in the PR; nothing to fix.
			}
			return "", fmt.Errorf("read %s: %w", f, err)
		}
		before[f] = data
	}

	if err := e.formatter.Fix(ctx, dir, pol, files); err != nil {
		return "", fmt.Errorf("run formatter in fix mode: %w", err)
	}

	var fixed []driven.FixedFile
	for _, f := range files {
		orig, ok := before[f]
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return "", fmt.Errorf("read fixed %s: %w", f, err)
		}
		if !bytes.Equal(orig, data) {
			fixed = append(fixed, driven.FixedFile{Path: f, Content: data})
		}
	}

	if len(fixed) == 0 {
		return "", fmt.Errorf("formatter reported violations but rewrote no files")
	}

	return e.writer.PushCommit(ctx, event.RepoFullName, event.HeadBranch, event.HeadSHA, pol.CommitMessage, fixed)
}

// step times one pipeline stage and records it; errors are returned for the
// caller to classify. A free function because methods cannot be generic.
func step[T any](ctx context.Context, e *Executor, run *model.Run, name model.StepName, fn func() (T, error)) (T, error) {
	started := time.Now().UTC()
	v, err := fn()
	e.appendStep(ctx, run, model.RunStep{
		Name:       name,
		OK:         err == nil,
		Output:     errOutput(err),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	})
	return v, err
}

func (e *Executor) appendStep(ctx context.Context, run *model.Run, s model.RunStep) {
	s.RunID = run.ID
	if err := e.runStore.AppendStep(ctx, s); err != nil {
		slog.Error("failed to record run step", "run_id", run.ID, "step", s.Name, "error", err)
	}
	run.Steps = append(run.Steps, s)
}

func (e *Executor) reportURL(runID int64) string {
	if e.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/runs/%d", e.baseURL, runID)
}

// failureComment builds the PR comment body for a non-conformant run.
func failureComment(run *model.Run, output, reportURL string) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "**Formatting check failed** for %s.\n\n", shortSHA(run.HeadSHA))
	if run.AutofixSHA != "" {
		fmt.Fprintf(&b, "A corrective commit was pushed: %s.\n\n", shortSHA(run.AutofixSHA))
	}
	b.WriteString("```diff\n")
	b.WriteString(output)
	if output != "" && output[len(output)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString("```\n")
	if reportURL != "" {
		fmt.Fprintf(&b, "\n[Full run report](%s)\n", reportURL)
	}
	return b.String()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func errOutput(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
