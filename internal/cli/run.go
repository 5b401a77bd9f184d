package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	githubadapter "github.com/formatgate/formatgate/internal/adapter/driven/github"
	"github.com/formatgate/formatgate/internal/adapter/driven/toolrunner"
	"github.com/formatgate/formatgate/internal/adapter/driven/workspace"
	"github.com/formatgate/formatgate/internal/application"
	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
	"github.com/formatgate/formatgate/internal/policy"
)

// errNonconformant signals a completed run that found violations; it maps to
// exit code 1 without an extra error message.
var errNonconformant = fmt.Errorf("formatting check failed")

// noopWriter discards all GitHub writes. Used with --skip-report.
type noopWriter struct{}

func (noopWriter) SetCommitStatus(context.Context, string, string, driven.StatusState, string, string) error {
	return nil
}
func (noopWriter) CreateIssueComment(context.Context, string, int, string) error { return nil }
func (noopWriter) PushCommit(context.Context, string, string, string, string, []driven.FixedFile) (string, error) {
	return "", fmt.Errorf("refusing to push with --skip-report")
}

// runOnce executes one gate run for the given event and prints the finished
// run as JSON on stdout.
func runOnce(cmd *cobra.Command, event model.PullRequestEvent) error {
	setupLogging(cmd)

	token := githubToken()
	if token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set")
	}

	statusContext := os.Getenv("FORMATGATE_STATUS_CONTEXT")
	if statusContext == "" {
		statusContext = "formatgate/check"
	}

	ghClient := githubadapter.NewClient(token, statusContext)

	var writer driven.GitHubWriter = ghClient
	if skip, _ := cmd.Flags().GetBool("skip-report"); skip {
		writer = noopWriter{}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	if event.HeadSHA == "" {
		head, err := ghClient.FetchPullRequestHead(ctx, event.RepoFullName, event.PRNumber)
		if err != nil {
			return fmt.Errorf("fetch pull request head: %w", err)
		}
		event.HeadSHA = head.HeadSHA
		event.HeadBranch = head.HeadBranch
		event.BaseBranch = head.BaseBranch
	}

	changed, err := ghClient.FetchChangedFiles(ctx, event.RepoFullName, event.PRNumber)
	if err != nil {
		return fmt.Errorf("fetch changed files: %w", err)
	}

	matched := policy.MatchFiles(model.DefaultPolicy().Watch, changed)
	if len(matched) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), `{"triggered": false}`)
		return nil
	}

	store := newMemStore()
	id, err := store.Create(ctx, model.Run{
		RepoFullName: event.RepoFullName,
		PRNumber:     event.PRNumber,
		HeadSHA:      event.HeadSHA,
		HeadBranch:   event.HeadBranch,
		BaseBranch:   event.BaseBranch,
		Action:       event.Action,
		DeliveryID:   event.DeliveryID,
		State:        model.RunStatePending,
		MatchedFiles: matched,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	executor := application.NewExecutor(
		workspace.New(ghClient, ""),
		toolrunner.New(),
		writer,
		store,
		os.Getenv("FORMATGATE_BASE_URL"),
	)
	if err := executor.Execute(ctx, id, event, matched); err != nil {
		return err
	}

	run, err := store.GetByID(ctx, id)
	if err != nil || run == nil {
		return fmt.Errorf("load finished run: %w", err)
	}

	if err := printRun(cmd, *run); err != nil {
		return err
	}

	if run.State != model.RunStateSucceeded {
		return errNonconformant
	}
	return nil
}

func printRun(cmd *cobra.Command, run model.Run) error {
	out := struct {
		Triggered    bool     `json:"triggered"`
		State        string   `json:"state"`
		Reason       string   `json:"reason,omitempty"`
		MatchedFiles []string `json:"matched_files"`
		AutofixSHA   string   `json:"autofix_sha,omitempty"`
		Detail       string   `json:"detail,omitempty"`
	}{
		Triggered:    true,
		State:        string(run.State),
		Reason:       string(run.Reason),
		MatchedFiles: run.MatchedFiles,
		AutofixSHA:   run.AutofixSHA,
		Detail:       run.Detail,
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
