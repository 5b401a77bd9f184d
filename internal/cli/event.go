package cli

import (
	"fmt"
	"os"

	"github.com/google/go-github/v82/github"
	"github.com/spf13/cobra"

	"github.com/formatgate/formatgate/internal/domain/model"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Check the pull request described by a workflow event payload",
	Long: `Reads the pull_request event payload from the file named by
GITHUB_EVENT_PATH (as set on Actions runners) and runs the gate against
that pull request. Unrecognized actions exit 0 without checking anything.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := os.Getenv("GITHUB_EVENT_PATH")
		if path == "" {
			return fmt.Errorf("GITHUB_EVENT_PATH is not set")
		}

		payload, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read event payload: %w", err)
		}

		event, err := parseEventPayload(payload)
		if err != nil {
			return err
		}

		if !model.RecognizedAction(string(event.Action)) {
			fmt.Fprintln(cmd.OutOrStdout(), `{"triggered": false}`)
			return nil
		}

		return runOnce(cmd, event)
	},
}

// parseEventPayload extracts the gate's view of a pull_request event from a
// raw webhook payload.
func parseEventPayload(payload []byte) (model.PullRequestEvent, error) {
	raw, err := github.ParseWebHook("pull_request", payload)
	if err != nil {
		return model.PullRequestEvent{}, fmt.Errorf("parse event payload: %w", err)
	}

	prEvent, ok := raw.(*github.PullRequestEvent)
	if !ok || prEvent.GetPullRequest() == nil || prEvent.GetRepo() == nil {
		return model.PullRequestEvent{}, fmt.Errorf("payload is not a pull_request event")
	}

	return model.PullRequestEvent{
		Action:       model.EventAction(prEvent.GetAction()),
		RepoFullName: prEvent.GetRepo().GetFullName(),
		PRNumber:     prEvent.GetNumber(),
		HeadSHA:      prEvent.GetPullRequest().GetHead().GetSHA(),
		HeadBranch:   prEvent.GetPullRequest().GetHead().GetRef(),
		BaseBranch:   prEvent.GetPullRequest().GetBase().GetRef(),
	}, nil
}

func init() {
	rootCmd.AddCommand(eventCmd)
}
