package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formatgate/formatgate/internal/domain/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check one pull request by repository and number",
	Long: `Fetches the pull request's head, checks out its tree, and runs the
formatter in verify mode. Exits 0 when the tree is conformant or the PR
touches no watched files, 1 otherwise.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, _ := cmd.Flags().GetString("repo")
		pr, _ := cmd.Flags().GetInt("pr")

		if strings.Count(repo, "/") != 1 {
			return fmt.Errorf("--repo must be in owner/repo form, got %q", repo)
		}
		if pr < 1 {
			return fmt.Errorf("--pr must be a positive pull request number")
		}

		event := model.PullRequestEvent{
			Action:       model.ActionSynchronize,
			RepoFullName: repo,
			PRNumber:     pr,
		}
		return runOnce(cmd, event)
	},
}

func init() {
	checkCmd.Flags().String("repo", "", "Repository in owner/repo form (required)")
	checkCmd.Flags().Int("pr", 0, "Pull request number (required)")
	_ = checkCmd.MarkFlagRequired("repo")
	_ = checkCmd.MarkFlagRequired("pr")
	rootCmd.AddCommand(checkCmd)
}
