package github

import (
	"context"
	"encoding/base64"
	"fmt"

	gh "github.com/google/go-github/v82/github"

	"github.com/formatgate/formatgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubWriter = (*Client)(nil)

// SetCommitStatus attaches a commit status to the given SHA under the client's
// status context.
func (c *Client) SetCommitStatus(ctx context.Context, repoFullName, sha string, state driven.StatusState, description, targetURL string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	status := gh.RepoStatus{
		State:       gh.Ptr(string(state)),
		Context:     gh.Ptr(c.statusContext),
		Description: gh.Ptr(truncateDescription(description)),
	}
	if targetURL != "" {
		status.TargetURL = gh.Ptr(targetURL)
	}

	_, _, err = c.gh.Repositories.CreateStatus(ctx, owner, repo, sha, status)
	if err != nil {
		return fmt.Errorf("setting commit status on %s@%s: %w", repoFullName, sha, err)
	}

	return nil
}

// CreateIssueComment creates a top-level (non-diff) comment on a pull request.
func (c *Client) CreateIssueComment(ctx context.Context, repoFullName string, prNumber int, body string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	_, _, err = c.gh.Issues.CreateComment(ctx, owner, repo, prNumber, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("creating issue comment on %s#%d: %w", repoFullName, prNumber, err)
	}

	return nil
}

// PushCommit creates a commit on top of parentSHA containing the given files
// and fast-forwards the branch ref to it via the Git data API. Returns the
// new commit SHA.
func (c *Client) PushCommit(ctx context.Context, repoFullName, branch, parentSHA, message string, files []driven.FixedFile) (string, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("push commit on %s: no files to commit", repoFullName)
	}

	parent, _, err := c.gh.Git.GetCommit(ctx, owner, repo, parentSHA)
	if err != nil {
		return "", fmt.Errorf("fetching parent commit %s@%s: %w", repoFullName, parentSHA, err)
	}

	entries := make([]*gh.TreeEntry, 0, len(files))
	for _, f := range files {
		blob, _, err := c.gh.Git.CreateBlob(ctx, owner, repo, gh.Blob{
			Content:  gh.Ptr(base64.StdEncoding.EncodeToString(f.Content)),
			Encoding: gh.Ptr("base64"),
		})
		if err != nil {
			return "", fmt.Errorf("creating blob for %s: %w", f.Path, err)
		}

		entries = append(entries, &gh.TreeEntry{
			Path: gh.Ptr(f.Path),
			Mode: gh.Ptr("100644"),
			Type: gh.Ptr("blob"),
			SHA:  blob.SHA,
		})
	}

	tree, _, err := c.gh.Git.CreateTree(ctx, owner, repo, parent.GetTree().GetSHA(), entries)
	if err != nil {
		return "", fmt.Errorf("creating tree on %s: %w", repoFullName, err)
	}

	commit, _, err := c.gh.Git.CreateCommit(ctx, owner, repo, gh.Commit{
		Message: gh.Ptr(message),
		Tree:    tree,
		Parents: []*gh.Commit{{SHA: gh.Ptr(parentSHA)}},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("creating commit on %s: %w", repoFullName, err)
	}

	_, _, err = c.gh.Git.UpdateRef(ctx, owner, repo, "heads/"+branch, gh.UpdateRef{
		SHA: commit.GetSHA(),
	})
	if err != nil {
		return "", fmt.Errorf("updating ref %s on %s: %w", branch, repoFullName, err)
	}

	return commit.GetSHA(), nil
}

// truncateDescription keeps commit status descriptions under the GitHub API's
// 140 character limit.
func truncateDescription(s string) string {
	const limit = 140
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
