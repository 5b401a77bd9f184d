package driven

import (
	"context"
	"io"

	"github.com/formatgate/formatgate/internal/domain/model"
)

// GitHubClient defines the driven port for reading from the GitHub API.
type GitHubClient interface {
	// FetchChangedFiles returns the paths touched by a pull request's diff.
	FetchChangedFiles(ctx context.Context, repoFullName string, prNumber int) ([]string, error)
	// FetchPullRequestHead returns the head SHA and branch names for a PR.
	// Used by the one-shot CLI, which has no webhook payload to read from.
	FetchPullRequestHead(ctx context.Context, repoFullName string, prNumber int) (*model.PullRequestEvent, error)
	// DownloadTarball streams a gzip tarball of the tree at the given ref.
	// The caller must close the returned reader.
	DownloadTarball(ctx context.Context, repoFullName string, ref string) (io.ReadCloser, error)
}
