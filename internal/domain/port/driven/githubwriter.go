package driven

import "context"

// StatusState is the commit status state reported to GitHub.
type StatusState string

const (
	StatusSuccess StatusState = "success"
	StatusFailure StatusState = "failure"
	StatusError   StatusState = "error"
	StatusPending StatusState = "pending"
)

// FixedFile is one file rewritten by the formatter, pushed back as part of a
// corrective commit.
type FixedFile struct {
	Path    string
	Content []byte
}

// GitHubWriter defines the driven port for mutating GitHub state: commit
// statuses, failure-detail comments, and optional corrective commits.
type GitHubWriter interface {
	// SetCommitStatus attaches a status to the given SHA under the gate's
	// status context. targetURL points at the run report page and may be empty.
	SetCommitStatus(ctx context.Context, repoFullName, sha string, state StatusState, description, targetURL string) error
	// CreateIssueComment adds a PR-level comment carrying the failure detail.
	CreateIssueComment(ctx context.Context, repoFullName string, prNumber int, body string) error
	// PushCommit creates a commit on top of parentSHA containing the given
	// files and fast-forwards the branch ref to it. Returns the new commit SHA.
	PushCommit(ctx context.Context, repoFullName, branch, parentSHA, message string, files []FixedFile) (string, error)
}
