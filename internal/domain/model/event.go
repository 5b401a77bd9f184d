package model

// PullRequestEvent is the subset of a pull_request webhook delivery the gate
// acts on. It is built by the driving adapter from the raw payload; changed
// file paths are fetched separately from the API.
type PullRequestEvent struct {
	Action       EventAction
	DeliveryID   string
	RepoFullName string
	PRNumber     int
	HeadSHA      string
	HeadBranch   string
	BaseBranch   string
}
