package model

import "time"

// Run represents a single gate execution triggered by one pull request event.
// Each qualifying event creates a fresh run; runs carry no memory of prior
// runs against the same commit.
type Run struct {
	ID           int64
	RepoFullName string
	PRNumber     int
	HeadSHA      string
	HeadBranch   string
	BaseBranch   string
	Action       EventAction
	DeliveryID   string // Webhook delivery GUID; empty for manual reruns.
	State        RunState
	Reason       FailureReason
	Detail       string // Tool output attached on non-conformance or error.
	MatchedFiles []string
	AutofixSHA   string // SHA of the corrective commit, if one was pushed.
	CreatedAt    time.Time
	StartedAt    time.Time
	FinishedAt   time.Time
	Steps        []RunStep // Transient on insert; loaded on read.
}

// Duration returns the wall time the run spent executing, or zero if it has
// not finished.
func (r Run) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Conformant reports whether the run completed with a conformant tree.
func (r Run) Conformant() bool {
	return r.State == RunStateSucceeded
}

// RunStep records the outcome of one pipeline stage within a run.
type RunStep struct {
	ID         int64
	RunID      int64
	Name       StepName
	OK         bool
	Output     string
	StartedAt  time.Time
	FinishedAt time.Time
}
