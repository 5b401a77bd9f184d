package model

// RunState represents the lifecycle state of a gate run.
// A run moves pending -> running -> succeeded | failed and never backwards.
type RunState string

const (
	RunStatePending   RunState = "pending"
	RunStateRunning   RunState = "running"
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
)

// Terminal reports whether the state is an end state.
func (s RunState) Terminal() bool {
	return s == RunStateSucceeded || s == RunStateFailed
}

// FailureReason classifies why a run failed. Empty for succeeded runs.
type FailureReason string

const (
	// FailureNone is the zero value for runs that did not fail.
	FailureNone FailureReason = ""
	// FailureCheckout indicates the source tree could not be obtained.
	FailureCheckout FailureReason = "checkout_failed"
	// FailurePolicy indicates the repository policy file was malformed.
	FailurePolicy FailureReason = "policy_invalid"
	// FailureNonconformant indicates the formatter found style violations.
	FailureNonconformant FailureReason = "nonconformant"
	// FailureTool indicates the formatter itself could not be invoked.
	FailureTool FailureReason = "tool_error"
	// FailureReport indicates the outcome could not be reported to GitHub.
	FailureReport FailureReason = "report_failed"
)

// StepName identifies a stage of the run pipeline.
type StepName string

const (
	StepCheckout StepName = "checkout"
	StepPolicy   StepName = "policy"
	StepCheck    StepName = "check"
	StepReport   StepName = "report"
	StepAutofix  StepName = "autofix"
)

// EventAction is a pull request lifecycle action recognized by the gate.
type EventAction string

const (
	ActionOpened      EventAction = "opened"
	ActionAssigned    EventAction = "assigned"
	ActionSynchronize EventAction = "synchronize"
	ActionReopened    EventAction = "reopened"
)

// RecognizedAction reports whether the gate reacts to the given action.
// All other pull request actions are acknowledged and ignored.
func RecognizedAction(action string) bool {
	switch EventAction(action) {
	case ActionOpened, ActionAssigned, ActionSynchronize, ActionReopened:
		return true
	}
	return false
}
