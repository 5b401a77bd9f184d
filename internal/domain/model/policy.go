package model

// Policy describes how the gate checks one repository's tree. It is loaded
// from .formatgate.yml at the root of the checked-out tree; repositories
// without a policy file get DefaultPolicy.
type Policy struct {
	// Watch holds doublestar glob patterns; a run only fires when at least
	// one changed path matches one of them.
	Watch []string
	// CheckCommand and CheckArgs invoke the formatter in verify mode.
	// Matched file paths are appended to the argument list.
	CheckCommand string
	CheckArgs    []string
	// FixArgs invoke the same command in rewrite mode for autofix.
	FixArgs []string
	// Autofix enables pushing a corrective commit when the check fails.
	Autofix bool
	// CommitMessage is the fixed message used for corrective commits.
	CommitMessage string
}

// DefaultPolicy is the built-in policy applied when a repository carries no
// .formatgate.yml: watch Rust sources and verify them with rustfmt.
func DefaultPolicy() Policy {
	return Policy{
		Watch:         []string{"**/*.rs"},
		CheckCommand:  "rustfmt",
		CheckArgs:     []string{"--check"},
		FixArgs:       nil,
		Autofix:       false,
		CommitMessage: "apply automated formatting",
	}
}
