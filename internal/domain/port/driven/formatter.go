package driven

import (
	"context"

	"github.com/formatgate/formatgate/internal/domain/model"
)

// CheckResult is the outcome of one formatter invocation in verify mode.
type CheckResult struct {
	// Conformant is true when the tool reported no violations.
	Conformant bool
	// Output is the tool's combined stdout/stderr; carries the diff on
	// non-conformance.
	Output string
}

// Formatter defines the driven port for invoking the external formatting
// tool. The tool's internal algorithm is out of scope; the gate only observes
// its exit status and output.
type Formatter interface {
	// Check runs the tool in "verify, do not modify" mode against the matched
	// files under dir. A non-conformant tree is not an error.
	Check(ctx context.Context, dir string, policy model.Policy, files []string) (*CheckResult, error)
	// Fix runs the tool in rewrite mode against the matched files under dir.
	Fix(ctx context.Context, dir string, policy model.Policy, files []string) error
}
