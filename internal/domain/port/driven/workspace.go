package driven

import (
	"context"

	"github.com/formatgate/formatgate/internal/domain/model"
)

// Workspace defines the driven port for materializing a pull request's source
// tree into an ephemeral directory. One workspace per run; no state survives
// Cleanup.
type Workspace interface {
	// Checkout downloads and extracts the tree at the event's head SHA and
	// returns the directory holding the tree root.
	Checkout(ctx context.Context, event model.PullRequestEvent) (dir string, err error)
	// Cleanup removes the workspace directory. Safe to call after a failed
	// Checkout.
	Cleanup(dir string) error
}
