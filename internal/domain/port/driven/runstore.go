package driven

import (
	"context"

	"github.com/formatgate/formatgate/internal/domain/model"
)

// RunStore defines the driven port for gate run persistence.
type RunStore interface {
	// Create inserts a new run in pending state and returns its ID.
	Create(ctx context.Context, run model.Run) (int64, error)
	// Update persists the mutable fields of a run (state, reason, detail,
	// autofix SHA, timestamps).
	Update(ctx context.Context, run model.Run) error
	// AppendStep records a completed pipeline step for a run.
	AppendStep(ctx context.Context, step model.RunStep) error
	// GetByID returns a run with its steps. Returns nil, nil if absent.
	GetByID(ctx context.Context, id int64) (*model.Run, error)
	// ListRecent returns the most recent runs, newest first, without steps.
	ListRecent(ctx context.Context, limit int) ([]model.Run, error)
	// ListByRepository returns runs for one repository, newest first.
	ListByRepository(ctx context.Context, repoFullName string, limit int) ([]model.Run, error)
	// ListFinished returns terminal runs, newest first, for aggregate stats.
	ListFinished(ctx context.Context, limit int) ([]model.Run, error)
}
