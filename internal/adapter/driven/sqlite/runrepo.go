package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the RunStore port interface.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

const runColumns = `id, repo_full_name, pr_number, head_sha, head_branch, base_branch,
	       action, delivery_id, state, reason, detail, matched_files, autofix_sha,
	       created_at, started_at, finished_at`

// Create inserts a new run and returns its generated ID. Matched files are
// serialized as a JSON array in the TEXT column.
func (r *RunRepo) Create(ctx context.Context, run model.Run) (int64, error) {
	const query = `
		INSERT INTO runs (
			repo_full_name, pr_number, head_sha, head_branch, base_branch,
			action, delivery_id, state, reason, detail, matched_files, autofix_sha,
			created_at, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	files := run.MatchedFiles
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return 0, fmt.Errorf("marshal matched files: %w", err)
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		run.RepoFullName, run.PRNumber, run.HeadSHA, run.HeadBranch, run.BaseBranch,
		string(run.Action), run.DeliveryID, string(run.State), string(run.Reason),
		run.Detail, string(filesJSON), run.AutofixSHA,
		formatTime(createdAt), nullableTime(run.StartedAt), nullableTime(run.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run for %s#%d: %w", run.RepoFullName, run.PRNumber, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read run insert id: %w", err)
	}

	return id, nil
}

// Update persists the mutable fields of a run.
func (r *RunRepo) Update(ctx context.Context, run model.Run) error {
	const query = `
		UPDATE runs
		SET state = ?, reason = ?, detail = ?, autofix_sha = ?, started_at = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		string(run.State), string(run.Reason), run.Detail, run.AutofixSHA,
		nullableTime(run.StartedAt), nullableTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %d: %w", run.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %d not found", run.ID)
	}

	return nil
}

// AppendStep records a completed pipeline step for a run.
func (r *RunRepo) AppendStep(ctx context.Context, step model.RunStep) error {
	const query = `
		INSERT INTO run_steps (run_id, name, ok, output, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	ok := 0
	if step.OK {
		ok = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		step.RunID, string(step.Name), ok, step.Output,
		formatTime(step.StartedAt), formatTime(step.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert step %s for run %d: %w", step.Name, step.RunID, err)
	}

	return nil
}

// GetByID returns a run with its steps. Returns nil, nil if the run does not
// exist.
func (r *RunRepo) GetByID(ctx context.Context, id int64) (*model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}

	steps, err := r.stepsForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Steps = steps

	return run, nil
}

// ListRecent returns the most recent runs, newest first, without steps.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC LIMIT ?`
	return r.queryRuns(ctx, query, limit)
}

// ListByRepository returns runs for one repository, newest first.
func (r *RunRepo) ListByRepository(ctx context.Context, repoFullName string, limit int) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE repo_full_name = ? ORDER BY id DESC LIMIT ?`
	return r.queryRuns(ctx, query, repoFullName, limit)
}

// ListFinished returns terminal runs, newest first.
func (r *RunRepo) ListFinished(ctx context.Context, limit int) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE state IN ('succeeded', 'failed') ORDER BY id DESC LIMIT ?`
	return r.queryRuns(ctx, query, limit)
}

func (r *RunRepo) queryRuns(ctx context.Context, query string, args ...any) ([]model.Run, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepo) stepsForRun(ctx context.Context, runID int64) ([]model.RunStep, error) {
	const query = `
		SELECT id, run_id, name, ok, output, started_at, finished_at
		FROM run_steps
		WHERE run_id = ?
		ORDER BY id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps for run %d: %w", runID, err)
	}
	defer rows.Close()

	var steps []model.RunStep
	for rows.Next() {
		var step model.RunStep
		var name string
		var ok int
		var startedAt, finishedAt string

		if err := rows.Scan(&step.ID, &step.RunID, &name, &ok, &step.Output, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}

		step.Name = model.StepName(name)
		step.OK = ok != 0

		if step.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse step started_at: %w", err)
		}
		if step.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, fmt.Errorf("parse step finished_at: %w", err)
		}

		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}

	return steps, nil
}

func scanRun(s scanner) (*model.Run, error) {
	var run model.Run
	var action, state, reason, filesJSON string
	var createdAt string
	var startedAt, finishedAt sql.NullString

	err := s.Scan(
		&run.ID, &run.RepoFullName, &run.PRNumber, &run.HeadSHA, &run.HeadBranch,
		&run.BaseBranch, &action, &run.DeliveryID, &state, &reason, &run.Detail,
		&filesJSON, &run.AutofixSHA, &createdAt, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Action = model.EventAction(action)
	run.State = model.RunState(state)
	run.Reason = model.FailureReason(reason)

	if err := json.Unmarshal([]byte(filesJSON), &run.MatchedFiles); err != nil {
		return nil, fmt.Errorf("unmarshal matched files: %w", err)
	}

	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	if startedAt.Valid {
		if run.StartedAt, err = parseTime(startedAt.String); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
	}
	if finishedAt.Valid {
		if run.FinishedAt, err = parseTime(finishedAt.String); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
	}

	return &run, nil
}

// formatTime binds timestamps as RFC3339 text. The driver would otherwise
// store time.Time values in Go's String() form, which parseTime cannot read
// back.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// nullableTime maps a zero time to NULL so unstarted runs don't carry
// sentinel timestamps.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}
