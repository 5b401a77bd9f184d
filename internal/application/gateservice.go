// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
	"github.com/formatgate/formatgate/internal/policy"
)

// runRequest is one queued gate execution.
type runRequest struct {
	runID int64
	event model.PullRequestEvent
	files []string
}

// GateService orchestrates gate runs: it decides whether an event qualifies,
// records a fresh run per qualifying event, and executes runs on a small
// worker pool. Each run is isolated in its own workspace; runs share no
// state.
type GateService struct {
	ghClient   driven.GitHubClient
	executor   *Executor
	runStore   driven.RunStore
	repoStore  driven.RepoStore
	watch      []string
	workers    int
	runTimeout time.Duration
	queue      chan runRequest
}

// NewGateService creates a GateService with all required dependencies.
// watch holds the service-level globs used for trigger-time path filtering;
// nil means the built-in default policy's globs.
func NewGateService(
	ghClient driven.GitHubClient,
	executor *Executor,
	runStore driven.RunStore,
	repoStore driven.RepoStore,
	watch []string,
	workers int,
	runTimeout time.Duration,
) *GateService {
	if len(watch) == 0 {
		watch = model.DefaultPolicy().Watch
	}
	if workers < 1 {
		workers = 1
	}
	return &GateService{
		ghClient:   ghClient,
		executor:   executor,
		runStore:   runStore,
		repoStore:  repoStore,
		watch:      watch,
		workers:    workers,
		runTimeout: runTimeout,
		queue:      make(chan runRequest, 64),
	}
}

// Start runs the worker pool until the context is canceled. Queued runs in
// flight when the context ends are abandoned; they stay in pending state and
// can be re-triggered manually.
func (s *GateService) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case req := <-s.queue:
					s.execute(gctx, req)
				}
			}
		})
	}

	err := g.Wait()
	slog.Info("gate service stopped")
	return err
}

// HandleEvent processes one pull request event. It returns the created run,
// or nil when the gate does not fire: unrecognized action, unwatched
// repository, or no changed path matching the watched globs. A nil run is an
// acknowledgment, not a failure.
func (s *GateService) HandleEvent(ctx context.Context, event model.PullRequestEvent) (*model.Run, error) {
	if !model.RecognizedAction(string(event.Action)) {
		slog.Debug("ignoring pull request action", "action", event.Action, "repo", event.RepoFullName)
		return nil, nil
	}

	watched, err := s.repoStore.GetByFullName(ctx, event.RepoFullName)
	if err != nil {
		return nil, fmt.Errorf("look up repository %s: %w", event.RepoFullName, err)
	}
	if watched == nil {
		slog.Debug("ignoring event for unwatched repository", "repo", event.RepoFullName)
		return nil, nil
	}

	return s.trigger(ctx, event)
}

// Rerun triggers a fresh run against the current head of a pull request,
// bypassing the webhook surface. The run is independent of any prior run for
// the same commit.
func (s *GateService) Rerun(ctx context.Context, repoFullName string, prNumber int) (*model.Run, error) {
	head, err := s.ghClient.FetchPullRequestHead(ctx, repoFullName, prNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch head for rerun of %s#%d: %w", repoFullName, prNumber, err)
	}

	event := *head
	event.Action = model.ActionSynchronize

	run, err := s.trigger(ctx, event)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("pull request %s#%d touches no watched files", repoFullName, prNumber)
	}
	return run, nil
}

// trigger applies the changed-path filter and, when it passes, records a
// pending run and enqueues it.
func (s *GateService) trigger(ctx context.Context, event model.PullRequestEvent) (*model.Run, error) {
	changed, err := s.ghClient.FetchChangedFiles(ctx, event.RepoFullName, event.PRNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch changed files for %s#%d: %w", event.RepoFullName, event.PRNumber, err)
	}

	matched := policy.MatchFiles(s.watch, changed)
	if len(matched) == 0 {
		slog.Info("no watched paths changed, gate does not run",
			"repo", event.RepoFullName,
			"pr", event.PRNumber,
			"changed", len(changed),
		)
		return nil, nil
	}

	run := model.Run{
		RepoFullName: event.RepoFullName,
		PRNumber:     event.PRNumber,
		HeadSHA:      event.HeadSHA,
		HeadBranch:   event.HeadBranch,
		BaseBranch:   event.BaseBranch,
		Action:       event.Action,
		DeliveryID:   event.DeliveryID,
		State:        model.RunStatePending,
		MatchedFiles: matched,
		CreatedAt:    time.Now().UTC(),
	}

	id, err := s.runStore.Create(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("record run for %s#%d: %w", event.RepoFullName, event.PRNumber, err)
	}
	run.ID = id

	select {
	case s.queue <- runRequest{runID: id, event: event, files: matched}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	slog.Info("gate run queued",
		"run_id", id,
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
		"sha", event.HeadSHA,
		"action", event.Action,
		"matched_files", len(matched),
	)

	return &run, nil
}

func (s *GateService) execute(ctx context.Context, req runRequest) {
	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	if err := s.executor.Execute(runCtx, req.runID, req.event, req.files); err != nil {
		slog.Error("gate run failed to execute", "run_id", req.runID, "error", err)
	}
}
