package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formatgate/formatgate/internal/application"
	"github.com/formatgate/formatgate/internal/domain/model"
)

func testEvent() model.PullRequestEvent {
	return model.PullRequestEvent{
		Action:       model.ActionOpened,
		DeliveryID:   "delivery-1",
		RepoFullName: "acme/widgets",
		PRNumber:     42,
		HeadSHA:      "abc123def456",
		HeadBranch:   "feature/tidy",
		BaseBranch:   "main",
	}
}

func newTestGateService(gh *mockGitHubClient, runs *mockRunStore, repos *mockRepoStore) *application.GateService {
	executor := application.NewExecutor(&mockWorkspace{}, &mockFormatter{}, &mockWriter{}, runs, "")
	return application.NewGateService(gh, executor, runs, repos, nil, 1, time.Minute)
}

func TestHandleEvent_CreatesPendingRun(t *testing.T) {
	gh := &mockGitHubClient{changedFiles: []string{"src/lib.rs", "README.md"}}
	runs := newMockRunStore()
	svc := newTestGateService(gh, runs, newMockRepoStore("acme/widgets"))

	run, err := svc.HandleEvent(context.Background(), testEvent())
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, model.RunStatePending, run.State)
	assert.Equal(t, []string{"src/lib.rs"}, run.MatchedFiles)
	assert.Equal(t, "delivery-1", run.DeliveryID)

	stored, err := runs.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.RunStatePending, stored.State)
}

func TestHandleEvent_IgnoresUnrecognizedAction(t *testing.T) {
	gh := &mockGitHubClient{changedFiles: []string{"src/lib.rs"}}
	runs := newMockRunStore()
	svc := newTestGateService(gh, runs, newMockRepoStore("acme/widgets"))

	event := testEvent()
	event.Action = "closed"

	run, err := svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Nil(t, run)

	recent, err := runs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestHandleEvent_IgnoresUnwatchedRepository(t *testing.T) {
	gh := &mockGitHubClient{changedFiles: []string{"src/lib.rs"}}
	runs := newMockRunStore()
	svc := newTestGateService(gh, runs, newMockRepoStore("acme/other"))

	run, err := svc.HandleEvent(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestHandleEvent_NoWatchedPathsChanged(t *testing.T) {
	gh := &mockGitHubClient{changedFiles: []string{"docs/guide.md", "Cargo.toml"}}
	runs := newMockRunStore()
	svc := newTestGateService(gh, runs, newMockRepoStore("acme/widgets"))

	run, err := svc.HandleEvent(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Nil(t, run)

	recent, err := runs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestHandleEvent_RedeliveryCreatesIndependentRuns(t *testing.T) {
	gh := &mockGitHubClient{changedFiles: []string{"src/lib.rs"}}
	runs := newMockRunStore()
	svc := newTestGateService(gh, runs, newMockRepoStore("acme/widgets"))

	first, err := svc.HandleEvent(context.Background(), testEvent())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.HandleEvent(context.Background(), testEvent())
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.HeadSHA, second.HeadSHA)
}

func TestHandleEvent_CustomWatchGlobs(t *testing.T) {
	gh := &mockGitHubClient{changedFiles: []string{"cmd/main.go", "src/lib.rs"}}
	runs := newMockRunStore()
	executor := application.NewExecutor(&mockWorkspace{}, &mockFormatter{}, &mockWriter{}, runs, "")
	svc := application.NewGateService(gh, executor, runs, newMockRepoStore("acme/widgets"), []string{"**/*.go"}, 1, time.Minute)

	run, err := svc.HandleEvent(context.Background(), testEvent())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, []string{"cmd/main.go"}, run.MatchedFiles)
}

func TestRerun_SynthesizesEventFromHead(t *testing.T) {
	head := testEvent()
	head.Action = ""
	head.DeliveryID = ""
	gh := &mockGitHubClient{
		changedFiles: []string{"src/lib.rs"},
		head:         &head,
	}
	runs := newMockRunStore()
	svc := newTestGateService(gh, runs, newMockRepoStore("acme/widgets"))

	run, err := svc.Rerun(context.Background(), "acme/widgets", 42)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, model.ActionSynchronize, run.Action)
	assert.Empty(t, run.DeliveryID)
	assert.Equal(t, "abc123def456", run.HeadSHA)
}

func TestRerun_ErrorsWhenNothingMatches(t *testing.T) {
	head := testEvent()
	gh := &mockGitHubClient{
		changedFiles: []string{"README.md"},
		head:         &head,
	}
	runs := newMockRunStore()
	svc := newTestGateService(gh, runs, newMockRepoStore("acme/widgets"))

	run, err := svc.Rerun(context.Background(), "acme/widgets", 42)
	require.Error(t, err)
	assert.Nil(t, run)
}

func TestStart_ExecutesQueuedRuns(t *testing.T) {
	gh := &mockGitHubClient{changedFiles: []string{"src/lib.rs"}}
	runs := newMockRunStore()
	writer := &mockWriter{}
	executor := application.NewExecutor(
		&mockWorkspace{dir: t.TempDir()},
		&mockFormatter{result: conformantResult()},
		writer,
		runs,
		"",
	)
	svc := application.NewGateService(gh, executor, runs, newMockRepoStore("acme/widgets"), nil, 2, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Start(ctx)
		close(done)
	}()

	run, err := svc.HandleEvent(context.Background(), testEvent())
	require.NoError(t, err)
	require.NotNil(t, run)

	require.Eventually(t, func() bool {
		got, err := runs.GetByID(context.Background(), run.ID)
		return err == nil && got != nil && got.State.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	got, err := runs.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateSucceeded, got.State)
	require.Len(t, writer.statuses, 1)
	assert.Equal(t, "success", string(writer.statuses[0].State))
}
