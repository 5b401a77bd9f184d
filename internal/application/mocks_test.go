package application_test

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockGitHubClient struct {
	changedFiles []string
	changedErr   error
	head         *model.PullRequestEvent
	headErr      error
}

func (m *mockGitHubClient) FetchChangedFiles(_ context.Context, _ string, _ int) ([]string, error) {
	return m.changedFiles, m.changedErr
}

func (m *mockGitHubClient) FetchPullRequestHead(_ context.Context, _ string, _ int) (*model.PullRequestEvent, error) {
	return m.head, m.headErr
}

func (m *mockGitHubClient) DownloadTarball(_ context.Context, _ string, _ string) (io.ReadCloser, error) {
	return nil, nil
}

type statusCall struct {
	SHA         string
	State       driven.StatusState
	Description string
	TargetURL   string
}

type commentCall struct {
	PRNumber int
	Body     string
}

type pushCall struct {
	Branch    string
	ParentSHA string
	Message   string
	Files     []driven.FixedFile
}

type mockWriter struct {
	statuses   []statusCall
	comments   []commentCall
	pushes     []pushCall
	statusErr  error
	commentErr error
	pushSHA    string
	pushErr    error
}

func (m *mockWriter) SetCommitStatus(_ context.Context, _, sha string, state driven.StatusState, description, targetURL string) error {
	m.statuses = append(m.statuses, statusCall{SHA: sha, State: state, Description: description, TargetURL: targetURL})
	return m.statusErr
}

func (m *mockWriter) CreateIssueComment(_ context.Context, _ string, prNumber int, body string) error {
	m.comments = append(m.comments, commentCall{PRNumber: prNumber, Body: body})
	return m.commentErr
}

func (m *mockWriter) PushCommit(_ context.Context, _, branch, parentSHA, message string, files []driven.FixedFile) (string, error) {
	m.pushes = append(m.pushes, pushCall{Branch: branch, ParentSHA: parentSHA, Message: message, Files: files})
	return m.pushSHA, m.pushErr
}

type mockWorkspace struct {
	dir         string
	checkoutErr error
	cleanups    []string
}

func (m *mockWorkspace) Checkout(_ context.Context, _ model.PullRequestEvent) (string, error) {
	if m.checkoutErr != nil {
		return "", m.checkoutErr
	}
	return m.dir, nil
}

func (m *mockWorkspace) Cleanup(dir string) error {
	m.cleanups = append(m.cleanups, dir)
	return nil
}

func conformantResult() *driven.CheckResult {
	return &driven.CheckResult{Conformant: true}
}

type mockFormatter struct {
	result   *driven.CheckResult
	checkErr error
	fix      func(dir string, files []string) error
	fixCalls int
}

func (m *mockFormatter) Check(_ context.Context, _ string, _ model.Policy, _ []string) (*driven.CheckResult, error) {
	return m.result, m.checkErr
}

func (m *mockFormatter) Fix(_ context.Context, dir string, _ model.Policy, files []string) error {
	m.fixCalls++
	if m.fix != nil {
		return m.fix(dir, files)
	}
	return nil
}

// mockRunStore is an in-memory RunStore.
type mockRunStore struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]model.Run
	steps  map[int64][]model.RunStep
}

func newMockRunStore() *mockRunStore {
	return &mockRunStore{
		runs:  make(map[int64]model.Run),
		steps: make(map[int64][]model.RunStep),
	}
}

func (m *mockRunStore) Create(_ context.Context, run model.Run) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	run.ID = m.nextID
	m.runs[run.ID] = run
	return run.ID, nil
}

func (m *mockRunStore) Update(_ context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *mockRunStore) AppendStep(_ context.Context, step model.RunStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[step.RunID] = append(m.steps[step.RunID], step)
	return nil
}

func (m *mockRunStore) GetByID(_ context.Context, id int64) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	run.Steps = append([]model.RunStep(nil), m.steps[id]...)
	return &run, nil
}

func (m *mockRunStore) ListRecent(_ context.Context, limit int) ([]model.Run, error) {
	return m.list(limit, func(model.Run) bool { return true })
}

func (m *mockRunStore) ListByRepository(_ context.Context, repoFullName string, limit int) ([]model.Run, error) {
	return m.list(limit, func(r model.Run) bool { return r.RepoFullName == repoFullName })
}

func (m *mockRunStore) ListFinished(_ context.Context, limit int) ([]model.Run, error) {
	return m.list(limit, func(r model.Run) bool { return r.State.Terminal() })
}

func (m *mockRunStore) list(limit int, keep func(model.Run) bool) ([]model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Run
	for _, run := range m.runs {
		if keep(run) {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockRepoStore struct {
	repos map[string]model.Repository
}

func newMockRepoStore(fullNames ...string) *mockRepoStore {
	m := &mockRepoStore{repos: make(map[string]model.Repository)}
	for i, name := range fullNames {
		m.repos[name] = model.Repository{ID: int64(i + 1), FullName: name}
	}
	return m
}

func (m *mockRepoStore) Add(_ context.Context, repo model.Repository) error {
	if _, ok := m.repos[repo.FullName]; ok {
		return driven.ErrRepoAlreadyExists
	}
	m.repos[repo.FullName] = repo
	return nil
}

func (m *mockRepoStore) Remove(_ context.Context, fullName string) error {
	if _, ok := m.repos[fullName]; !ok {
		return driven.ErrRepoNotFound
	}
	delete(m.repos, fullName)
	return nil
}

func (m *mockRepoStore) GetByFullName(_ context.Context, fullName string) (*model.Repository, error) {
	repo, ok := m.repos[fullName]
	if !ok {
		return nil, nil
	}
	return &repo, nil
}

func (m *mockRepoStore) ListAll(_ context.Context) ([]model.Repository, error) {
	var out []model.Repository
	for _, repo := range m.repos {
		out = append(out, repo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}
