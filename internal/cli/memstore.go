package cli

import (
	"context"
	"sync"

	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
)

var _ driven.RunStore = (*memStore)(nil)

// memStore is an in-memory RunStore for one-shot invocations. gatectl runs
// a single pipeline and prints the result; nothing needs to survive the
// process.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]model.Run
	steps  map[int64][]model.RunStep
}

func newMemStore() *memStore {
	return &memStore{
		runs:  make(map[int64]model.Run),
		steps: make(map[int64][]model.RunStep),
	}
}

func (m *memStore) Create(_ context.Context, run model.Run) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	run.ID = m.nextID
	m.runs[run.ID] = run
	return run.ID, nil
}

func (m *memStore) Update(_ context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *memStore) AppendStep(_ context.Context, step model.RunStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[step.RunID] = append(m.steps[step.RunID], step)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	run.Steps = append([]model.RunStep(nil), m.steps[id]...)
	return &run, nil
}

func (m *memStore) ListRecent(_ context.Context, _ int) ([]model.Run, error) { return nil, nil }

func (m *memStore) ListByRepository(_ context.Context, _ string, _ int) ([]model.Run, error) {
	return nil, nil
}

func (m *memStore) ListFinished(_ context.Context, _ int) ([]model.Run, error) { return nil, nil }
