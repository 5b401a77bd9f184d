package application

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
)

// statsWindow bounds how many finished runs feed the aggregate numbers.
const statsWindow = 500

// GateStats aggregates outcomes over the most recent finished runs.
type GateStats struct {
	TotalRuns      int
	Succeeded      int
	Failed         int
	PassRate       float64 // Succeeded / TotalRuns, 0 when no runs.
	ByReason       map[model.FailureReason]int
	MeanDuration   float64 // Seconds.
	MedianDuration float64
	P95Duration    float64
}

// StatsService computes aggregate gate statistics from stored runs.
type StatsService struct {
	runStore driven.RunStore
}

// NewStatsService creates a StatsService backed by the given run store.
func NewStatsService(runStore driven.RunStore) *StatsService {
	return &StatsService{runStore: runStore}
}

// Compute returns statistics over the most recent finished runs.
func (s *StatsService) Compute(ctx context.Context) (*GateStats, error) {
	runs, err := s.runStore.ListFinished(ctx, statsWindow)
	if err != nil {
		return nil, fmt.Errorf("list finished runs: %w", err)
	}

	gs := &GateStats{ByReason: make(map[model.FailureReason]int)}

	durations := make([]float64, 0, len(runs))
	for _, run := range runs {
		gs.TotalRuns++
		switch run.State {
		case model.RunStateSucceeded:
			gs.Succeeded++
		case model.RunStateFailed:
			gs.Failed++
			gs.ByReason[run.Reason]++
		}
		if d := run.Duration(); d > 0 {
			durations = append(durations, d.Seconds())
		}
	}

	if gs.TotalRuns > 0 {
		gs.PassRate = float64(gs.Succeeded) / float64(gs.TotalRuns)
	}

	if len(durations) > 0 {
		// The stats package only errors on empty input, checked above.
		gs.MeanDuration, _ = stats.Mean(durations)
		gs.MedianDuration, _ = stats.Median(durations)
		gs.P95Duration, _ = stats.Percentile(durations, 95)
	}

	return gs, nil
}
