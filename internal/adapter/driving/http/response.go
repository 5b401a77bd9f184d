package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/formatgate/formatgate/internal/application"
	"github.com/formatgate/formatgate/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AddRepoRequest is the body for POST /api/v1/repos.
type AddRepoRequest struct {
	FullName string `json:"full_name"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Triggered bool  `json:"triggered"`
	RunID     int64 `json:"run_id,omitempty"`
}

// RunResponse is the JSON representation of a gate run.
type RunResponse struct {
	ID           int64    `json:"id"`
	Repository   string   `json:"repository"`
	PRNumber     int      `json:"pr_number"`
	HeadSHA      string   `json:"head_sha"`
	HeadBranch   string   `json:"head_branch"`
	BaseBranch   string   `json:"base_branch"`
	Action       string   `json:"action"`
	DeliveryID   string   `json:"delivery_id,omitempty"`
	State        string   `json:"state"`
	Reason       string   `json:"reason,omitempty"`
	Detail       string   `json:"detail,omitempty"`
	MatchedFiles []string `json:"matched_files"`
	AutofixSHA   string   `json:"autofix_sha,omitempty"`
	CreatedAt    string   `json:"created_at"`
	StartedAt    string   `json:"started_at,omitempty"`
	FinishedAt   string   `json:"finished_at,omitempty"`
	DurationSecs float64  `json:"duration_seconds,omitempty"`

	// Steps are populated only on the single-run endpoint.
	Steps []StepResponse `json:"steps,omitempty"`
}

// StepResponse is the JSON representation of one pipeline step.
type StepResponse struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	Output     string `json:"output,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// RepoResponse is the JSON representation of a watched repository.
type RepoResponse struct {
	FullName string `json:"full_name"`
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	AddedAt  string `json:"added_at"`
}

// StatsResponse is the JSON representation of aggregate run statistics.
type StatsResponse struct {
	TotalRuns      int            `json:"total_runs"`
	Succeeded      int            `json:"succeeded"`
	Failed         int            `json:"failed"`
	PassRate       float64        `json:"pass_rate"`
	ByReason       map[string]int `json:"by_reason"`
	MeanDuration   float64        `json:"mean_duration_seconds"`
	MedianDuration float64        `json:"median_duration_seconds"`
	P95Duration    float64        `json:"p95_duration_seconds"`
}

// HealthResponse is the JSON representation of the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toRunResponse(run model.Run) RunResponse {
	resp := RunResponse{
		ID:           run.ID,
		Repository:   run.RepoFullName,
		PRNumber:     run.PRNumber,
		HeadSHA:      run.HeadSHA,
		HeadBranch:   run.HeadBranch,
		BaseBranch:   run.BaseBranch,
		Action:       string(run.Action),
		DeliveryID:   run.DeliveryID,
		State:        string(run.State),
		Reason:       string(run.Reason),
		Detail:       run.Detail,
		MatchedFiles: run.MatchedFiles,
		AutofixSHA:   run.AutofixSHA,
		CreatedAt:    run.CreatedAt.Format(time.RFC3339),
		StartedAt:    formatTime(run.StartedAt),
		FinishedAt:   formatTime(run.FinishedAt),
		DurationSecs: run.Duration().Seconds(),
	}
	if resp.MatchedFiles == nil {
		resp.MatchedFiles = []string{}
	}

	for _, s := range run.Steps {
		resp.Steps = append(resp.Steps, StepResponse{
			Name:       string(s.Name),
			OK:         s.OK,
			Output:     s.Output,
			StartedAt:  s.StartedAt.Format(time.RFC3339),
			FinishedAt: s.FinishedAt.Format(time.RFC3339),
		})
	}

	return resp
}

func toRepoResponse(repo model.Repository) RepoResponse {
	return RepoResponse{
		FullName: repo.FullName,
		Owner:    repo.Owner,
		Name:     repo.Name,
		AddedAt:  repo.AddedAt.Format(time.RFC3339),
	}
}

func toStatsResponse(stats *application.GateStats) StatsResponse {
	byReason := make(map[string]int, len(stats.ByReason))
	for reason, n := range stats.ByReason {
		byReason[string(reason)] = n
	}
	return StatsResponse{
		TotalRuns:      stats.TotalRuns,
		Succeeded:      stats.Succeeded,
		Failed:         stats.Failed,
		PassRate:       stats.PassRate,
		ByReason:       byReason,
		MeanDuration:   stats.MeanDuration,
		MedianDuration: stats.MedianDuration,
		P95Duration:    stats.P95Duration,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
