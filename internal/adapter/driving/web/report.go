// Package web serves the human-facing HTML run report pages.
package web

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
)

// Handler is the web driving adapter that renders run report pages. Commit
// statuses link here as their target URL.
type Handler struct {
	runStore driven.RunStore
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(runStore driven.RunStore, logger *slog.Logger) *Handler {
	return &Handler{runStore: runStore, logger: logger}
}

// ServeHTTP renders the report page for one run. The route must carry an
// {id} path value.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}

	run, err := h.runStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load run for report", "run_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reportTemplate.Execute(w, toReportView(*run)); err != nil {
		h.logger.Error("failed to render report", "run_id", id, "error", err)
	}
}

// reportView is the template data for one run report page.
type reportView struct {
	Run      model.Run
	Title    string
	Summary  template.HTML
	Diff     template.HTML
	Steps    []stepView
	Duration string
}

type stepView struct {
	Name     string
	OK       bool
	Output   string
	Duration string
}

func toReportView(run model.Run) reportView {
	view := reportView{
		Run:      run,
		Title:    fmt.Sprintf("Run #%d %s#%d", run.ID, run.RepoFullName, run.PRNumber),
		Summary:  template.HTML(RenderMarkdown(summaryMarkdown(run))),
		Duration: formatDuration(run.Duration()),
	}

	if run.Reason == model.FailureNonconformant && run.Detail != "" {
		view.Diff = template.HTML(RenderDiff(run.Detail))
	}

	for _, s := range run.Steps {
		view.Steps = append(view.Steps, stepView{
			Name:     string(s.Name),
			OK:       s.OK,
			Output:   s.Output,
			Duration: formatDuration(s.FinishedAt.Sub(s.StartedAt)),
		})
	}

	return view
}

// summaryMarkdown builds the headline section of the report as markdown so
// it goes through the same renderer as PR comments.
func summaryMarkdown(run model.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** pull request #%d, commit `%s`.\n\n", capitalize(string(run.Action)), run.PRNumber, shortSHA(run.HeadSHA))

	switch run.State {
	case model.RunStateSucceeded:
		b.WriteString("All matched files are formatted correctly.\n")
	case model.RunStateFailed:
		fmt.Fprintf(&b, "Run failed: `%s`.\n", run.Reason)
		if run.AutofixSHA != "" {
			fmt.Fprintf(&b, "\nA corrective commit `%s` was pushed to `%s`.\n", shortSHA(run.AutofixSHA), run.HeadBranch)
		}
	default:
		b.WriteString("Run has not finished yet.\n")
	}

	if len(run.MatchedFiles) > 0 {
		b.WriteString("\nMatched files:\n\n")
		for _, f := range run.MatchedFiles {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
	}

	return b.String()
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.Round(time.Millisecond).String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; color: #1f2328; }
h1 { font-size: 1.4rem; }
.state { display: inline-block; padding: 0.1rem 0.6rem; border-radius: 1rem; font-size: 0.85rem; color: #fff; }
.state-succeeded { background: #1a7f37; }
.state-failed { background: #cf222e; }
.state-pending, .state-running { background: #9a6700; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #d1d9e0; }
pre.diff { background: #f6f8fa; padding: 1rem; overflow-x: auto; border-radius: 6px; }
.diff-add { color: #1a7f37; }
.diff-del { color: #cf222e; }
.diff-header { color: #6639ba; }
code { background: #f6f8fa; padding: 0.1rem 0.3rem; border-radius: 4px; }
</style>
</head>
<body>
<h1>{{.Title}} <span class="state state-{{.Run.State}}">{{.Run.State}}</span></h1>
<div>{{.Summary}}</div>
{{if .Duration}}<p>Completed in {{.Duration}}.</p>{{end}}
{{if .Steps}}
<h2>Steps</h2>
<table>
<tr><th>Step</th><th>Result</th><th>Duration</th><th>Output</th></tr>
{{range .Steps}}
<tr><td>{{.Name}}</td><td>{{if .OK}}ok{{else}}failed{{end}}</td><td>{{.Duration}}</td><td>{{.Output}}</td></tr>
{{end}}
</table>
{{end}}
{{if .Diff}}
<h2>Diff</h2>
<pre class="diff">{{.Diff}}</pre>
{{end}}
</body>
</html>
`))
