package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formatgate/formatgate/internal/domain/port/driven"
)

func TestSetCommitStatus(t *testing.T) {
	var received map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/owner/lp-parser/statuses/abc123", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 1}`)
	})

	client, _ := newTestClient(t, handler)
	err := client.SetCommitStatus(context.Background(), "owner/lp-parser", "abc123",
		driven.StatusFailure, "formatting violations in 2 files", "https://gate.example/runs/9")

	require.NoError(t, err)
	assert.Equal(t, "failure", received["state"])
	assert.Equal(t, "formatgate/check", received["context"])
	assert.Equal(t, "formatting violations in 2 files", received["description"])
	assert.Equal(t, "https://gate.example/runs/9", received["target_url"])
}

func TestSetCommitStatus_TruncatesLongDescription(t *testing.T) {
	var received map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 1}`)
	})

	client, _ := newTestClient(t, handler)

	long := ""
	for i := 0; i < 30; i++ {
		long += "violation "
	}
	err := client.SetCommitStatus(context.Background(), "owner/lp-parser", "abc123",
		driven.StatusFailure, long, "")

	require.NoError(t, err)
	desc, _ := received["description"].(string)
	assert.LessOrEqual(t, len(desc), 140)
}

func TestCreateIssueComment(t *testing.T) {
	var received map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/lp-parser/issues/7/comments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 2}`)
	})

	client, _ := newTestClient(t, handler)
	err := client.CreateIssueComment(context.Background(), "owner/lp-parser", 7, "detail body")

	require.NoError(t, err)
	assert.Equal(t, "detail body", received["body"])
}

func TestPushCommit(t *testing.T) {
	var (
		blobCount  int
		treeBase   string
		commitMsg  string
		updatedRef string
		updatedSHA string
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/owner/lp-parser/git/commits/parent-sha", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha": "parent-sha", "tree": {"sha": "base-tree"}}`)
	})
	mux.HandleFunc("POST /repos/owner/lp-parser/git/blobs", func(w http.ResponseWriter, r *http.Request) {
		blobCount++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"sha": "blob-%d"}`, blobCount)
	})
	mux.HandleFunc("POST /repos/owner/lp-parser/git/trees", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			BaseTree string `json:"base_tree"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		treeBase = body.BaseTree
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"sha": "new-tree"}`)
	})
	mux.HandleFunc("POST /repos/owner/lp-parser/git/commits", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		commitMsg = body.Message
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"sha": "fix-sha"}`)
	})
	mux.HandleFunc("PATCH /repos/owner/lp-parser/git/refs/heads/fix-style", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SHA string `json:"sha"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		updatedRef = r.URL.Path
		updatedSHA = body.SHA
		fmt.Fprint(w, `{"ref": "refs/heads/fix-style", "object": {"sha": "fix-sha"}}`)
	})

	client, _ := newTestClient(t, mux)

	sha, err := client.PushCommit(context.Background(), "owner/lp-parser", "fix-style", "parent-sha",
		"apply automated formatting", []driven.FixedFile{
			{Path: "src/lib.rs", Content: []byte("fn main() {}\n")},
			{Path: "src/model/objective.rs", Content: []byte("pub struct Objective;\n")},
		})

	require.NoError(t, err)
	assert.Equal(t, "fix-sha", sha)
	assert.Equal(t, 2, blobCount)
	assert.Equal(t, "base-tree", treeBase)
	assert.Equal(t, "apply automated formatting", commitMsg)
	assert.Contains(t, updatedRef, "refs/heads/fix-style")
	assert.Equal(t, "fix-sha", updatedSHA)
}

func TestPushCommit_NoFiles(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())

	_, err := client.PushCommit(context.Background(), "owner/lp-parser", "branch", "sha", "msg", nil)

	assert.Error(t, err)
}
