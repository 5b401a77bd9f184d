package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/formatgate/formatgate/internal/adapter/driven/github"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) (*ghAdapter.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithHTTPClient(
		server.Client(),
		server.URL+"/",
		"formatgate/check",
	)
	require.NoError(t, err)

	return client, server
}

type fileJSON struct {
	Filename string `json:"filename"`
}

func TestFetchChangedFiles_SinglePage(t *testing.T) {
	files := []fileJSON{
		{Filename: "src/lib.rs"},
		{Filename: "Cargo.toml"},
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/lp-parser/pulls/7/files", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(files)
	})

	client, _ := newTestClient(t, handler)
	result, err := client.FetchChangedFiles(context.Background(), "owner/lp-parser", 7)

	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "Cargo.toml"}, result)
}

func TestFetchChangedFiles_Paginated(t *testing.T) {
	var server *httptest.Server

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			json.NewEncoder(w).Encode([]fileJSON{{Filename: "tests/test_from_file.rs"}})
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=2>; rel="next"`, server.URL, r.URL.Path))
		json.NewEncoder(w).Encode([]fileJSON{{Filename: "src/lib.rs"}})
	})

	client, srv := newTestClient(t, handler)
	server = srv

	result, err := client.FetchChangedFiles(context.Background(), "owner/lp-parser", 7)

	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs", "tests/test_from_file.rs"}, result)
}

func TestFetchChangedFiles_InvalidRepoName(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())

	_, err := client.FetchChangedFiles(context.Background(), "not-a-repo", 7)

	assert.Error(t, err)
}

func TestFetchPullRequestHead(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/lp-parser/pulls/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"number": 7,
			"head": {"ref": "fix-style", "sha": "abc123"},
			"base": {"ref": "main"}
		}`)
	})

	client, _ := newTestClient(t, handler)
	event, err := client.FetchPullRequestHead(context.Background(), "owner/lp-parser", 7)

	require.NoError(t, err)
	assert.Equal(t, "owner/lp-parser", event.RepoFullName)
	assert.Equal(t, 7, event.PRNumber)
	assert.Equal(t, "abc123", event.HeadSHA)
	assert.Equal(t, "fix-style", event.HeadBranch)
	assert.Equal(t, "main", event.BaseBranch)
}

func TestDownloadTarball(t *testing.T) {
	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/lp-parser/tarball/abc123", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/archive-data", http.StatusFound)
	})
	mux.HandleFunc("/archive-data", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tarball-bytes"))
	})

	client, srv := newTestClient(t, mux)
	server = srv

	body, err := client.DownloadTarball(context.Background(), "owner/lp-parser", "abc123")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "tarball-bytes", string(data))
}
