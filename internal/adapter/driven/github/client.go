// Package github implements the GitHubClient and GitHubWriter ports using
// the go-github library.
package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/formatgate/formatgate/internal/domain/model"
	"github.com/formatgate/formatgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the GitHubClient and GitHubWriter ports.
type Client struct {
	gh            *gh.Client
	httpClient    *http.Client
	statusContext string
}

// NewClient creates a new GitHub API client with the following transport
// stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// statusContext is the name under which commit statuses are reported.
func NewClient(token, statusContext string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:            client,
		httpClient:    client.Client(),
		statusContext: statusContext,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, statusContext string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:            client,
		httpClient:    httpClient,
		statusContext: statusContext,
	}, nil
}

// FetchChangedFiles returns the paths touched by a pull request's diff.
// It handles pagination automatically.
func (c *Client) FetchChangedFiles(ctx context.Context, repoFullName string, prNumber int) ([]string, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var paths []string

	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing files for %s#%d (page %d): %w", repoFullName, prNumber, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/files", opts.Page, len(files))

		for _, f := range files {
			paths = append(paths, f.GetFilename())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return paths, nil
}

// FetchPullRequestHead returns the head SHA and branch names for a PR. Used
// by the one-shot CLI, which has no webhook payload to read from.
func (c *Client) FetchPullRequestHead(ctx context.Context, repoFullName string, prNumber int) (*model.PullRequestEvent, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("fetching PR %s#%d: %w", repoFullName, prNumber, err)
	}

	logRateLimit(resp, repoFullName+"/pr", 0, 1)

	return &model.PullRequestEvent{
		RepoFullName: repoFullName,
		PRNumber:     prNumber,
		HeadSHA:      pr.GetHead().GetSHA(),
		HeadBranch:   pr.GetHead().GetRef(),
		BaseBranch:   pr.GetBase().GetRef(),
	}, nil
}

// DownloadTarball streams a gzip tarball of the tree at the given ref. The
// caller must close the returned reader.
func (c *Client) DownloadTarball(ctx context.Context, repoFullName string, ref string) (io.ReadCloser, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	link, resp, err := c.gh.Repositories.GetArchiveLink(ctx, owner, repo, gh.Tarball,
		&gh.RepositoryContentGetOptions{Ref: ref}, 3)
	if err != nil {
		return nil, fmt.Errorf("resolving tarball link for %s@%s: %w", repoFullName, ref, err)
	}

	logRateLimit(resp, repoFullName+"/tarball", 0, 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building tarball request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading tarball for %s@%s: %w", repoFullName, ref, err)
	}
	if res.StatusCode != http.StatusOK {
		_ = res.Body.Close()
		return nil, fmt.Errorf("downloading tarball for %s@%s: unexpected status %d", repoFullName, ref, res.StatusCode)
	}

	return res.Body, nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
