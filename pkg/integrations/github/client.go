package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v67/github"

	"github.com/matzehuels/deputy/pkg/cache"
	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/httputil"
	"github.com/matzehuels/deputy/pkg/integrations"
	"github.com/matzehuels/deputy/pkg/ratelimit"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com/"

const releasesPerPage = 100

// Options configures a Client.
type Options struct {
	// BaseURL overrides the API root, for GitHub Enterprise or tests.
	BaseURL string
	// Token authenticates requests. Empty means anonymous (60 requests/hour).
	Token string
	HTTP  integrations.Options
	Now   func() time.Time
}

// Client provides access to the GitHub REST API through go-github.
//
// GitHub enforces a hard rate limit. Once a request is rejected, the client
// enters the limited state and every uncached request fails fast with a
// RATE_LIMITED error until [Client.SetAuthToken] is called. Cached answers
// are still served while limited.
type Client struct {
	*integrations.Client
	baseURL *url.URL
	limit   *ratelimit.Coordinator

	mu sync.RWMutex
	gh *github.Client

	metrics  *cache.Map[RepositoryMetrics]
	releases *cache.Map[[]Release]
	files    *cache.Map[[]byte]
	trees    *cache.Map[Tree]
}

// NewClient creates a GitHub client.
func NewClient(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeClient, err, "invalid GitHub base URL %q", opts.BaseURL)
	}

	c := &Client{
		Client:  integrations.NewClient(opts.HTTP),
		baseURL: u,
		limit:   ratelimit.NewCoordinator("github"),
		metrics: cache.New[RepositoryMetrics](cache.Options{
			Name: "github.metrics", TTL: time.Hour, IdleTTL: 15 * time.Minute, Now: opts.Now,
		}),
		releases: cache.New[[]Release](cache.Options{
			Name: "github.releases", TTL: 30 * time.Minute, IdleTTL: 5 * time.Minute, Now: opts.Now,
		}),
		files: cache.New[[]byte](cache.Options{
			Name: "github.files", TTL: time.Hour, IdleTTL: 15 * time.Minute, Now: opts.Now,
		}),
		trees: cache.New[Tree](cache.Options{
			Name: "github.trees", TTL: 30 * time.Minute, IdleTTL: 5 * time.Minute, Now: opts.Now,
		}),
	}
	c.gh = c.newSDK(opts.Token)
	return c, nil
}

func (c *Client) newSDK(token string) *github.Client {
	gh := github.NewClient(c.HTTPClient())
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	gh.BaseURL = c.baseURL
	gh.UserAgent = httputil.UserAgent()
	return gh
}

func (c *Client) sdk() *github.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gh
}

// IsRateLimited reports whether GitHub has rejected a request and no new
// token has been supplied since.
func (c *Client) IsRateLimited() bool { return c.limit.IsLimited() }

// WaitForRateLimitChange blocks until the rate limit state changes and
// returns the new state.
func (c *Client) WaitForRateLimitChange(ctx context.Context) (bool, error) {
	return c.limit.WaitForChange(ctx)
}

// RateLimitChanged returns a channel closed on the next rate limit state
// change.
func (c *Client) RateLimitChanged() <-chan struct{} { return c.limit.Changed() }

// SetAuthToken switches to an authenticated client. Every cached GitHub
// response is dropped and the rate limit state is reset.
func (c *Client) SetAuthToken(token string) {
	gh := c.newSDK(token)
	c.mu.Lock()
	c.gh = gh
	c.mu.Unlock()

	c.Invalidate()
	if c.limit.Open() {
		c.Logger().Info("GitHub rate limit lifted by new token")
	}
}

// Invalidate drops every cached response.
func (c *Client) Invalidate() {
	c.metrics.Invalidate()
	c.releases.Invalidate()
	c.files.Invalidate()
	c.trees.Invalidate()
}

// RepositoryMetrics fetches the community profile of owner/repo.
func (c *Client) RepositoryMetrics(ctx context.Context, owner, repo string) (RepositoryMetrics, error) {
	o, r, err := normalize(owner, repo)
	if err != nil {
		return RepositoryMetrics{}, err
	}
	return c.metrics.GetOrFetch(ctx, cache.Key(o, r), func(ctx context.Context) (RepositoryMetrics, error) {
		if err := c.checkLimit(); err != nil {
			return RepositoryMetrics{}, err
		}
		c.Logger().Debug("fetching GitHub metrics", "repo", o+"/"+r)

		m, _, err := c.sdk().Repositories.GetCommunityHealthMetrics(ctx, o, r)
		if err != nil {
			return RepositoryMetrics{}, c.fail(err, "metrics for %s/%s", o, r)
		}
		return convertMetrics(m), nil
	})
}

// RepositoryReleases fetches the most recent releases of owner/repo,
// newest first as returned by GitHub. Only the first page is read.
func (c *Client) RepositoryReleases(ctx context.Context, owner, repo string) ([]Release, error) {
	o, r, err := normalize(owner, repo)
	if err != nil {
		return nil, err
	}
	return c.releases.GetOrFetch(ctx, cache.Key(o, r), func(ctx context.Context) ([]Release, error) {
		if err := c.checkLimit(); err != nil {
			return nil, err
		}
		c.Logger().Debug("fetching GitHub releases", "repo", o+"/"+r)

		rels, _, err := c.sdk().Repositories.ListReleases(ctx, o, r, &github.ListOptions{PerPage: releasesPerPage})
		if err != nil {
			return nil, c.fail(err, "releases for %s/%s", o, r)
		}
		out := make([]Release, 0, len(rels))
		for _, rel := range rels {
			out = append(out, convertRelease(rel))
		}
		return out, nil
	})
}

// RepositoryFile fetches the raw contents of a file on the default branch.
// A directory path is a NOT_FOUND.
func (c *Client) RepositoryFile(ctx context.Context, owner, repo, path string) ([]byte, error) {
	o, r, err := normalize(owner, repo)
	if err != nil {
		return nil, err
	}
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	return c.files.GetOrFetch(ctx, cache.Key(o, r, path), func(ctx context.Context) ([]byte, error) {
		if err := c.checkLimit(); err != nil {
			return nil, err
		}
		c.Logger().Debug("fetching GitHub file", "repo", o+"/"+r, "path", path)

		file, _, _, err := c.sdk().Repositories.GetContents(ctx, o, r, path, nil)
		if err != nil {
			return nil, c.fail(err, "file %s in %s/%s", path, o, r)
		}
		if file == nil {
			return nil, errors.New(errors.ErrCodeNotFound, "%s in %s/%s is a directory", path, o, r)
		}
		content, err := file.GetContent()
		if err != nil {
			err = httputil.DecodeError(file.GetURL(), err)
			c.Emit(err)
			return nil, err
		}
		return []byte(content), nil
	})
}

// RepositoryTree fetches one level of the git tree identified by sha, which
// may also be a branch name.
func (c *Client) RepositoryTree(ctx context.Context, owner, repo, sha string) (Tree, error) {
	o, r, err := normalize(owner, repo)
	if err != nil {
		return Tree{}, err
	}
	return c.trees.GetOrFetch(ctx, cache.Key(o, r, sha), func(ctx context.Context) (Tree, error) {
		if err := c.checkLimit(); err != nil {
			return Tree{}, err
		}
		c.Logger().Debug("fetching GitHub tree", "repo", o+"/"+r, "sha", sha)

		t, _, err := c.sdk().Git.GetTree(ctx, o, r, sha, false)
		if err != nil {
			return Tree{}, c.fail(err, "tree %s of %s/%s", sha, o, r)
		}
		return convertTree(t), nil
	})
}

func normalize(owner, repo string) (string, string, error) {
	o, r := strings.ToLower(strings.TrimSpace(owner)), strings.ToLower(strings.TrimSpace(repo))
	if err := ValidateRepoRef(o, r); err != nil {
		return "", "", err
	}
	return o, r, nil
}

func (c *Client) checkLimit() error {
	if c.limit.IsLimited() {
		return errors.New(errors.ErrCodeRateLimited, "GitHub rate limit reached; set a token to continue")
	}
	return nil
}

// fail classifies an SDK error. Rate limit rejections move the client into
// the limited state; other failures except NOT_FOUND are logged.
func (c *Client) fail(err error, format string, args ...any) error {
	classified := classify(err, format, args...)
	if errors.IsRateLimited(classified) {
		if c.limit.EnterLimited() {
			c.Logger().Warn("GitHub rate limit reached", "err", err)
		}
		return classified
	}
	c.Emit(classified)
	return classified
}

func classify(err error, format string, args ...any) error {
	var (
		rateErr  *github.RateLimitError
		abuseErr *github.AbuseRateLimitError
		respErr  *github.ErrorResponse
	)
	switch {
	case stderrors.As(err, &rateErr), stderrors.As(err, &abuseErr):
		return errors.Wrap(errors.ErrCodeRateLimited, err, "rate limited fetching %s", fmt.Sprintf(format, args...))
	case stderrors.As(err, &respErr) && respErr.Response != nil:
		resp := respErr.Response
		reqURL := ""
		if resp.Request != nil {
			reqURL = resp.Request.URL.String()
		}
		if classified := httputil.CheckResponse(http.MethodGet, reqURL, resp.StatusCode, []byte(respErr.Message)); classified != nil {
			return classified
		}
	}
	return httputil.TransportError(http.MethodGet, "GitHub "+fmt.Sprintf(format, args...), err)
}
