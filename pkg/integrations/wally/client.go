package wally

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/deputy/pkg/cache"
	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/httputil"
	"github.com/matzehuels/deputy/pkg/integrations"
	"github.com/matzehuels/deputy/pkg/integrations/github"
)

// DefaultIndexURL is the public Wally index.
const DefaultIndexURL = "https://github.com/UpliftGames/wally-index"

const (
	indexBranch = "main"
	configFile  = "config.json"
)

// Options configures a Client.
type Options struct {
	// GitHub serves every index read. Required.
	GitHub *github.Client
	Now    func() time.Time
}

// Client reads Wally package indexes, which are GitHub repositories laid
// out as scope directories holding one line-delimited JSON file per
// package. Indexes may name fallback indexes in their config.json; lookups
// walk them breadth first.
//
// All reads go through the GitHub client and share its rate limit.
type Client struct {
	gh      *github.Client
	configs *cache.Map[IndexConfig]
}

// NewClient creates a Wally client on top of a GitHub client.
func NewClient(opts Options) *Client {
	return &Client{
		gh: opts.GitHub,
		configs: cache.New[IndexConfig](cache.Options{
			Name: "wally.configs", TTL: 30 * 24 * time.Hour, IdleTTL: 7 * 24 * time.Hour, Now: opts.Now,
		}),
	}
}

// ParseIndexURL returns the GitHub owner and repository of an index URL.
// The URL is lower-cased first.
func ParseIndexURL(indexURL string) (owner, repo string, err error) {
	return integrations.ParseGitHubURL(strings.ToLower(strings.TrimSpace(indexURL)))
}

// IndexConfig fetches and decodes config.json of an index.
func (c *Client) IndexConfig(ctx context.Context, indexURL string) (IndexConfig, error) {
	owner, repo, err := ParseIndexURL(indexURL)
	if err != nil {
		return IndexConfig{}, err
	}
	return c.configs.GetOrFetch(ctx, cache.Key(owner, repo), func(ctx context.Context) (IndexConfig, error) {
		body, err := c.gh.RepositoryFile(ctx, owner, repo, configFile)
		if err != nil {
			return IndexConfig{}, err
		}
		if err := httputil.CheckUTF8(indexURL+"/"+configFile, body); err != nil {
			return IndexConfig{}, err
		}
		var cfg IndexConfig
		if err := json.Unmarshal(body, &cfg); err != nil {
			return IndexConfig{}, httputil.DecodeError(indexURL+"/"+configFile, err)
		}
		c.gh.Logger().Debug("wally index config", "index", owner+"/"+repo, "api", cfg.APIURL, "fallbacks", len(cfg.FallbackRegistries))
		return cfg, nil
	})
}

// IndexURLs returns indexURL followed by its fallback indexes in breadth
// first order, each visited once. URLs are lower-cased.
func (c *Client) IndexURLs(ctx context.Context, indexURL string) ([]string, error) {
	start := strings.ToLower(strings.TrimSpace(indexURL))
	visited := map[string]bool{start: true}
	pending := []string{start}

	var out []string
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]

		cfg, err := c.IndexConfig(ctx, current)
		if err != nil {
			return nil, err
		}
		out = append(out, current)
		for _, fallback := range cfg.FallbackRegistries {
			f := strings.ToLower(strings.TrimSpace(fallback))
			if !visited[f] {
				visited[f] = true
				pending = append(pending, f)
			}
		}
	}
	return out, nil
}

// IndexScopes returns the sorted union of scopes across an index and its
// fallbacks.
func (c *Client) IndexScopes(ctx context.Context, indexURL string) ([]string, error) {
	urls, err := c.IndexURLs(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	results := make([][]string, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			owner, repo, err := ParseIndexURL(u)
			if err != nil {
				return err
			}
			root, err := c.gh.RepositoryTree(gctx, owner, repo, indexBranch)
			if err != nil {
				return err
			}
			results[i] = root.DirectoryPaths()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var scopes []string
	for _, r := range results {
		scopes = append(scopes, r...)
	}
	sort.Strings(scopes)
	return slices.Compact(scopes), nil
}

// IndexPackages returns the package names in scope across an index and its
// fallbacks.
//
// Returns a NOT_FOUND error if no index has the scope.
func (c *Client) IndexPackages(ctx context.Context, indexURL, scope string) ([]string, error) {
	s := strings.ToLower(strings.TrimSpace(scope))
	urls, err := c.IndexURLs(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	var (
		found    bool
		packages []string
	)
	for _, u := range urls {
		owner, repo, err := ParseIndexURL(u)
		if err != nil {
			return nil, err
		}
		root, err := c.gh.RepositoryTree(ctx, owner, repo, indexBranch)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		node, ok := root.FindNodeByPath(s)
		if !ok || node.Kind != github.NodeTree {
			continue
		}
		tree, err := c.gh.RepositoryTree(ctx, owner, repo, node.SHA)
		if err != nil {
			return nil, err
		}
		found = true
		packages = append(packages, tree.FilePathsExcludingJSON()...)
	}
	if !found {
		return nil, errors.New(errors.ErrCodeNotFound, "no packages found for scope %q", s)
	}
	sort.Strings(packages)
	return slices.Compact(packages), nil
}

// IndexMetadatas returns every published version of scope/name, newest
// first. The first index in fallback order that has the package wins.
//
// Returns a NOT_FOUND error if no index has the package.
func (c *Client) IndexMetadatas(ctx context.Context, indexURL, scope, name string) ([]Metadata, error) {
	s := strings.ToLower(strings.TrimSpace(scope))
	n := strings.ToLower(strings.TrimSpace(name))
	if err := errors.ValidateWallyPackageName(s + "/" + n); err != nil {
		return nil, err
	}
	urls, err := c.IndexURLs(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	for _, u := range urls {
		owner, repo, err := ParseIndexURL(u)
		if err != nil {
			return nil, err
		}
		body, err := c.gh.RepositoryFile(ctx, owner, repo, s+"/"+n)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := httputil.CheckUTF8(u+"/"+s+"/"+n, body); err != nil {
			return nil, err
		}
		metas, err := ParseMetadataLines(body)
		if err != nil {
			return nil, httputil.DecodeError(u+"/"+s+"/"+n, err)
		}
		slices.Reverse(metas)
		return metas, nil
	}
	return nil, errors.New(errors.ErrCodeNotFound, "package %s/%s not found in any index", s, n)
}

// ParseMetadataLines decodes a line-delimited package file in file order.
func ParseMetadataLines(body []byte) ([]Metadata, error) {
	var out []Metadata
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var m Metadata
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, sc.Err()
}

// Invalidate drops cached index configs. File and tree responses live in
// the GitHub client and are dropped by its Invalidate.
func (c *Client) Invalidate() { c.configs.Invalidate() }
