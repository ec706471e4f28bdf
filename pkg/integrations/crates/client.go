package crates

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/matzehuels/deputy/pkg/cache"
	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/httputil"
	"github.com/matzehuels/deputy/pkg/integrations"
	"github.com/matzehuels/deputy/pkg/ratelimit"
)

const (
	// DefaultIndexURL is the crates.io sparse index.
	DefaultIndexURL = "https://index.crates.io"
	// DefaultAPIURL is the crates.io REST API.
	DefaultAPIURL = "https://crates.io/api/v1"

	searchPageSize = 32
)

// Options configures a Client. Zero values use crates.io defaults.
type Options struct {
	IndexURL      string
	APIURL        string
	CrawlInterval time.Duration
	HTTP          integrations.Options
	Now           func() time.Time
}

// Client provides access to the crates.io sparse index and API.
//
// Index lookups are unthrottled. API lookups (crate data and search) go
// through a crawl limiter that allows one request per interval, as required
// by the crates.io data access policy.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	indexURL string
	apiURL   string
	crawl    *ratelimit.CrawlLimiter

	index  *cache.Map[[]IndexMetadata]
	crates *cache.Map[CrateData]
	search *cache.Map[[]CrateData]
}

// NewClient creates a crates.io client.
func NewClient(opts Options) *Client {
	if opts.IndexURL == "" {
		opts.IndexURL = DefaultIndexURL
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	return &Client{
		Client:   integrations.NewClient(opts.HTTP),
		indexURL: opts.IndexURL,
		apiURL:   opts.APIURL,
		crawl:    ratelimit.NewCrawlLimiter("crates.api", opts.CrawlInterval),
		index: cache.New[[]IndexMetadata](cache.Options{
			Name: "crates.index", TTL: time.Hour, IdleTTL: 15 * time.Minute, Now: opts.Now,
		}),
		crates: cache.New[CrateData](cache.Options{
			Name: "crates.data", TTL: 4 * time.Hour, IdleTTL: 2 * time.Hour, Now: opts.Now,
		}),
		search: cache.New[[]CrateData](cache.Options{
			Name: "crates.search", TTL: 8 * time.Hour, IdleTTL: 4 * time.Hour, Now: opts.Now,
		}),
	}
}

// IndexPath returns the sparse index path for a crate name:
// "1/a", "2/ab", "3/a/abc" or "se/rd/serde".
func IndexPath(name string) string {
	n := integrations.NormalizePkgName(name)
	switch len(n) {
	case 1, 2:
		return fmt.Sprintf("%d/%s", len(n), n)
	case 3:
		return fmt.Sprintf("3/%s/%s", n[:1], n)
	default:
		return fmt.Sprintf("%s/%s/%s", n[:2], n[2:4], n)
	}
}

// SparseIndexMetadatas returns every published version of a crate, newest
// first. Yanked versions are included and flagged.
//
// Returns a NOT_FOUND error if the crate does not exist.
func (c *Client) SparseIndexMetadatas(ctx context.Context, name string) ([]IndexMetadata, error) {
	if err := errors.ValidateCratesPackageName(name); err != nil {
		return nil, err
	}
	n := integrations.NormalizePkgName(name)
	url := c.indexURL + "/" + IndexPath(n)

	return c.index.GetOrFetch(ctx, cache.Key(n), func(ctx context.Context) ([]IndexMetadata, error) {
		c.Logger().Debug("fetching crates index metadatas", "crate", n)
		metas, err := c.fetchIndex(ctx, url)
		if errors.IsNotFound(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "crate %s not found", n)
		}
		c.Emit(err)
		return metas, err
	})
}

func (c *Client) fetchIndex(ctx context.Context, url string) ([]IndexMetadata, error) {
	body, err := c.GetBytes(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if err := httputil.CheckUTF8(url, body); err != nil {
		return nil, err
	}
	metas, err := ParseIndexLines(body)
	if err != nil {
		return nil, httputil.DecodeError(url, err)
	}
	slices.Reverse(metas)
	return metas, nil
}

// ParseIndexLines decodes line-delimited index JSON in file order.
// Blank lines are skipped.
func ParseIndexLines(body []byte) ([]IndexMetadata, error) {
	var out []IndexMetadata
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var m IndexMetadata
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, sc.Err()
}

// CrateData fetches crate-level information (description, links,
// download counts) from the crates.io API. Crawl limited.
func (c *Client) CrateData(ctx context.Context, name string) (CrateData, error) {
	if err := errors.ValidateCratesPackageName(name); err != nil {
		return CrateData{}, err
	}
	n := integrations.NormalizePkgName(name)
	url := fmt.Sprintf("%s/crates/%s?include=downloads,versions", c.apiURL, n)

	return c.crates.GetOrFetch(ctx, cache.Key(n), func(ctx context.Context) (CrateData, error) {
		if err := c.crawl.Acquire(ctx); err != nil {
			return CrateData{}, err
		}
		c.Logger().Debug("fetching crate data", "crate", n)

		var resp crateResponse
		err := c.Get(ctx, url, &resp)
		if errors.IsNotFound(err) {
			return CrateData{}, errors.Wrap(errors.ErrCodeNotFound, err, "crate %s not found", n)
		}
		c.Emit(err)
		return resp.Crate, err
	})
}

// SearchCrates searches crates.io, returning at most one page of results.
// Crawl limited.
func (c *Client) SearchCrates(ctx context.Context, query string) ([]CrateData, error) {
	q := integrations.NormalizePkgName(query)
	url := fmt.Sprintf("%s/crates?page=1&per_page=%d&q=%s", c.apiURL, searchPageSize, integrations.URLEncode(q))

	return c.search.GetOrFetch(ctx, cache.Key(q), func(ctx context.Context) ([]CrateData, error) {
		if err := c.crawl.Acquire(ctx); err != nil {
			return nil, err
		}
		c.Logger().Debug("searching crates", "query", q)

		var resp searchResponse
		err := c.Get(ctx, url, &resp)
		c.Emit(err)
		return resp.Crates, err
	})
}

// IsCrawlLimited reports whether an API crawl window is open.
func (c *Client) IsCrawlLimited() bool { return c.crawl.IsLimited() }

// Invalidate drops every cached response.
func (c *Client) Invalidate() {
	c.index.Invalidate()
	c.crates.Invalidate()
	c.search.Invalidate()
}
