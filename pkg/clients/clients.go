// Package clients bundles the registry clients handed to the feature layer.
//
// A single [Clients] value owns every cache and rate limit state for the
// lifetime of a process. Build it once from a [config.Config] and share it
// across goroutines.
package clients

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/deputy/pkg/config"
	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/integrations"
	"github.com/matzehuels/deputy/pkg/integrations/crates"
	"github.com/matzehuels/deputy/pkg/integrations/github"
	"github.com/matzehuels/deputy/pkg/integrations/npm"
	"github.com/matzehuels/deputy/pkg/integrations/wally"
	"github.com/matzehuels/deputy/pkg/versioning"
)

// Options carries process-level dependencies that do not belong in the
// config file.
type Options struct {
	Logger     *log.Logger
	HTTPClient *http.Client
	Now        func() time.Time
}

// Clients is the set of registry clients.
type Clients struct {
	Crates *crates.Client
	Npm    *npm.Client
	GitHub *github.Client
	Wally  *wally.Client

	wallyIndex string
	logger     *log.Logger
}

// New builds every registry client from cfg. Unset config fields take
// their defaults.
func New(cfg config.Config, opts Options) (*Clients, error) {
	cfg = cfg.WithDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	httpOpts := integrations.Options{
		Timeout:    cfg.HTTP.Timeout.Duration,
		Logger:     logger,
		HTTPClient: opts.HTTPClient,
	}

	gh, err := github.NewClient(github.Options{
		BaseURL: cfg.GitHub.BaseURL,
		Token:   cfg.GitHub.Token,
		HTTP:    httpOpts,
		Now:     opts.Now,
	})
	if err != nil {
		return nil, err
	}

	return &Clients{
		Crates: crates.NewClient(crates.Options{
			IndexURL:      cfg.Crates.IndexURL,
			APIURL:        cfg.Crates.APIURL,
			CrawlInterval: cfg.Crates.CrawlInterval.Duration,
			HTTP:          httpOpts,
			Now:           opts.Now,
		}),
		Npm: npm.NewClient(npm.Options{
			RegistryURL: cfg.Npm.RegistryURL,
			HTTP:        httpOpts,
			Now:         opts.Now,
		}),
		GitHub:     gh,
		Wally:      wally.NewClient(wally.Options{GitHub: gh, Now: opts.Now}),
		wallyIndex: cfg.Wally.IndexURL,
		logger:     logger,
	}, nil
}

// WallyIndex returns the configured default Wally index URL.
func (c *Clients) WallyIndex() string { return c.wallyIndex }

// IsRateLimited reports whether GitHub requests are currently refused.
func (c *Clients) IsRateLimited() bool { return c.GitHub.IsRateLimited() }

// SetAuthToken authenticates GitHub requests with token. Cached GitHub and
// Wally data is dropped and the rate limit is lifted.
func (c *Clients) SetAuthToken(token string) {
	c.Wally.Invalidate()
	c.GitHub.SetAuthToken(token)
}

// Invalidate drops every cached response of every client.
func (c *Clients) Invalidate() {
	c.Crates.Invalidate()
	c.Npm.Invalidate()
	c.GitHub.Invalidate()
	c.Wally.Invalidate()
}

// Registry names a package source.
type Registry string

const (
	Crates Registry = "crates"
	Npm    Registry = "npm"
	GitHub Registry = "github"
	Wally  Registry = "wally"
)

// Registries lists every supported registry.
var Registries = []Registry{Crates, Npm, GitHub, Wally}

// ParseRegistry resolves a registry name, case-insensitively.
func ParseRegistry(s string) (Registry, error) {
	r := Registry(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Registries {
		if r == known {
			return r, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown registry %q (want crates, npm, github or wally)", s)
}

// Candidates returns the published versions of name in registry r. GitHub
// names are "owner/repo" and Wally names are "scope/name" looked up in the
// configured index.
func (c *Clients) Candidates(ctx context.Context, r Registry, name string) ([]versioning.Versioned, error) {
	switch r {
	case Crates:
		metas, err := c.Crates.SparseIndexMetadatas(ctx, name)
		return toVersioned(metas), err
	case Npm:
		versions, err := c.Npm.Versions(ctx, name)
		return toVersioned(versions), err
	case GitHub:
		owner, repo, err := github.ParseRepoRef(name)
		if err != nil {
			return nil, err
		}
		releases, err := c.GitHub.RepositoryReleases(ctx, owner, repo)
		return toVersioned(releases), err
	case Wally:
		scope, pkg, ok := strings.Cut(name, "/")
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidPackage, "invalid Wally package name (want scope/name): %q", name)
		}
		metas, err := c.Wally.IndexMetadatas(ctx, c.wallyIndex, scope, pkg)
		return toVersioned(metas), err
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported registry %q", r)
	}
}

func toVersioned[T versioning.Versioned](items []T) []versioning.Versioned {
	if items == nil {
		return nil
	}
	out := make([]versioning.Versioned, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
