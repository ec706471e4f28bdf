package npm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/deputy/pkg/cache"
	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/httputil"
	"github.com/matzehuels/deputy/pkg/integrations"
)

// DefaultRegistryURL is the public npm registry.
const DefaultRegistryURL = "https://registry.npmjs.org"

// Options configures a Client.
type Options struct {
	RegistryURL string
	HTTP        integrations.Options
	Now         func() time.Time
}

// Client provides access to the npm registry.
type Client struct {
	*integrations.Client
	baseURL  string
	metadata *cache.Map[RegistryMetadata]
}

// NewClient creates an npm registry client.
func NewClient(opts Options) *Client {
	if opts.RegistryURL == "" {
		opts.RegistryURL = DefaultRegistryURL
	}
	return &Client{
		Client:  integrations.NewClient(opts.HTTP),
		baseURL: opts.RegistryURL,
		metadata: cache.New[RegistryMetadata](cache.Options{
			Name: "npm.metadata", TTL: time.Hour, IdleTTL: 15 * time.Minute, Now: opts.Now,
		}),
	}
}

// RegistryMetadata fetches the full packument of a package. Each entry of
// Versions has its Version field set from its map key.
//
// Returns a NOT_FOUND error if the package does not exist.
func (c *Client) RegistryMetadata(ctx context.Context, name string) (RegistryMetadata, error) {
	n := integrations.NormalizePkgName(name)
	if err := errors.ValidateNpmPackageName(n); err != nil {
		return RegistryMetadata{}, err
	}
	url := c.baseURL + "/" + integrations.PathEscape(n)

	return c.metadata.GetOrFetch(ctx, cache.Key(n), func(ctx context.Context) (RegistryMetadata, error) {
		c.Logger().Debug("fetching npm registry metadata", "package", n)

		text, err := c.GetText(ctx, url)
		if err != nil {
			if errors.IsNotFound(err) {
				return RegistryMetadata{}, errors.Wrap(errors.ErrCodeNotFound, err, "npm package %s not found", n)
			}
			c.Emit(err)
			return RegistryMetadata{}, err
		}

		meta, err := decodeMetadata(url, text)
		c.Emit(err)
		return meta, err
	})
}

func decodeMetadata(url, text string) (RegistryMetadata, error) {
	var meta RegistryMetadata
	if err := json.Unmarshal([]byte(text), &meta); err != nil {
		return RegistryMetadata{}, httputil.DecodeError(url, err)
	}
	for key, v := range meta.Versions {
		v.Version = key
		meta.Versions[key] = v
	}
	return meta, nil
}

// Versions is shorthand for RegistryMetadata followed by VersionList.
func (c *Client) Versions(ctx context.Context, name string) ([]VersionMetadata, error) {
	meta, err := c.RegistryMetadata(ctx, name)
	if err != nil {
		return nil, err
	}
	return meta.VersionList(), nil
}

// Invalidate drops every cached response.
func (c *Client) Invalidate() { c.metadata.Invalidate() }
