package integrations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/httputil"
)

// Options configures a Client.
type Options struct {
	// Timeout bounds each request. Zero uses the 10 second default.
	Timeout time.Duration

	// Headers are applied to every request.
	Headers map[string]string

	// Logger receives debug and error output. Nil uses log.Default().
	Logger *log.Logger

	// HTTPClient overrides the underlying client; its Timeout is left as is.
	HTTPClient *http.Client
}

// Client provides shared HTTP functionality for all registry API clients.
// It handles common request headers, classification of failures into
// [errors.Code] values, and logging.
//
// Client holds no cache; each registry client owns its own cache maps.
type Client struct {
	http   *http.Client
	logger *log.Logger
}

// NewClient creates a Client. The underlying http.Client is copied and its
// transport wrapped in a [Transport].
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = NewHTTPClient(opts.Timeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	wrapped := *hc
	wrapped.Transport = &Transport{Base: hc.Transport, Headers: opts.Headers, Logger: logger}
	return &Client{
		http:   &wrapped,
		logger: logger,
	}
}

// Logger returns the client logger.
func (c *Client) Logger() *log.Logger { return c.logger }

// HTTPClient returns the instrumented http.Client, for SDKs that issue
// their own requests.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
// A body that is not valid UTF-8 is a DECODE_ERROR.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	body, err := c.GetBytes(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := httputil.CheckUTF8(url, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return httputil.DecodeError(url, err)
	}
	return nil
}

// GetText performs an HTTP GET request and returns the response body as a string.
// A body that is not valid UTF-8 is a DECODE_ERROR.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	body, err := c.GetBytes(ctx, url, nil)
	if err != nil {
		return "", err
	}
	if err := httputil.CheckUTF8(url, body); err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBytes performs an HTTP GET and returns the raw body of a 2xx response.
func (c *Client) GetBytes(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, errors.Wrap(errors.ErrCodeClient, err, "invalid URL %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeClient, err, "building request for %s", rawURL)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, httputil.TransportError(http.MethodGet, rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, httputil.TransportError(http.MethodGet, rawURL, err)
	}
	if err := httputil.CheckResponse(http.MethodGet, rawURL, resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// Emit logs err at error level unless it is nil or NOT_FOUND, which callers
// treat as a regular answer.
func (c *Client) Emit(err error) {
	if err == nil || errors.IsNotFound(err) {
		return
	}
	c.logger.Error("registry request failed", "err", err)
}
