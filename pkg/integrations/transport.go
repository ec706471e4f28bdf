package integrations

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/deputy/pkg/httputil"
	"github.com/matzehuels/deputy/pkg/observability"
)

// Transport decorates an http.RoundTripper with the headers and
// instrumentation every registry request carries: a User-Agent, default
// headers, a request ID, HTTP hooks and debug logging.
//
// Headers already present on the request take precedence over Headers.
type Transport struct {
	Base    http.RoundTripper
	Headers map[string]string
	Logger  *log.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", httputil.UserAgent())
	}
	for k, v := range t.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	id := httputil.NewRequestID()
	req.Header.Set(httputil.RequestIDHeader, id)

	ctx := req.Context()
	host, path := req.URL.Host, req.URL.Path
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	t.logger().Debug("registry request", "method", req.Method, "url", req.URL.Redacted(), "id", id)

	start := time.Now()
	resp, err := t.base().RoundTrip(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, err
	}
	elapsed := time.Since(start)
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, elapsed)
	t.logger().Debug("registry response", "id", id, "status", resp.StatusCode, "elapsed", elapsed)
	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logger() *log.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return log.Default()
}
