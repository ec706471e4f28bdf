package integrations

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/matzehuels/deputy/pkg/errors"
)

const httpTimeout = 10 * time.Second

// NewHTTPClient creates an HTTP client with a request timeout.
// A non-positive timeout uses the 10 second default.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = httpTimeout
	}
	return &http.Client{Timeout: timeout}
}

// NormalizePkgName converts a package name to its canonical lookup form.
func NormalizePkgName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
	"git+ssh://git@github.com/", "https://github.com/",
)

// NormalizeRepoURL converts various repository URL formats to canonical HTTPS form.
// Handles git@, git://, and git+ prefixes, and removes .git suffixes.
// Returns empty string if raw is empty.
func NormalizeRepoURL(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(raw)
	s = repoURLReplacer.Replace(s)
	s = strings.TrimPrefix(s, "git+")
	return strings.TrimSuffix(s, ".git")
}

var githubRepoRegex = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)

// ParseGitHubURL extracts owner and repository from a
// https://github.com/owner/repo[.git] URL.
func ParseGitHubURL(raw string) (owner, repo string, err error) {
	m := githubRepoRegex.FindStringSubmatch(NormalizeRepoURL(raw))
	if m == nil {
		return "", "", errors.New(errors.ErrCodeClient, "not a GitHub repository URL: %q", raw)
	}
	return m[1], m[2], nil
}

// URLEncode percent-encodes a string for use in URLs.
// This is a convenience wrapper around [url.QueryEscape].
func URLEncode(s string) string { return url.QueryEscape(s) }

// PathEscape percent-encodes a path segment, keeping the "/" of scoped npm
// names such as "@types/node" escaped as %2F.
func PathEscape(s string) string { return url.PathEscape(s) }
