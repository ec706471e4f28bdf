package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/integrations"
	"github.com/matzehuels/deputy/pkg/versioning"
)

func testClient(t *testing.T, mux http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := NewClient(Options{
		BaseURL: server.URL,
		HTTP:    integrations.Options{HTTPClient: server.Client(), Logger: log.New(io.Discard)},
	})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

func writeRateLimited(w http.ResponseWriter) {
	w.Header().Set("X-RateLimit-Limit", "60")
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(time.Hour).Unix()))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	io.WriteString(w, `{"message":"API rate limit exceeded for 127.0.0.1.","documentation_url":"https://docs.github.com/rest/overview/resources-in-the-rest-api#rate-limiting"}`)
}

func TestRepositoryReleases(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/uplift/rojo/releases", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("per_page = %q, want 100", got)
		}
		io.WriteString(w, `[
			{"tag_name":"v2.0.0","draft":true},
			{"tag_name":"v1.3.0-beta.1","prerelease":true},
			{"tag_name":"v1.2.0","name":"Rojo 1.2","assets":[{"name":"rojo.zip","content_type":"application/zip","size":10,"download_count":3}]},
			{"tag_name":"1.0.0"}
		]`)
	})
	c := testClient(t, mux)

	rels, err := c.RepositoryReleases(context.Background(), "Uplift", "Rojo")
	if err != nil {
		t.Fatalf("RepositoryReleases() error: %v", err)
	}

	var versions []string
	for _, r := range rels {
		versions = append(versions, r.RawVersion())
	}
	if want := []string{"2.0.0", "1.3.0-beta.1", "1.2.0", "1.0.0"}; !slices.Equal(versions, want) {
		t.Errorf("versions = %v, want %v", versions, want)
	}
	if !rels[0].Deprecated() || rels[2].Deprecated() {
		t.Error("only drafts should be deprecated")
	}
	if len(rels[2].Assets) != 1 || rels[2].Assets[0].DownloadCount != 3 {
		t.Errorf("assets = %+v", rels[2].Assets)
	}

	latest, ok := versioning.ExtractLatest("1.0.0", rels)
	if !ok {
		t.Fatal("ExtractLatest found nothing")
	}
	if latest.Item.TagName != "v1.2.0" {
		t.Errorf("latest = %s, want v1.2.0", latest.Item.TagName)
	}
}

func TestRepositoryMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/community/profile", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"health_percentage":85,"description":"A tool","documentation":"https://docs.example.com"}`)
	})
	c := testClient(t, mux)

	m, err := c.RepositoryMetrics(context.Background(), "owner", "repo")
	if err != nil {
		t.Fatalf("RepositoryMetrics() error: %v", err)
	}
	if m.Description != "A tool" || m.Documentation != "https://docs.example.com" || m.HealthPercentage != 85 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestRepositoryMetricsNotFound(t *testing.T) {
	c := testClient(t, http.NewServeMux())

	_, err := c.RepositoryMetrics(context.Background(), "owner", "missing")
	if !errors.IsNotFound(err) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
	if c.IsRateLimited() {
		t.Error("NOT_FOUND must not enter the rate limited state")
	}
}

func TestRepositoryFile(t *testing.T) {
	content := `{"api":"https://api.wally.run","fallback_registries":[]}`
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/upliftgames/wally-index/contents/config.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"type":"file","encoding":"base64","name":"config.json","path":"config.json","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte(content)))
	})
	mux.HandleFunc("/repos/upliftgames/wally-index/contents/roblox", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"type":"file","name":"roact","path":"roblox/roact"}]`)
	})
	c := testClient(t, mux)

	got, err := c.RepositoryFile(context.Background(), "UpliftGames", "wally-index", "config.json")
	if err != nil {
		t.Fatalf("RepositoryFile() error: %v", err)
	}
	if string(got) != content {
		t.Errorf("content = %q, want %q", got, content)
	}

	if _, err := c.RepositoryFile(context.Background(), "UpliftGames", "wally-index", "roblox"); !errors.IsNotFound(err) {
		t.Errorf("directory error = %v, want NOT_FOUND", err)
	}
	if _, err := c.RepositoryFile(context.Background(), "UpliftGames", "wally-index", "../secrets"); err == nil {
		t.Error("expected path validation error")
	}
}

func TestRepositoryTree(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/index/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"sha":"root","truncated":false,"tree":[
			{"path":"config.json","type":"blob","sha":"a","size":40},
			{"path":"roblox","type":"tree","sha":"b"},
			{"path":"evaera","type":"tree","sha":"c"}
		]}`)
	})
	mux.HandleFunc("/repos/owner/index/git/trees/b", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"sha":"b","tree":[
			{"path":"owners.json","type":"blob","sha":"d"},
			{"path":"roact","type":"blob","sha":"e"},
			{"path":"rodux","type":"blob","sha":"f"}
		]}`)
	})
	c := testClient(t, mux)
	ctx := context.Background()

	root, err := c.RepositoryTree(ctx, "owner", "index", "main")
	if err != nil {
		t.Fatalf("RepositoryTree() error: %v", err)
	}
	if got := root.DirectoryPaths(); !slices.Equal(got, []string{"roblox", "evaera"}) {
		t.Errorf("DirectoryPaths() = %v", got)
	}

	node, ok := root.FindNodeByPath("Roblox")
	if !ok || node.SHA != "b" || node.Kind != NodeTree {
		t.Fatalf("FindNodeByPath(Roblox) = %+v, %v", node, ok)
	}
	if _, ok := root.FindNodeByPath("missing"); ok {
		t.Error("FindNodeByPath(missing) should fail")
	}

	scope, err := c.RepositoryTree(ctx, "owner", "index", node.SHA)
	if err != nil {
		t.Fatalf("RepositoryTree(scope) error: %v", err)
	}
	if got := scope.FilePathsExcludingJSON(); !slices.Equal(got, []string{"roact", "rodux"}) {
		t.Errorf("FilePathsExcludingJSON() = %v", got)
	}
}

func TestRateLimitFailsFastUntilNewToken(t *testing.T) {
	var calls atomic.Int32
	var lastAuth atomic.Value
	mux := http.NewServeMux()
	handler := func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		auth := r.Header.Get("Authorization")
		lastAuth.Store(auth)
		if auth == "" {
			writeRateLimited(w)
			return
		}
		io.WriteString(w, `[{"tag_name":"v1.0.0"}]`)
	}
	mux.HandleFunc("/repos/owner/repo/releases", handler)
	mux.HandleFunc("/repos/owner/other/releases", handler)
	c := testClient(t, mux)
	ctx := context.Background()

	if _, err := c.RepositoryReleases(ctx, "owner", "repo"); !errors.IsRateLimited(err) {
		t.Fatalf("error = %v, want RATE_LIMITED", err)
	}
	if !c.IsRateLimited() {
		t.Fatal("client should be rate limited")
	}

	if _, err := c.RepositoryReleases(ctx, "owner", "other"); !errors.IsRateLimited(err) {
		t.Errorf("error = %v, want RATE_LIMITED", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1 (second request must not hit the network)", calls.Load())
	}

	c.SetAuthToken("ghp_test")
	if c.IsRateLimited() {
		t.Fatal("SetAuthToken should lift the rate limit")
	}

	rels, err := c.RepositoryReleases(ctx, "owner", "repo")
	if err != nil {
		t.Fatalf("RepositoryReleases() after token error: %v", err)
	}
	if len(rels) != 1 {
		t.Errorf("releases = %+v", rels)
	}
	if got := lastAuth.Load(); got != "Bearer ghp_test" {
		t.Errorf("Authorization = %q, want Bearer ghp_test", got)
	}
}

func TestSetAuthTokenInvalidatesCache(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/releases", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, `[]`)
	})
	c := testClient(t, mux)
	ctx := context.Background()

	c.RepositoryReleases(ctx, "owner", "repo")
	c.RepositoryReleases(ctx, "owner", "repo")
	if calls.Load() != 1 {
		t.Fatalf("server calls = %d, want 1 (cached)", calls.Load())
	}

	c.SetAuthToken("token")
	c.RepositoryReleases(ctx, "owner", "repo")
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2 after SetAuthToken", calls.Load())
	}
}

func TestWaitForRateLimitChange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/releases", func(w http.ResponseWriter, r *http.Request) {
		writeRateLimited(w)
	})
	c := testClient(t, mux)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.WaitForRateLimitChange(ctx); err == nil {
		t.Fatal("expected timeout with no state change")
	}

	c.RepositoryReleases(context.Background(), "owner", "repo")
	if !c.IsRateLimited() {
		t.Fatal("expected limited state")
	}
}

func TestSetAuthTokenResumesWaiters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/releases", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeRateLimited(w)
			return
		}
		io.WriteString(w, `[{"tag_name":"v1.0.0"}]`)
	})
	c := testClient(t, mux)

	if _, err := c.RepositoryReleases(context.Background(), "owner", "repo"); !errors.IsRateLimited(err) {
		t.Fatalf("error = %v, want RATE_LIMITED", err)
	}
	changed := c.RateLimitChanged()

	const n = 8
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			limited, err := c.WaitForRateLimitChange(ctx)
			if err != nil {
				t.Errorf("WaitForRateLimitChange error: %v", err)
			}
			results <- limited
		}()
	}

	time.Sleep(20 * time.Millisecond)
	if len(results) != 0 {
		t.Fatalf("%d waiters resumed before the token was set", len(results))
	}

	c.SetAuthToken("token")
	for i := 0; i < n; i++ {
		if limited := <-results; limited {
			t.Errorf("waiter %d resumed with limited = true", i)
		}
	}
	select {
	case <-changed:
	default:
		t.Error("RateLimitChanged() channel not closed by SetAuthToken")
	}

	releases, err := c.RepositoryReleases(context.Background(), "owner", "repo")
	if err != nil || len(releases) != 1 {
		t.Errorf("RepositoryReleases() after token = %v, %v", releases, err)
	}
}

func TestInvalidRepoRef(t *testing.T) {
	c := testClient(t, http.NewServeMux())

	if _, err := c.RepositoryReleases(context.Background(), "-bad", "repo"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestParseRepoRef(t *testing.T) {
	tests := []struct {
		ref       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"golang/go", "golang", "go", false},
		{"UpliftGames/wally-index", "UpliftGames", "wally-index", false},
		{"no-slash", "", "", true},
		{"owner/", "", "", true},
		{"-owner/repo", "", "", true},
		{"owner/re po", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			owner, repo, err := ParseRepoRef(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRepoRef(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("ParseRepoRef(%q) = %s/%s", tt.ref, owner, repo)
			}
		})
	}
}
