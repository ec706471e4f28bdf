// Package registrytest provides an in-process fake of the registries deputy
// talks to: the crates.io sparse index and API, the npm registry and the
// subset of the GitHub REST API used for releases and Wally indexes.
//
// A single server hosts every registry under its own path prefix:
//
//	/crates/index/...      crates.io sparse index
//	/crates/api/v1/...     crates.io REST API
//	/npm/{name}            npm registry
//	/github/...            GitHub REST API
package registrytest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// CrateVersion is one line of a fake sparse index file.
type CrateVersion struct {
	Version  string
	Yanked   bool
	Features map[string][]string
}

// NpmVersion is one published version of a fake npm package.
type NpmVersion struct {
	Version    string
	Deprecated string
}

// Release is a fake GitHub release.
type Release struct {
	Tag   string
	Draft bool
}

// Server is a fake registry server. Register content with the Add* methods
// before issuing requests. Methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	crates      map[string][]CrateVersion
	npm         map[string][]NpmVersion
	releases    map[string][]Release
	files       map[string]map[string][]byte
	rateLimited bool
	hits        map[string]int
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		crates:   make(map[string][]CrateVersion),
		npm:      make(map[string][]NpmVersion),
		releases: make(map[string][]Release),
		files:    make(map[string]map[string][]byte),
		hits:     make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// CratesIndexURL returns the sparse index root.
func (s *Server) CratesIndexURL() string { return s.URL + "/crates/index" }

// CratesAPIURL returns the crates.io API root.
func (s *Server) CratesAPIURL() string { return s.URL + "/crates/api/v1" }

// NpmURL returns the npm registry root.
func (s *Server) NpmURL() string { return s.URL + "/npm" }

// GitHubURL returns the GitHub API root.
func (s *Server) GitHubURL() string { return s.URL + "/github/" }

// AddCrate registers a crate. Versions are listed oldest first, as in the
// real index.
func (s *Server) AddCrate(name string, versions ...CrateVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crates[strings.ToLower(name)] = append(s.crates[strings.ToLower(name)], versions...)
}

// AddNpmPackage registers an npm package.
func (s *Server) AddNpmPackage(name string, versions ...NpmVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.npm[strings.ToLower(name)] = append(s.npm[strings.ToLower(name)], versions...)
}

// AddRelease registers a GitHub release. Releases are served newest first
// in reverse order of registration.
func (s *Server) AddRelease(owner, repo string, releases ...Release) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := repoKey(owner, repo)
	s.releases[key] = append(s.releases[key], releases...)
}

// AddFile registers a file on the default branch of a GitHub repository.
// Git trees are derived from the registered files.
func (s *Server) AddFile(owner, repo, filePath string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := repoKey(owner, repo)
	if s.files[key] == nil {
		s.files[key] = make(map[string][]byte)
	}
	s.files[key][strings.TrimPrefix(filePath, "/")] = content
}

// AddWallyIndex registers a Wally index repository with its config.json.
func (s *Server) AddWallyIndex(owner, repo, api string, fallbacks ...string) {
	if fallbacks == nil {
		fallbacks = []string{}
	}
	config, _ := json.Marshal(map[string]any{"api": api, "fallback_registries": fallbacks})
	s.AddFile(owner, repo, "config.json", config)
}

// AddWallyPackage registers a package in a Wally index. Versions are listed
// oldest first.
func (s *Server) AddWallyPackage(owner, repo, scope, name string, versions ...string) {
	var lines []string
	for _, v := range versions {
		line, _ := json.Marshal(map[string]any{
			"package": map[string]any{
				"name":     scope + "/" + name,
				"version":  v,
				"registry": "https://github.com/" + owner + "/" + repo,
				"realm":    "shared",
			},
			"dependencies": map[string]string{},
		})
		lines = append(lines, string(line))
	}
	s.AddFile(owner, repo, scope+"/owners.json", []byte("[1]"))
	s.AddFile(owner, repo, scope+"/"+name, []byte(strings.Join(lines, "\n")+"\n"))
}

// SetGitHubRateLimited makes anonymous GitHub requests fail with a rate
// limit response. Requests carrying an Authorization header still succeed.
func (s *Server) SetGitHubRateLimited(limited bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimited = limited
}

// Hits returns how many requests were served for a registry prefix such as
// "crates/index", "crates/api", "npm" or "github".
func (s *Server) Hits(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[prefix]
}

func (s *Server) hit(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[prefix]++
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/crates", func(r chi.Router) {
		r.Get("/index/*", s.handleCrateIndex)
		r.Get("/api/v1/crates", s.handleCrateSearch)
		r.Get("/api/v1/crates/{name}", s.handleCrateData)
	})
	r.Get("/npm/{name}", s.handleNpm)
	r.Route("/github", func(r chi.Router) {
		r.Use(s.githubRateLimit)
		r.Get("/repos/{owner}/{repo}/releases", s.handleReleases)
		r.Get("/repos/{owner}/{repo}/community/profile", s.handleCommunityProfile)
		r.Get("/repos/{owner}/{repo}/contents/*", s.handleContents)
		r.Get("/repos/{owner}/{repo}/git/trees/{sha}", s.handleTree)
	})
	return r
}

func (s *Server) handleCrateIndex(w http.ResponseWriter, r *http.Request) {
	s.hit("crates/index")
	name := path.Base(chi.URLParam(r, "*"))

	s.mu.Lock()
	versions, ok := s.crates[name]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	for _, v := range versions {
		features := v.Features
		if features == nil {
			features = map[string][]string{}
		}
		line, _ := json.Marshal(map[string]any{
			"name":     name,
			"vers":     v.Version,
			"deps":     []any{},
			"features": features,
			"yanked":   v.Yanked,
		})
		fmt.Fprintf(w, "%s\n", line)
	}
}

func (s *Server) crateJSON(name string) map[string]any {
	versions := s.crates[name]
	maxVersion := ""
	if len(versions) > 0 {
		maxVersion = versions[len(versions)-1].Version
	}
	return map[string]any{
		"name":             name,
		"description":      "The " + name + " crate",
		"created_at":       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"updated_at":       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"repository":       "https://github.com/example/" + name,
		"downloads":        1000 * len(versions),
		"recent_downloads": 10 * len(versions),
		"max_version":      maxVersion,
	}
}

func (s *Server) handleCrateData(w http.ResponseWriter, r *http.Request) {
	s.hit("crates/api")
	name := strings.ToLower(chi.URLParam(r, "name"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.crates[name]; !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{"crate": s.crateJSON(name)})
}

func (s *Server) handleCrateSearch(w http.ResponseWriter, r *http.Request) {
	s.hit("crates/api")
	q := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.crates))
	for name := range s.crates {
		if strings.Contains(name, q) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	crates := make([]map[string]any, 0, len(names))
	for _, name := range names {
		crates = append(crates, s.crateJSON(name))
	}
	writeJSON(w, map[string]any{"crates": crates})
}

func (s *Server) handleNpm(w http.ResponseWriter, r *http.Request) {
	s.hit("npm")
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	versions, ok := s.npm[strings.ToLower(name)]
	s.mu.Unlock()
	if !ok {
		http.Error(w, `{"error":"Not found"}`, http.StatusNotFound)
		return
	}

	docs := make(map[string]any, len(versions))
	latest := ""
	for _, v := range versions {
		doc := map[string]any{"name": name, "version": v.Version}
		if v.Deprecated != "" {
			doc["deprecated"] = v.Deprecated
		}
		docs[v.Version] = doc
		latest = v.Version
	}
	writeJSON(w, map[string]any{
		"name":      name,
		"dist-tags": map[string]string{"latest": latest},
		"versions":  docs,
		"license":   "MIT",
	})
}

func (s *Server) githubRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hit("github")
		s.mu.Lock()
		limited := s.rateLimited
		s.mu.Unlock()

		if limited && r.Header.Get("Authorization") == "" {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(time.Hour).Unix()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			writeJSONBody(w, map[string]string{
				"message":           "API rate limit exceeded for 127.0.0.1.",
				"documentation_url": "https://docs.github.com/rest/overview/resources-in-the-rest-api#rate-limiting",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleReleases(w http.ResponseWriter, r *http.Request) {
	key := repoKey(chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))

	s.mu.Lock()
	releases, ok := s.releases[key]
	s.mu.Unlock()
	if !ok {
		githubNotFound(w)
		return
	}
	out := make([]map[string]any, 0, len(releases))
	for i := len(releases) - 1; i >= 0; i-- {
		out = append(out, map[string]any{
			"tag_name":   releases[i].Tag,
			"name":       releases[i].Tag,
			"draft":      releases[i].Draft,
			"prerelease": strings.Contains(releases[i].Tag, "-"),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleCommunityProfile(w http.ResponseWriter, r *http.Request) {
	key := repoKey(chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))

	s.mu.Lock()
	_, hasReleases := s.releases[key]
	_, hasFiles := s.files[key]
	s.mu.Unlock()
	if !hasReleases && !hasFiles {
		githubNotFound(w)
		return
	}
	writeJSON(w, map[string]any{
		"health_percentage": 100,
		"description":       "Repository " + key,
		"documentation":     "https://example.com/" + key,
	})
}

func (s *Server) handleContents(w http.ResponseWriter, r *http.Request) {
	key := repoKey(chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	filePath := strings.Trim(chi.URLParam(r, "*"), "/")

	s.mu.Lock()
	content, ok := s.files[key][filePath]
	s.mu.Unlock()
	if !ok {
		githubNotFound(w)
		return
	}
	writeJSON(w, map[string]any{
		"type":     "file",
		"encoding": "base64",
		"name":     path.Base(filePath),
		"path":     filePath,
		"size":     len(content),
		"content":  base64.StdEncoding.EncodeToString(content),
	})
}

// handleTree serves one level of the tree. The root is addressed by any
// branch name; subdirectories by the SHA "tree-<dir>" handed out in the
// parent listing.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	key := repoKey(chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	sha := chi.URLParam(r, "sha")
	dir, isSubtree := strings.CutPrefix(sha, "tree-")
	if !isSubtree {
		dir = ""
	}

	s.mu.Lock()
	files, ok := s.files[key]
	var entries []map[string]any
	seen := make(map[string]bool)
	for filePath, content := range files {
		rel := filePath
		if dir != "" {
			var found bool
			if rel, found = strings.CutPrefix(filePath, dir+"/"); !found {
				continue
			}
		}
		name, rest, nested := strings.Cut(rel, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		entry := map[string]any{"path": name}
		if nested && rest != "" {
			entry["type"] = "tree"
			entry["sha"] = "tree-" + strings.TrimPrefix(dir+"/"+name, "/")
		} else {
			entry["type"] = "blob"
			entry["sha"] = "blob-" + filePath
			entry["size"] = len(content)
		}
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	if !ok || (isSubtree && len(entries) == 0) {
		githubNotFound(w)
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i]["path"].(string) < entries[j]["path"].(string)
	})
	writeJSON(w, map[string]any{"sha": sha, "tree": entries, "truncated": false})
}

func repoKey(owner, repo string) string {
	return strings.ToLower(owner + "/" + repo)
}

func githubNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	writeJSONBody(w, map[string]string{"message": "Not Found"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	writeJSONBody(w, v)
}

func writeJSONBody(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
