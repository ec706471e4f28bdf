package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/deputy/internal/registrytest"
	"github.com/matzehuels/deputy/pkg/config"
	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/observability"
)

type testCLI struct {
	*CLI
	srv    *registrytest.Server
	config string
	stderr *syncBuffer
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	t.Setenv(config.TokenEnv, "")
	srv := registrytest.New(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	data := fmt.Sprintf(`[crates]
index_url = %q
api_url = %q
crawl_interval = "1ms"

[npm]
registry_url = %q

[github]
base_url = %q

[wally]
index_url = "https://github.com/upliftgames/wally-index"
`, srv.CratesIndexURL(), srv.CratesAPIURL(), srv.NpmURL(), srv.GitHubURL())
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	stderr := &syncBuffer{}
	return &testCLI{CLI: New(stderr, LogInfo), srv: srv, config: path, stderr: stderr}
}

// run executes one command line and returns its standard output.
func (tc *testCLI) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := tc.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", tc.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	want := []string{"resolve", "versions", "latest", "complete", "search", "info", "wally", "config", "completion"}
	for _, name := range want {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := root.Find([]string{name})
			if err != nil || cmd.Name() != name {
				t.Errorf("Find(%q) = %v, %v", name, cmd, err)
			}
		})
	}
	for _, flag := range []string{"config", "github-token", "index", "stats"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestResolveCommand(t *testing.T) {
	tc := newTestCLI(t)
	out, err := tc.run(t, "resolve", ">= 1.2, < 2", "1.4.0", "v1.9.9", "2.0.0", "nope")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	assertContains(t, out,
		">=1.2, <2",
		"1.2.0",
		"1.4.0 matches",
		"1.9.9 matches",
		"2.0.0 does not match",
		"nope is not a version",
	)
}

func TestResolveCommandInvalid(t *testing.T) {
	tc := newTestCLI(t)
	_, err := tc.run(t, "resolve", "^a.b")
	if !errors.Is(err, errors.ErrCodeInvalidVersion) {
		t.Fatalf("resolve error = %v, want INVALID_VERSION", err)
	}
}

func TestVersionsCommand(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddCrate("serde",
		registrytest.CrateVersion{Version: "1.0.0"},
		registrytest.CrateVersion{Version: "1.0.1", Yanked: true},
		registrytest.CrateVersion{Version: "1.1.0"},
	)

	out, err := tc.run(t, "versions", "crates", "serde")
	if err != nil {
		t.Fatalf("versions error: %v", err)
	}
	assertContains(t, out, "3 versions", "1.0.0", "1.0.1", "yanked", "1.1.0")
	if strings.Index(out, "1.1.0") > strings.Index(out, "1.0.0") {
		t.Errorf("versions not newest first:\n%s", out)
	}
}

func TestVersionsCommandLimit(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddNpmPackage("@types/node",
		registrytest.NpmVersion{Version: "18.0.0"},
		registrytest.NpmVersion{Version: "20.0.0"},
		registrytest.NpmVersion{Version: "20.1.0"},
	)

	out, err := tc.run(t, "versions", "npm", "@types/node", "-n", "1")
	if err != nil {
		t.Fatalf("versions error: %v", err)
	}
	assertContains(t, out, "20.1.0", "2 more")
	if strings.Contains(out, "18.0.0") {
		t.Errorf("limit not applied:\n%s", out)
	}
}

func TestVersionsCommandErrors(t *testing.T) {
	tc := newTestCLI(t)

	if _, err := tc.run(t, "versions", "pypi", "requests"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown registry error = %v, want INVALID_INPUT", err)
	}
	if _, err := tc.run(t, "versions", "crates", "missing"); !errors.IsNotFound(err) {
		t.Errorf("missing crate error = %v, want NOT_FOUND", err)
	}
}

func TestLatestCommand(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddCrate("serde",
		registrytest.CrateVersion{Version: "1.0.0"},
		registrytest.CrateVersion{Version: "1.1.0"},
	)
	tc.srv.AddCrate("tokio",
		registrytest.CrateVersion{Version: "1.30.0"},
		registrytest.CrateVersion{Version: "1.31.0", Yanked: true},
	)

	out, err := tc.run(t, "latest", "crates", "serde@1.0.0", "serde@1.1.0", "tokio@1.31.0")
	if err != nil {
		t.Fatalf("latest error: %v", err)
	}
	assertContains(t, out,
		"serde@1.0.0 "+iconArrow+" 1.1.0",
		"serde@1.1.0 is the latest version",
		"tokio@1.31.0 is yanked",
	)
	assertContains(t, tc.stderr.String(), "Checked 3 packages")
}

func TestLatestCommandBadArgument(t *testing.T) {
	tc := newTestCLI(t)
	_, err := tc.run(t, "latest", "crates", "serde")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("latest error = %v, want INVALID_INPUT", err)
	}
}

func TestCompleteCommand(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddRelease("rojo-rbx", "rojo",
		registrytest.Release{Tag: "7.3.0"},
		registrytest.Release{Tag: "7.4.0"},
		registrytest.Release{Tag: "7.4.1"},
		registrytest.Release{Tag: "7.5.0", Draft: true},
	)

	out, err := tc.run(t, "complete", "github", "rojo-rbx/rojo", "^7.4")
	if err != nil {
		t.Fatalf("complete error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d completions, want 2:\n%s", len(lines), out)
	}
	if !strings.HasSuffix(lines[0], "7.4.1") || !strings.HasSuffix(lines[1], "7.4.0") {
		t.Errorf("completions out of order:\n%s", out)
	}
	if strings.Contains(out, "7.5.0") {
		t.Errorf("draft release offered:\n%s", out)
	}
}

func TestCompleteCommandNoMatch(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddCrate("serde", registrytest.CrateVersion{Version: "1.0.0"})

	out, err := tc.run(t, "complete", "crates", "serde", "2")
	if err != nil {
		t.Fatalf("complete error: %v", err)
	}
	assertContains(t, out, `no versions of serde start with "2"`)
}

func TestSearchCommand(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddCrate("serde", registrytest.CrateVersion{Version: "1.0.0"})
	tc.srv.AddCrate("serde_json", registrytest.CrateVersion{Version: "1.0.100"})
	tc.srv.AddCrate("tokio", registrytest.CrateVersion{Version: "1.30.0"})

	out, err := tc.run(t, "search", "serde")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	assertContains(t, out, "serde 1.0.0", "serde_json 1.0.100", "deputy info crates serde")
	if strings.Contains(out, "tokio") {
		t.Errorf("unrelated crate listed:\n%s", out)
	}
}

func TestInfoCommand(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddCrate("serde",
		registrytest.CrateVersion{Version: "1.0.0"},
		registrytest.CrateVersion{Version: "1.0.1", Features: map[string][]string{"derive": nil, "std": nil}},
	)
	tc.srv.AddNpmPackage("left-pad", registrytest.NpmVersion{Version: "1.3.0"})
	tc.srv.AddRelease("rojo-rbx", "rojo", registrytest.Release{Tag: "v7.4.0"})
	tc.srv.AddWallyIndex("upliftgames", "wally-index", "https://api.wally.run")
	tc.srv.AddWallyPackage("upliftgames", "wally-index", "roblox", "roact", "1.4.0", "1.4.4")

	tests := []struct {
		registry string
		name     string
		want     []string
	}{
		{"crates", "serde", []string{"serde", "1.0.1", "2 published", "derive, std"}},
		{"npm", "left-pad", []string{"left-pad", "1.3.0", "MIT"}},
		{"github", "rojo-rbx/rojo", []string{"rojo-rbx/rojo", "7.4.0", "100%"}},
		{"wally", "roblox/roact", []string{"roblox/roact", "1.4.4", "shared", "[dependencies]"}},
	}
	for _, tt := range tests {
		t.Run(tt.registry, func(t *testing.T) {
			out, err := tc.run(t, "info", tt.registry, tt.name)
			if err != nil {
				t.Fatalf("info error: %v", err)
			}
			assertContains(t, out, tt.want...)
		})
	}
}

func TestWallyCommands(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddWallyIndex("upliftgames", "wally-index", "https://api.wally.run", "https://github.com/acme/wally-mirror")
	tc.srv.AddWallyPackage("upliftgames", "wally-index", "roblox", "roact", "1.4.4")
	tc.srv.AddWallyIndex("acme", "wally-mirror", "https://api.acme.dev")
	tc.srv.AddWallyPackage("acme", "wally-mirror", "evaera", "promise", "4.0.0")
	tc.srv.AddWallyPackage("acme", "wally-mirror", "roblox", "rodux", "3.0.0")

	out, err := tc.run(t, "wally", "indexes")
	if err != nil {
		t.Fatalf("wally indexes error: %v", err)
	}
	assertContains(t, out, "https://github.com/upliftgames/wally-index main", "https://github.com/acme/wally-mirror fallback")

	out, err = tc.run(t, "wally", "scopes")
	if err != nil {
		t.Fatalf("wally scopes error: %v", err)
	}
	if got := strings.Fields(out); strings.Join(got, " ") != "evaera roblox" {
		t.Errorf("scopes = %v, want [evaera roblox]", got)
	}

	out, err = tc.run(t, "wally", "packages", "roblox")
	if err != nil {
		t.Fatalf("wally packages error: %v", err)
	}
	assertContains(t, out, "roblox/roact", "roblox/rodux", "deputy versions wally roblox/roact")
}

func TestConfigCommands(t *testing.T) {
	tc := newTestCLI(t)

	out, err := tc.run(t, "config", "path")
	if err != nil {
		t.Fatalf("config path error: %v", err)
	}
	if strings.TrimSpace(out) != tc.config {
		t.Errorf("config path = %q, want %q", strings.TrimSpace(out), tc.config)
	}

	out, err = tc.run(t, "--github-token", "secret", "config", "show")
	if err != nil {
		t.Fatalf("config show error: %v", err)
	}
	assertContains(t, out, tc.srv.NpmURL(), "********")
	if strings.Contains(out, "secret") {
		t.Errorf("token not redacted:\n%s", out)
	}
}

func TestConfigMissingFile(t *testing.T) {
	tc := newTestCLI(t)
	tc.config = filepath.Join(t.TempDir(), "absent.toml")

	_, err := tc.run(t, "config", "show")
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Fatalf("config show error = %v, want INVALID_PATH", err)
	}
}

func TestCompletionCommand(t *testing.T) {
	tc := newTestCLI(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := tc.run(t, "completion", shell)
			if err != nil {
				t.Fatalf("completion error: %v", err)
			}
			if !strings.Contains(out, "deputy") {
				t.Errorf("%s script does not mention deputy", shell)
			}
		})
	}
}

func TestRateLimitPromptsForToken(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddRelease("rojo-rbx", "rojo", registrytest.Release{Tag: "v7.4.0"})
	tc.srv.SetGitHubRateLimited(true)
	tc.In = strings.NewReader("ghp_test\n")

	browse = func(string) error { return errors.New(errors.ErrCodeUnsupported, "no browser") }
	t.Cleanup(func() { browse = openBrowser })

	out, err := tc.run(t, "versions", "github", "rojo-rbx/rojo")
	if err != nil {
		t.Fatalf("versions error: %v", err)
	}
	assertContains(t, out, "7.4.0")
	assertContains(t, tc.stderr.String(), "GitHub Rate Limit Reached")
}

func TestRateLimitDeclined(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddRelease("rojo-rbx", "rojo", registrytest.Release{Tag: "v7.4.0"})
	tc.srv.SetGitHubRateLimited(true)
	tc.In = strings.NewReader("\n")

	browse = func(string) error { return errors.New(errors.ErrCodeUnsupported, "no browser") }
	t.Cleanup(func() { browse = openBrowser })

	_, err := tc.run(t, "versions", "github", "rojo-rbx/rojo")
	if !errors.IsRateLimited(err) {
		t.Fatalf("versions error = %v, want RATE_LIMITED", err)
	}
}

func TestRateLimitWithoutTerminal(t *testing.T) {
	tc := newTestCLI(t)
	tc.srv.AddRelease("rojo-rbx", "rojo", registrytest.Release{Tag: "v7.4.0"})
	tc.srv.SetGitHubRateLimited(true)

	_, err := tc.run(t, "versions", "github", "rojo-rbx/rojo")
	if !errors.IsRateLimited(err) {
		t.Fatalf("versions error = %v, want RATE_LIMITED", err)
	}
	if strings.Contains(tc.stderr.String(), "Rate Limit Reached") {
		t.Error("prompted without a terminal")
	}
}

func TestSplitNameVersion(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		version string
		wantErr bool
	}{
		{in: "serde@1.0", name: "serde", version: "1.0"},
		{in: "@types/node@20.1.0", name: "@types/node", version: "20.1.0"},
		{in: "tokio@^1.30", name: "tokio", version: "^1.30"},
		{in: "serde", wantErr: true},
		{in: "serde@", wantErr: true},
		{in: "@types/node", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, version, err := splitNameVersion(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("splitNameVersion(%q) = %q, %q, want error", tt.in, name, version)
				}
				return
			}
			if err != nil || name != tt.name || version != tt.version {
				t.Errorf("splitNameVersion(%q) = %q, %q, %v", tt.in, name, version, err)
			}
		})
	}
}

func TestStatsFlag(t *testing.T) {
	tc := newTestCLI(t)
	t.Cleanup(observability.Reset)
	tc.srv.AddCrate("serde", registrytest.CrateVersion{Version: "1.0.0"})

	if _, err := tc.run(t, "--stats", "versions", "crates", "serde"); err != nil {
		t.Fatalf("versions error: %v", err)
	}
	assertContains(t, tc.stderr.String(),
		"Stats",
		`deputy_cache_misses_total{cache="crates.index"} 1`,
		`deputy_http_requests_total{`,
	)
}
