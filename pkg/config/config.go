// Package config loads deputy's TOML configuration.
//
// The file lives at $XDG_CONFIG_HOME/deputy/config.toml (falling back to
// ~/.config/deputy/config.toml). Every key is optional:
//
//	[http]
//	timeout = "10s"
//
//	[crates]
//	index_url = "https://index.crates.io"
//	api_url = "https://crates.io/api/v1"
//	crawl_interval = "1.25s"
//
//	[npm]
//	registry_url = "https://registry.npmjs.org"
//
//	[github]
//	base_url = "https://api.github.com/"
//	token = ""
//
//	[wally]
//	index_url = "https://github.com/UpliftGames/wally-index"
//
// The GITHUB_TOKEN environment variable overrides github.token.
package config

import (
	"bytes"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/deputy/pkg/errors"
	"github.com/matzehuels/deputy/pkg/integrations/crates"
	"github.com/matzehuels/deputy/pkg/integrations/github"
	"github.com/matzehuels/deputy/pkg/integrations/npm"
	"github.com/matzehuels/deputy/pkg/integrations/wally"
)

const (
	appName  = "deputy"
	fileName = "config.toml"

	// TokenEnv names the environment variable that overrides github.token.
	TokenEnv = "GITHUB_TOKEN"

	defaultTimeout       = 10 * time.Second
	defaultCrawlInterval = 1250 * time.Millisecond
)

// Config is the full configuration.
type Config struct {
	HTTP   HTTPConfig   `toml:"http"`
	Crates CratesConfig `toml:"crates"`
	Npm    NpmConfig    `toml:"npm"`
	GitHub GitHubConfig `toml:"github"`
	Wally  WallyConfig  `toml:"wally"`
}

type HTTPConfig struct {
	Timeout Duration `toml:"timeout"`
}

type CratesConfig struct {
	IndexURL      string   `toml:"index_url"`
	APIURL        string   `toml:"api_url"`
	CrawlInterval Duration `toml:"crawl_interval"`
}

type NpmConfig struct {
	RegistryURL string `toml:"registry_url"`
}

type GitHubConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
}

type WallyConfig struct {
	IndexURL string `toml:"index_url"`
}

// Duration is a time.Duration written as a string such as "1.5s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults fills every unset field with its default.
func (c Config) WithDefaults() Config {
	if c.HTTP.Timeout.Duration <= 0 {
		c.HTTP.Timeout.Duration = defaultTimeout
	}
	if c.Crates.IndexURL == "" {
		c.Crates.IndexURL = crates.DefaultIndexURL
	}
	if c.Crates.APIURL == "" {
		c.Crates.APIURL = crates.DefaultAPIURL
	}
	if c.Crates.CrawlInterval.Duration <= 0 {
		c.Crates.CrawlInterval.Duration = defaultCrawlInterval
	}
	if c.Npm.RegistryURL == "" {
		c.Npm.RegistryURL = npm.DefaultRegistryURL
	}
	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = github.DefaultBaseURL
	}
	if c.Wally.IndexURL == "" {
		c.Wally.IndexURL = wally.DefaultIndexURL
	}
	return c
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, fileName), nil
}

// Load reads the config file at path, applies the environment override and
// fills defaults. An empty path means [DefaultPath], which may be absent;
// an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInternal, err, "resolve config path")
		}
		path = p
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = Parse(data); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
		}
	case !explicit && stderrors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "read config %s", path)
	}

	if token := os.Getenv(TokenEnv); token != "" {
		cfg.GitHub.Token = token
	}
	return cfg.WithDefaults(), nil
}

// Parse decodes TOML without applying defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Encode renders cfg as TOML. The GitHub token is redacted.
func (c Config) Encode() ([]byte, error) {
	if c.GitHub.Token != "" {
		c.GitHub.Token = "********"
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
